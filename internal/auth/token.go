package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims はGoTrueが発行するアクセストークンのクレーム。
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenParser はアクセストークン（JWT）を解析する。
// secretが空の場合は署名を検証せずにクレームだけを読み取る。
// 署名が検証されない場合でも、最終的な有効性はIdPへの問い合わせで確認する。
type TokenParser struct {
	secret []byte
}

// NewTokenParser はTokenParserを生成する。
func NewTokenParser(secret string) *TokenParser {
	p := &TokenParser{}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p
}

// Parse はトークンを解析してクレームを返す。
// 有効期限はここでは検証しない（呼び出し側でリフレッシュ判定に使う）。
func (p *TokenParser) Parse(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	if p.secret == nil {
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("failed to parse access token: %w", err)
		}
	} else {
		_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return p.secret, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to verify access token: %w", err)
		}
	}

	if claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}
	return claims, nil
}

// ExpiresWithin はnowからskew以内に有効期限が切れるかどうかを返す。
// expクレームがない場合は期限切れとして扱わない。
func (c *AccessClaims) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt.Time)
}
