package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/profilehub/internal/model"
)

// expirySkew はアクセストークンを期限切れとみなす猶予。
const expirySkew = 10 * time.Second

// SessionProvider はセッション解決に必要なIdP操作。
type SessionProvider interface {
	GetUser(ctx context.Context, accessToken string) (*ProviderUser, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Grant, error)
}

// Resolver はCookieのトークンから現在のセッションを解決する。
type Resolver struct {
	provider SessionProvider
	parser   *TokenParser
	now      func() time.Time
}

// NewResolver はResolverを生成する。
func NewResolver(provider SessionProvider, parser *TokenParser) *Resolver {
	return &Resolver{provider: provider, parser: parser, now: time.Now}
}

// Resolve はトークンからセッションを解決する。
// 未ログインまたは検証に失敗した場合はnilを返す（エラーは返さない）。
// アクセストークンをリフレッシュした場合は新しいトークンを2番目の戻り値で返す。
func (r *Resolver) Resolve(ctx context.Context, tokens model.Tokens) (*model.Session, *model.Tokens) {
	if tokens.IsZero() {
		return nil, nil
	}

	claims, err := r.parser.Parse(tokens.AccessToken)
	if err != nil {
		slog.Warn("access token rejected", slog.String("error", err.Error()))
		return nil, nil
	}

	var refreshed *model.Tokens
	if claims.ExpiresWithin(r.now(), expirySkew) {
		if tokens.RefreshToken == "" {
			return nil, nil
		}
		grant, err := r.provider.RefreshSession(ctx, tokens.RefreshToken)
		if err != nil {
			slog.Warn("session refresh failed",
				slog.String("user_id", claims.Subject),
				slog.String("error", err.Error()),
			)
			return nil, nil
		}
		tokens = grant.Tokens
		refreshed = &grant.Tokens
	}

	user, err := r.provider.GetUser(ctx, tokens.AccessToken)
	if err != nil {
		slog.Warn("session validation failed",
			slog.String("user_id", claims.Subject),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	return &model.Session{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, refreshed
}
