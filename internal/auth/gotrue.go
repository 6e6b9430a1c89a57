package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/remote"
)

// GoTrueのエンドポイント
const (
	pathSignUp    = "/auth/v1/signup"
	pathToken     = "/auth/v1/token"
	pathUser      = "/auth/v1/user"
	pathRecover   = "/auth/v1/recover"
	pathLogout    = "/auth/v1/logout"
	pathAuthorize = "/auth/v1/authorize"
)

// PKCEのチャレンジ方式。GoTrueは小文字で受け付ける。
const codeChallengeMethod = "s256"

// ProviderUser はIdPが返すユーザー情報を表す。
type ProviderUser struct {
	ID    string
	Email string
	Name  string
}

// Grant はトークン発行の結果を表す。
type Grant struct {
	Tokens model.Tokens
	User   ProviderUser
}

// SignUpParams はサインアップのパラメータ。
type SignUpParams struct {
	Email         string
	Password      string
	Name          string
	RedirectTo    string
	CodeChallenge string
}

// UserUpdate はユーザー属性の更新内容。空のフィールドは送信しない。
type UserUpdate struct {
	Email    string
	Password string
}

// IdentityProvider はIdP（GoTrue互換API）のインターフェース。
type IdentityProvider interface {
	SignUp(ctx context.Context, params SignUpParams) error
	SignInWithPassword(ctx context.Context, email, password string) (*Grant, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*Grant, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Grant, error)
	GetUser(ctx context.Context, accessToken string) (*ProviderUser, error)
	UpdateUser(ctx context.Context, accessToken string, update UserUpdate, redirectTo string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo, codeChallenge string) error
	SignOut(ctx context.Context, accessToken string) error
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
}

// GoTrueClient はSupabase Auth（GoTrue）のREST APIクライアント。
type GoTrueClient struct {
	client *remote.Client
}

// NewGoTrueClient はGoTrueClientを生成する。
func NewGoTrueClient(client *remote.Client) *GoTrueClient {
	return &GoTrueClient{client: client}
}

// gotrueUser はGoTrueのユーザーオブジェクト。
type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

func (u gotrueUser) toProviderUser() ProviderUser {
	return ProviderUser{ID: u.ID, Email: u.Email, Name: u.UserMetadata.Name}
}

// gotrueTokenResponse はトークンエンドポイントのレスポンス。
type gotrueTokenResponse struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

// SignUp はメールアドレスとパスワードでユーザーを登録する。
// 確認メールのリンクはRedirectToに戻る。
func (c *GoTrueClient) SignUp(ctx context.Context, params SignUpParams) error {
	body := map[string]any{
		"email":    params.Email,
		"password": params.Password,
		"data":     map[string]string{"name": params.Name},
	}
	if params.CodeChallenge != "" {
		body["code_challenge"] = params.CodeChallenge
		body["code_challenge_method"] = codeChallengeMethod
	}

	return c.client.Do(ctx, remote.Request{
		Op:     "auth.sign_up",
		Method: http.MethodPost,
		Path:   pathSignUp,
		Query:  redirectQuery(params.RedirectTo),
		JSON:   body,
	})
}

// SignInWithPassword はパスワードグラントでトークンを取得する。
func (c *GoTrueClient) SignInWithPassword(ctx context.Context, email, password string) (*Grant, error) {
	return c.token(ctx, "auth.sign_in", "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// ExchangeCode はPKCEの認可コードをトークンに交換する。
func (c *GoTrueClient) ExchangeCode(ctx context.Context, code, verifier string) (*Grant, error) {
	return c.token(ctx, "auth.exchange_code", "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
}

// RefreshSession はリフレッシュトークンで新しいトークンを取得する。
func (c *GoTrueClient) RefreshSession(ctx context.Context, refreshToken string) (*Grant, error) {
	return c.token(ctx, "auth.refresh", "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *GoTrueClient) token(ctx context.Context, op, grantType string, body map[string]string) (*Grant, error) {
	var resp gotrueTokenResponse
	err := c.client.Do(ctx, remote.Request{
		Op:     op,
		Method: http.MethodPost,
		Path:   pathToken,
		Query:  url.Values{"grant_type": {grantType}},
		JSON:   body,
		Out:    &resp,
	})
	if err != nil {
		return nil, err
	}

	if resp.AccessToken == "" {
		return nil, errors.New("empty access token in response")
	}

	return &Grant{
		Tokens: model.Tokens{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    resp.ExpiresIn,
		},
		User: resp.User.toProviderUser(),
	}, nil
}

// GetUser はアクセストークンに対応するユーザーを取得する。
// トークンの有効性確認を兼ねる。
func (c *GoTrueClient) GetUser(ctx context.Context, accessToken string) (*ProviderUser, error) {
	var user gotrueUser
	err := c.client.Do(ctx, remote.Request{
		Op:     "auth.get_user",
		Method: http.MethodGet,
		Path:   pathUser,
		Bearer: accessToken,
		Out:    &user,
	})
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in response")
	}

	pu := user.toProviderUser()
	return &pu, nil
}

// UpdateUser はログイン中ユーザーのメールアドレスまたはパスワードを更新する。
// メールアドレス変更時の確認リンクはredirectToに戻る。
func (c *GoTrueClient) UpdateUser(ctx context.Context, accessToken string, update UserUpdate, redirectTo string) error {
	body := map[string]string{}
	if update.Email != "" {
		body["email"] = update.Email
	}
	if update.Password != "" {
		body["password"] = update.Password
	}

	return c.client.Do(ctx, remote.Request{
		Op:     "auth.update_user",
		Method: http.MethodPut,
		Path:   pathUser,
		Query:  redirectQuery(redirectTo),
		Bearer: accessToken,
		JSON:   body,
	})
}

// ResetPasswordForEmail はパスワードリセットメールの送信を依頼する。
func (c *GoTrueClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo, codeChallenge string) error {
	body := map[string]string{"email": email}
	if codeChallenge != "" {
		body["code_challenge"] = codeChallenge
		body["code_challenge_method"] = codeChallengeMethod
	}

	return c.client.Do(ctx, remote.Request{
		Op:     "auth.recover",
		Method: http.MethodPost,
		Path:   pathRecover,
		Query:  redirectQuery(redirectTo),
		JSON:   body,
	})
}

// SignOut はアクセストークンに紐づくセッションをIdP側で無効化する。
func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	return c.client.Do(ctx, remote.Request{
		Op:     "auth.sign_out",
		Method: http.MethodPost,
		Path:   pathLogout,
		Bearer: accessToken,
	})
}

// AuthorizeURL は外部プロバイダー経由ログインの認可URLを生成する。
func (c *GoTrueClient) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	params := url.Values{
		"provider":              {provider},
		"redirect_to":           {redirectTo},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {codeChallengeMethod},
	}
	return c.client.URL(pathAuthorize, params)
}

func redirectQuery(redirectTo string) url.Values {
	if redirectTo == "" {
		return nil
	}
	return url.Values{"redirect_to": {redirectTo}}
}

// compile-time interface check
var _ IdentityProvider = (*GoTrueClient)(nil)
