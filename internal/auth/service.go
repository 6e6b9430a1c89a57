// Package auth はIdP（Supabase Auth）を使った認証フロー、セッション解決を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/repository"
)

// コールバック先のパス
const (
	CallbackPath     = "/auth/callback"
	ResetConfirmPath = "/auth/reset-password/confirm"
	LoginPath        = "/auth/login"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BaseURL  string // 例: https://profile.example.com
	Provider string // 外部ログインに使うプロバイダー名（"google"等）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	idp         IdentityProvider
	profileRepo repository.ProfileRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(idp IdentityProvider, profileRepo repository.ProfileRepository, config ServiceConfig) *Service {
	return &Service{
		idp:         idp,
		profileRepo: profileRepo,
		config:      config,
	}
}

// SignUp はユーザー登録を行い、確認メールを送信させる。
// 確認リンクから戻った際のコード交換に使う検証子を返す。
func (s *Service) SignUp(ctx context.Context, name, email, password string) (string, error) {
	verifier, err := NewCodeVerifier()
	if err != nil {
		return "", err
	}

	err = s.idp.SignUp(ctx, SignUpParams{
		Email:         email,
		Password:      password,
		Name:          name,
		RedirectTo:    s.config.BaseURL + CallbackPath,
		CodeChallenge: CodeChallenge(verifier),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign up: %w", err)
	}

	slog.Info("user signed up", slog.String("email", email))
	return verifier, nil
}

// SignIn はメールアドレスとパスワードでログインする。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Tokens, error) {
	grant, err := s.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", grant.User.ID))
	return &grant.Tokens, nil
}

// LoginURL は外部プロバイダー経由ログインの認可URLと、Cookieに保存する検証子を返す。
func (s *Service) LoginURL() (string, string, error) {
	verifier, err := NewCodeVerifier()
	if err != nil {
		return "", "", err
	}
	u := s.idp.AuthorizeURL(s.config.Provider, s.config.BaseURL+CallbackPath, CodeChallenge(verifier))
	return u, verifier, nil
}

// HandleCallback は認可コードをセッションに交換する。
// 初回ログインの場合はprofilesレコードを作成する。作成の失敗はログインを妨げない。
func (s *Service) HandleCallback(ctx context.Context, code, verifier string) (*model.Tokens, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	grant, err := s.idp.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	now := time.Now()
	profile := &model.Profile{
		ID:        grant.User.ID,
		Email:     grant.User.Email,
		Name:      grant.User.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profileRepo.CreateIfAbsent(ctx, profile); err != nil {
		slog.Warn("failed to ensure profile",
			slog.String("user_id", grant.User.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("auth code exchanged", slog.String("user_id", grant.User.ID))
	return &grant.Tokens, nil
}

// RequestPasswordReset はパスワードリセットメールの送信を依頼する。
// メール内のリンクはパスワード再設定画面に戻る。セッションは作成しない。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	verifier, err := NewCodeVerifier()
	if err != nil {
		return "", err
	}

	redirectTo := s.config.BaseURL + ResetConfirmPath
	if err := s.idp.ResetPasswordForEmail(ctx, email, redirectTo, CodeChallenge(verifier)); err != nil {
		return "", fmt.Errorf("failed to request password reset: %w", err)
	}
	return verifier, nil
}

// ChangePassword はログイン中ユーザーのパスワードを変更する。
func (s *Service) ChangePassword(ctx context.Context, session *model.Session, password string) error {
	if session == nil {
		return model.NewUnauthorizedError()
	}
	if err := s.idp.UpdateUser(ctx, session.AccessToken, UserUpdate{Password: password}, ""); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", session.UserID))
	return nil
}

// ChangeEmail はメールアドレスの変更を依頼し、続けてログアウトする。
// 確認リンクはログイン画面に戻る。profilesのemailは次回ログイン時の照合で追従する。
func (s *Service) ChangeEmail(ctx context.Context, session *model.Session, email string) error {
	if session == nil {
		return model.NewUnauthorizedError()
	}

	err := s.idp.UpdateUser(ctx, session.AccessToken, UserUpdate{Email: email}, s.config.BaseURL+LoginPath)
	if err != nil {
		return fmt.Errorf("failed to change email: %w", err)
	}
	if err := s.idp.SignOut(ctx, session.AccessToken); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}

	slog.Info("email change requested", slog.String("user_id", session.UserID))
	return nil
}

// Logout はIdP側のセッションを破棄する。
func (s *Service) Logout(ctx context.Context, session *model.Session) error {
	if session == nil {
		return model.NewUnauthorizedError()
	}
	if err := s.idp.SignOut(ctx, session.AccessToken); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}

	slog.Info("user logged out", slog.String("user_id", session.UserID))
	return nil
}
