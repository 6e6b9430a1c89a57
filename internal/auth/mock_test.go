package auth

import (
	"context"

	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/repository"
)

// --- モック定義 ---

type mockIdentityProvider struct {
	signUpFn         func(ctx context.Context, params SignUpParams) error
	signInFn         func(ctx context.Context, email, password string) (*Grant, error)
	exchangeCodeFn   func(ctx context.Context, code, verifier string) (*Grant, error)
	refreshFn        func(ctx context.Context, refreshToken string) (*Grant, error)
	getUserFn        func(ctx context.Context, accessToken string) (*ProviderUser, error)
	updateUserFn     func(ctx context.Context, accessToken string, update UserUpdate, redirectTo string) error
	resetPasswordFn  func(ctx context.Context, email, redirectTo, codeChallenge string) error
	signOutFn        func(ctx context.Context, accessToken string) error
	authorizeURLFn   func(provider, redirectTo, codeChallenge string) string
	getUserCallCount int
}

func (m *mockIdentityProvider) SignUp(ctx context.Context, params SignUpParams) error {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, params)
	}
	return nil
}

func (m *mockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*Grant, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return &Grant{}, nil
}

func (m *mockIdentityProvider) ExchangeCode(ctx context.Context, code, verifier string) (*Grant, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code, verifier)
	}
	return &Grant{}, nil
}

func (m *mockIdentityProvider) RefreshSession(ctx context.Context, refreshToken string) (*Grant, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return &Grant{}, nil
}

func (m *mockIdentityProvider) GetUser(ctx context.Context, accessToken string) (*ProviderUser, error) {
	m.getUserCallCount++
	if m.getUserFn != nil {
		return m.getUserFn(ctx, accessToken)
	}
	return &ProviderUser{}, nil
}

func (m *mockIdentityProvider) UpdateUser(ctx context.Context, accessToken string, update UserUpdate, redirectTo string) error {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, accessToken, update, redirectTo)
	}
	return nil
}

func (m *mockIdentityProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo, codeChallenge string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(ctx, email, redirectTo, codeChallenge)
	}
	return nil
}

func (m *mockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

func (m *mockIdentityProvider) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	if m.authorizeURLFn != nil {
		return m.authorizeURLFn(provider, redirectTo, codeChallenge)
	}
	return ""
}

type mockProfileRepo struct {
	createIfAbsentFn func(ctx context.Context, profile *model.Profile) error
}

func (m *mockProfileRepo) FindByID(_ context.Context, _ string) (*model.Profile, error) {
	return nil, nil
}

func (m *mockProfileRepo) UpdateEmail(_ context.Context, _, _ string) (*model.Profile, error) {
	return nil, nil
}

func (m *mockProfileRepo) UpdateFields(_ context.Context, _ string, _ model.ProfileUpdate) error {
	return nil
}

func (m *mockProfileRepo) CreateIfAbsent(ctx context.Context, profile *model.Profile) error {
	if m.createIfAbsentFn != nil {
		return m.createIfAbsentFn(ctx, profile)
	}
	return nil
}

// --- compile-time interface checks ---
var _ IdentityProvider = (*mockIdentityProvider)(nil)
var _ repository.ProfileRepository = (*mockProfileRepo)(nil)
