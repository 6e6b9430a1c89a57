package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hitoshi/profilehub/internal/form"
	"github.com/hitoshi/profilehub/internal/middleware"
	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/profile"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのテスト用モック。
type mockAuthService struct {
	signUpFn               func(ctx context.Context, name, email, password string) (string, error)
	signInFn               func(ctx context.Context, email, password string) (*model.Tokens, error)
	loginURLFn             func() (string, string, error)
	handleCallbackFn       func(ctx context.Context, code, verifier string) (*model.Tokens, error)
	requestPasswordResetFn func(ctx context.Context, email string) (string, error)
	changePasswordFn       func(ctx context.Context, session *model.Session, password string) error
	changeEmailFn          func(ctx context.Context, session *model.Session, email string) error
	logoutFn               func(ctx context.Context, session *model.Session) error
}

func (m *mockAuthService) SignUp(ctx context.Context, name, email, password string) (string, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, name, email, password)
	}
	return "verifier", nil
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.Tokens, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return &model.Tokens{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func (m *mockAuthService) LoginURL() (string, string, error) {
	if m.loginURLFn != nil {
		return m.loginURLFn()
	}
	return "https://auth.example.com/authorize", "verifier", nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code, verifier string) (*model.Tokens, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code, verifier)
	}
	return &model.Tokens{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if m.requestPasswordResetFn != nil {
		return m.requestPasswordResetFn(ctx, email)
	}
	return "verifier", nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, session *model.Session, password string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, session, password)
	}
	return nil
}

func (m *mockAuthService) ChangeEmail(ctx context.Context, session *model.Session, email string) error {
	if m.changeEmailFn != nil {
		return m.changeEmailFn(ctx, session, email)
	}
	return nil
}

func (m *mockAuthService) Logout(ctx context.Context, session *model.Session) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, session)
	}
	return nil
}

// mockProfileEditor はProfileEditorInterfaceのテスト用モック。
type mockProfileEditor struct {
	updateFn func(ctx context.Context, session *model.Session, currentAvatarURL string, input profile.EditInput) error
}

func (m *mockProfileEditor) Update(ctx context.Context, session *model.Session, currentAvatarURL string, input profile.EditInput) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, session, currentAvatarURL, input)
	}
	return nil
}

// mockResolver はアクセストークンが"valid-token"の場合のみセッションを返す。
type mockResolver struct{}

func (mockResolver) Resolve(_ context.Context, tokens model.Tokens) (*model.Session, *model.Tokens) {
	if tokens.AccessToken != testAccessToken {
		return nil, nil
	}
	return &model.Session{
		UserID:       testUserID,
		Email:        testEmail,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// mockProfileFinder はProfileFinderのテスト用モック。
type mockProfileFinder struct {
	profile *model.Profile
}

func (m *mockProfileFinder) FindByID(_ context.Context, id string) (*model.Profile, error) {
	if m.profile == nil || m.profile.ID != id {
		return nil, nil
	}
	p := *m.profile
	return &p, nil
}

// passReconciler は受け取ったプロフィールをそのまま返す。
type passReconciler struct{}

func (passReconciler) Reconcile(_ context.Context, _ *model.Session, p *model.Profile) *model.Profile {
	return p
}

// mockHealthChecker はHealthCheckerのテスト用モック。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error {
	return m.err
}

// --- テスト用ルーター ---

const (
	testAccessToken = "valid-token"
	testUserID      = "user-1"
	testEmail       = "taro@example.com"
	testCSRFToken   = "test-csrf-token"
	testAvatarMax   = 2 << 20
)

type testEnv struct {
	auth     *mockAuthService
	editor   *mockProfileEditor
	profiles *mockProfileFinder
	health   *mockHealthChecker
	runner   *form.Runner
	router   http.Handler
}

// newTestEnv はモックを差し込んだルーターを構築する。
// authServiceがnilの場合はmockAuthServiceを使う。
func newTestEnv(t *testing.T, authService AuthServiceInterface) *testEnv {
	t.Helper()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	env := &testEnv{
		auth:   &mockAuthService{},
		editor: &mockProfileEditor{},
		profiles: &mockProfileFinder{profile: &model.Profile{
			ID:        testUserID,
			Email:     testEmail,
			Name:      "山田太郎",
			Introduce: "よろしくお願いします",
		}},
		health: &mockHealthChecker{},
		runner: form.NewRunner(nil),
	}
	if authService == nil {
		authService = env.auth
	}

	cookie := middleware.CookieConfig{}
	h := NewHandler(authService, env.editor, env.runner, renderer, HandlerConfig{
		Cookie:         cookie,
		AvatarMaxBytes: testAvatarMax,
	})

	env.router = NewRouter(&RouterDeps{
		Session: middleware.SessionConfig{
			Resolver:   mockResolver{},
			Profiles:   env.profiles,
			Reconciler: passReconciler{},
			Cookie:     cookie,
		},
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Handler:       h,
		HealthChecker: env.health,
	})
	return env
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// newGetRequest はGETリクエストを生成する。loggedInがtrueの場合はセッションCookieを付ける。
func newGetRequest(path string, loggedIn bool) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if loggedIn {
		req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: testAccessToken})
	}
	return req
}

// newFormRequest はCSRFトークン付きのフォーム送信リクエストを生成する。
func newFormRequest(path string, values url.Values, loggedIn bool) *http.Request {
	if values == nil {
		values = url.Values{}
	}
	values.Set(middleware.CSRFFieldName, testCSRFToken)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	if loggedIn {
		req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: testAccessToken})
	}
	return req
}

// responseCookie はレスポンスのSet-Cookieから指定名のCookieを返す。
func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- HTML検査ヘルパー ---

func parseHTML(t *testing.T, w *httptest.ResponseRecorder) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(w.Body.String()))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

// findByID はid属性が一致する要素を返す。
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent は要素配下のテキストを連結して返す。
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// messageOf はページの#message要素のテキストを返す。
func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return textContent(findByID(parseHTML(t, w), "message"))
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
