package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/hitoshi/profilehub/internal/form"
	"github.com/hitoshi/profilehub/internal/middleware"
	"github.com/hitoshi/profilehub/internal/viewstate"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// defaultAvatar はアバター未設定時に表示する画像。
const defaultAvatar = "/static/default.svg"

// ページ名（テンプレートファイル名）
const (
	pageHome                 = "home.html"
	pageSignUp               = "signup.html"
	pageLogin                = "login.html"
	pageResetPassword        = "reset_password.html"
	pageResetPasswordConfirm = "reset_password_confirm.html"
	pageSettingsProfile      = "settings_profile.html"
	pageSettingsEmail        = "settings_email.html"
	pageSettingsPassword     = "settings_password.html"
	pageSettingsLogout       = "settings_logout.html"
)

// 共通テンプレート（全ページで読み込む）
var sharedTemplates = []string{"templates/layout.html", "templates/password_form.html"}

type navItem struct {
	Name string
	Href string
}

var settingsNav = []navItem{
	{Name: "プロフィール", Href: "/settings/profile"},
	{Name: "メールアドレス", Href: "/settings/email"},
	{Name: "パスワード", Href: "/settings/password"},
	{Name: "ログアウト", Href: "/settings/logout"},
}

type submitButton struct {
	Busy  bool
	Label string
}

var templateFuncs = template.FuncMap{
	"avatar": func(url string) string {
		if url == "" {
			return defaultAvatar
		}
		return url
	},
	"settingsNav": func() []navItem { return settingsNav },
	"submit": func(busy bool, label string) submitButton {
		return submitButton{Busy: busy, Label: label}
	},
}

// PageData はテンプレートに渡す値。
type PageData struct {
	Title     string
	Path      string
	User      viewstate.ViewModel
	LoggedIn  bool
	CSRFToken string
	Message   string
	Failed    bool // Messageがエラーかどうか
	Busy      bool // 同じフォームの送信が処理中
	Errors    form.FieldErrors
	Values    map[string]string
}

// Renderer はページテンプレートを描画する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートを読み込んでRendererを生成する。
func NewRenderer() (*Renderer, error) {
	pageFiles, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	shared := make(map[string]bool, len(sharedTemplates))
	for _, f := range sharedTemplates {
		shared[f] = true
	}

	pages := make(map[string]*template.Template)
	for _, f := range pageFiles {
		if shared[f] {
			continue
		}
		patterns := append(append([]string{}, sharedTemplates...), f)
		tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", f, err)
		}
		pages[f[len("templates/"):]] = tmpl
	}

	return &Renderer{pages: pages}, nil
}

// Render はページを描画する。ViewModelとCSRFトークンはリクエストコンテキストから補う。
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data *PageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		slog.Error("template not found", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	data.Path = r.URL.Path
	data.User = viewstate.FromContext(ctx).Read()
	data.LoggedIn = middleware.SessionFromContext(ctx) != nil
	data.CSRFToken = middleware.CSRFTokenFromContext(ctx)
	if data.Values == nil {
		data.Values = map[string]string{}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// staticHandler は埋め込み静的ファイルを配信するハンドラーを返す。
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
