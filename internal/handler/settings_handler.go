package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hitoshi/profilehub/internal/auth"
	"github.com/hitoshi/profilehub/internal/form"
	"github.com/hitoshi/profilehub/internal/middleware"
	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/profile"
	"github.com/hitoshi/profilehub/internal/viewstate"
)

// ProfilePage はプロフィール編集画面を表示する。
// GET /settings/profile
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	view := viewstate.FromContext(r.Context()).Read()
	data := &PageData{
		Title:  "プロフィール",
		Busy:   h.busy(r, "profile"),
		Values: map[string]string{"name": view.Name, "introduce": view.Introduce},
	}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageSettingsProfile, data)
}

// UpdateProfile はプロフィール編集フォームを処理する。
// POST /settings/profile (multipart/form-data)
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	introduce := r.PostFormValue("introduce")

	data := &PageData{
		Title:  "プロフィール",
		Values: map[string]string{"name": name, "introduce": introduce},
	}

	avatar, err := readUpload(r, "avatar", h.config.AvatarMaxBytes)
	if err != nil {
		data.Errors = form.FieldErrors{"avatar": form.MsgAvatarRequired}
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, pageSettingsProfile, data)
		return
	}
	if errs := form.ValidateProfile(name, avatar, h.config.AvatarMaxBytes); errs.Has() {
		data.Errors = errs
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, pageSettingsProfile, data)
		return
	}

	session := middleware.SessionFromContext(r.Context())
	current := viewstate.FromContext(r.Context()).Read().AvatarURL
	outcome := h.run(r, "profile", msgProfileUpdated, func(ctx context.Context) error {
		return h.profiles.Update(ctx, session, current, profile.EditInput{
			Name:      name,
			Introduce: introduce,
			Avatar:    avatar,
		})
	})
	if outcome.OK() {
		h.redirectWithFlash(w, r, "/settings/profile", outcome)
		return
	}
	applyOutcome(data, outcome)
	h.renderer.Render(w, r, http.StatusOK, pageSettingsProfile, data)
}

// readUpload はmultipartのファイルフィールドを読み込む。
// ファイルが選択されていない場合はnilを返す。
// 上限を超えるファイルは上限+1バイトまでしか読まない。
func readUpload(r *http.Request, field string, maxBytes int64) (*model.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}

	size := int64(len(data))
	if header.Size > size {
		size = header.Size
	}
	return &model.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        size,
		Data:        data,
	}, nil
}

// EmailPage はメールアドレス変更画面を表示する。
// GET /settings/email
func (h *Handler) EmailPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "メールアドレス変更", Busy: h.busy(r, "email")}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageSettingsEmail, data)
}

// ChangeEmail はメールアドレス変更を依頼し、ログアウトしてログイン画面へ移動する。
// POST /settings/email
func (h *Handler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))

	data := &PageData{Title: "メールアドレス変更", Values: map[string]string{"email": email}}
	if errs := form.ValidateEmail(email); errs.Has() {
		data.Errors = errs
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, pageSettingsEmail, data)
		return
	}

	session := middleware.SessionFromContext(r.Context())
	outcome := h.run(r, "email", msgConfirmationSent, func(ctx context.Context) error {
		return h.auth.ChangeEmail(ctx, session, email)
	})
	if outcome.OK() {
		middleware.ClearTokenCookies(w, h.config.Cookie)
		h.redirectWithFlash(w, r, auth.LoginPath, outcome)
		return
	}
	applyOutcome(data, outcome)
	h.renderer.Render(w, r, http.StatusOK, pageSettingsEmail, data)
}

// PasswordPage はパスワード変更画面を表示する。
// GET /settings/password
func (h *Handler) PasswordPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "パスワード変更", Busy: h.busy(r, "password")}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageSettingsPassword, data)
}

// ChangePassword はパスワード変更フォームを処理する。
// POST /settings/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	h.changePassword(w, r, "パスワード変更", pageSettingsPassword)
}

// changePassword はパスワード変更と再設定で共通の処理。
// 成功時は同じ画面へリダイレクトしてViewModelを再構築させる。
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request, title, page string) {
	password := r.PostFormValue("password")
	confirmation := r.PostFormValue("confirmation")

	data := &PageData{Title: title}
	if errs := form.ValidatePasswordPair(password, confirmation); errs.Has() {
		data.Errors = errs
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, page, data)
		return
	}

	session := middleware.SessionFromContext(r.Context())
	outcome := h.run(r, "password", msgPasswordUpdated, func(ctx context.Context) error {
		return h.auth.ChangePassword(ctx, session, password)
	})
	if outcome.OK() {
		h.redirectWithFlash(w, r, r.URL.Path, outcome)
		return
	}
	applyOutcome(data, outcome)
	h.renderer.Render(w, r, http.StatusOK, page, data)
}

// LogoutPage はログアウト確認画面を表示する。
// GET /settings/logout
func (h *Handler) LogoutPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "ログアウト", Busy: h.busy(r, "logout")}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageSettingsLogout, data)
}

// Logout はログアウトしてトップページへ移動する。
// POST /settings/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	outcome := h.run(r, "logout", "", func(ctx context.Context) error {
		return h.auth.Logout(ctx, session)
	})
	if outcome.OK() {
		middleware.ClearTokenCookies(w, h.config.Cookie)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := &PageData{Title: "ログアウト"}
	applyOutcome(data, outcome)
	h.renderer.Render(w, r, http.StatusOK, pageSettingsLogout, data)
}
