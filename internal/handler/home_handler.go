package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/profilehub/internal/middleware"
	"github.com/hitoshi/profilehub/internal/viewstate"
)

// Home はトップページを表示する。
// GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "ホーム"}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageHome, data)
}

// Me はログイン中のユーザーのViewModelをJSONで返す。
// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromContext(r.Context()) == nil {
		middleware.WriteUnauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(viewstate.FromContext(r.Context()).Read()); err != nil {
		slog.Error("failed to encode view model", slog.String("error", err.Error()))
	}
}

// NewHealthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := checker.PingContext(r.Context()); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
