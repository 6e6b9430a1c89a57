package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/profilehub/internal/model"
)

// ErrorResponseBody はJSONエンドポイントのエラーレスポンス。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusByCategory はエラーカテゴリに対応するHTTPステータス。
var statusByCategory = map[string]int{
	"auth":       http.StatusUnauthorized,
	"validation": http.StatusUnprocessableEntity,
	"profile":    http.StatusNotFound,
}

// StatusForError はAPIErrorのカテゴリからHTTPステータスを決める。未知のカテゴリは500。
func StatusForError(apiErr *model.APIError) int {
	if status, ok := statusByCategory[apiErr.Category]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteAPIError はAPIErrorをJSONで書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(StatusForError(apiErr))

	body := ErrorResponseBody(*apiErr)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write error response", slog.String("error", err.Error()))
	}
}

// WriteUnauthorized は未ログインのリクエストに401を返す。
func WriteUnauthorized(w http.ResponseWriter) {
	WriteAPIError(w, model.NewUnauthorizedError())
}

// WriteInternalServerError は500を返す。詳細はログのみに記録する。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError())
}
