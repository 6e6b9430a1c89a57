package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/profilehub/internal/model"
)

type mockStatusRecorder struct {
	codes []int
}

func (m *mockStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.codes = append(m.codes, statusCode)
}

// serveLogged はハンドラーをロギングミドルウェア経由で実行し、出力されたログ1行を返す。
func serveLogged(t *testing.T, req *http.Request, recorder StatusRecorder, h http.HandlerFunc) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewLoggingMiddleware(logger, recorder)(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	entry := serveLogged(t, httptest.NewRequest(http.MethodGet, "/settings/profile", nil), nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		})

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "GET" || entry["path"] != "/settings/profile" {
		t.Errorf("method/path = %v %v", entry["method"], entry["path"])
	}
	// Writeのみの場合は200
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if entry["bytes"] != float64(5) {
		t.Errorf("bytes = %v, want 5", entry["bytes"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v", entry["duration_ms"])
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("user_id should be omitted for anonymous requests")
	}
}

func TestLoggingMiddleware_UserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithSession(req.Context(), &model.Session{UserID: "user-1"}))

	entry := serveLogged(t, req, nil, func(w http.ResponseWriter, r *http.Request) {})

	if entry["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", entry["user_id"])
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusSeeOther, "INFO"},
		{http.StatusUnprocessableEntity, "WARN"},
		{http.StatusForbidden, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			recorder := &mockStatusRecorder{}
			entry := serveLogged(t, httptest.NewRequest(http.MethodPost, "/settings/password", nil), recorder,
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					// 2回目のWriteHeaderは無視される
					w.WriteHeader(http.StatusTeapot)
				})

			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if len(recorder.codes) != 1 || recorder.codes[0] != tt.status {
				t.Errorf("recorded = %v, want [%d]", recorder.codes, tt.status)
			}
		})
	}
}
