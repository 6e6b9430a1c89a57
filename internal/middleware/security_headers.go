package middleware

import (
	"net/http"
	"strings"
)

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// imageOriginsはCSPのimg-srcに追加するオリジン（アバター画像の配信元）。
func NewSecurityHeadersMiddleware(imageOrigins ...string) func(next http.Handler) http.Handler {
	imgSrc := strings.Join(append([]string{"'self'", "data:"}, imageOrigins...), " ")
	csp := "default-src 'self'; img-src " + imgSrc + "; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
