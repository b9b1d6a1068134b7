package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AdminTokenHeader carries the operator token for admin endpoints
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth returns middleware that requires the configured admin token.
// With an empty token the admin endpoints are disabled.
func AdminAuth(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusForbidden, "admin endpoints are disabled")
				return
			}

			provided := r.Header.Get(AdminTokenHeader)
			if provided == "" {
				writeError(w, http.StatusUnauthorized, "admin token required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				writeError(w, http.StatusForbidden, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}
