package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/api/health": true,
}

// Auth returns middleware that validates the shared API token. The token is
// accepted from Authorization: Bearer, the X-Portal-Token header, or a
// ?token= query parameter (used by WebSocket clients that cannot set
// headers). An empty configured token disables authentication.
func Auth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if !tokenMatches(r, token) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"ok":false,"error":"unauthorized"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenMatches checks all accepted credential locations using a
// constant-time comparison.
func tokenMatches(r *http.Request, token string) bool {
	candidates := make([]string, 0, 3)

	if auth := r.Header.Get("Authorization"); auth != "" {
		if bearer := strings.TrimPrefix(auth, "Bearer "); bearer != auth {
			candidates = append(candidates, bearer)
		}
	}
	if v := r.Header.Get("X-Portal-Token"); v != "" {
		candidates = append(candidates, v)
	}
	if v := r.URL.Query().Get("token"); v != "" {
		candidates = append(candidates, v)
	}

	for _, c := range candidates {
		if subtle.ConstantTimeCompare([]byte(c), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
