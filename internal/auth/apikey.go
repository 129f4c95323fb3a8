// Package auth provides API key middleware for the HTTP API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader is the header carrying the API key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey validates the request's API key against a single configured
// key. An empty configured key disables the check (development mode).
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if provided == "" {
				http.Error(w, "missing API key", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminKey validates the request's API key against the admin key.
// Unlike RequireAPIKey, an unconfigured admin key locks the routes out
// entirely: admin operations must never be open by accident.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				http.Error(w, "admin API key not configured", http.StatusForbidden)
				return
			}

			provided := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				http.Error(w, "invalid admin API key", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
