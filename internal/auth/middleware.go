// Package auth enforces the static API-key credential on incoming
// requests. The key is injected configuration, not process-wide state.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

const headerName = "X-API-Key"

// Config carries the expected credential.
type Config struct {
	APIKey string
}

// Middleware rejects requests that do not present the configured key.
type Middleware struct {
	key     []byte
	skipper func(*http.Request) bool
}

// NewMiddleware constructs Middleware. Health and metrics endpoints are
// exempt so probes and scrapers need no credential.
func NewMiddleware(cfg Config) Middleware {
	skipper := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	}
	return Middleware{key: []byte(cfg.APIKey), skipper: skipper}
}

// Wrap attaches API-key handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		presented := []byte(r.Header.Get(headerName))
		if subtle.ConstantTimeCompare(presented, m.key) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"type":   "unauthorized",
				"detail": "missing or invalid API key",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
