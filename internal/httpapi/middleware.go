package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey type for context keys to avoid collisions.
type ContextKey string

// ClientIDKey is the context key for the authenticated client ID.
const ClientIDKey ContextKey = "client_id"

// Middleware provides the admin API's HTTP middleware.
type Middleware struct {
	jwtAuth *JWTAuth
	noAuth  bool // development mode: bypass authentication
	log     zerolog.Logger
}

// NewMiddleware creates a middleware instance.
func NewMiddleware(jwtAuth *JWTAuth, noAuth bool, log zerolog.Logger) *Middleware {
	return &Middleware{jwtAuth: jwtAuth, noAuth: noAuth, log: log}
}

// AuthRequired requires a valid bearer token unless no-auth mode is on.
func (m *Middleware) AuthRequired(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.noAuth {
			ctx := context.WithValue(r.Context(), ClientIDKey, "dev-client")
			next(w, r.WithContext(ctx))
			return
		}

		token := r.Header.Get("Authorization")
		if token == "" {
			m.writeError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		claims, err := m.jwtAuth.ValidateToken(token)
		if err != nil {
			m.writeError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClientIDKey, claims.ClientID)
		next(w, r.WithContext(ctx))
	}
}

// Recovery converts handler panics into a 500 response.
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				m.writeError(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Logging logs one line per request.
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		m.log.Info().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).Msg("request")
	})
}

// CORS sets permissive cross-origin headers and answers preflight
// requests. The API is reachable from local dashboards only; origin
// restriction is left to the network.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ContentType sets the JSON content type on all responses.
func (m *Middleware) ContentType(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	})
}

func (m *Middleware) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
