// Package middleware holds the chi middleware shared by all routes.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/modules/auth"
	"github.com/georgemunganga/materialive/internal/modules/user"
	"github.com/georgemunganga/materialive/internal/web"
)

// SyncKeyHeader carries the pre-shared key of the sync agent.
const SyncKeyHeader = "X-Sync-Key"

type requestInfoKey struct{}

// requestInfo is filled in by inner middleware so Logger can report it.
type requestInfo struct {
	username string
}

// Logger logs one line per request at a level chosen by status code.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("ip", r.RemoteAddr),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}
			if info.username != "" {
				fields = append(fields, zap.String("username", info.username))
			}

			switch {
			case status >= 500:
				logger.Error("Server error", fields...)
			case status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request", fields...)
			}
		})
	}
}

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// Authenticate requires a valid bearer token and stores the principal in the
// request context.
func Authenticate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ""
			if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
			if tokenString == "" {
				web.Error(w, apperr.Unauthorized("authorization is required"))
				return
			}

			p, err := authn.Authenticate(r.Context(), tokenString)
			if err != nil {
				web.Error(w, err)
				return
			}

			if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
				info.username = p.Username
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), *p)))
		})
	}
}

// RequireRole rejects principals whose role is not listed.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				web.Error(w, apperr.Unauthorized("authorization is required"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			web.Error(w, apperr.Forbidden("role %s may not access this resource", p.Role))
		})
	}
}

// SyncKey admits only requests presenting the pre-shared sync key.
func SyncKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(SyncKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				web.Error(w, apperr.Unauthorized("invalid sync key"))
				return
			}
			if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
				info.username = "sync-agent"
			}
			next.ServeHTTP(w, r)
		})
	}
}
