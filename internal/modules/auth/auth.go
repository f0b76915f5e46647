package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/modules/user"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, username, pin string) (*LoginResult, error)
	Logout(ctx context.Context, p Principal) error
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequireWriter fails with Forbidden unless the principal may mutate
// staging records.
func (p Principal) RequireWriter() error {
	if !p.Role.CanWrite() {
		return apperr.Forbidden("role %s is read-only", p.Role)
	}
	return nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

// LoginRequest is the payload for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
