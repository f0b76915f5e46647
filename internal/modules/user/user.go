package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is the permission tier of a warehouse user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleWarehouse Role = "warehouse"
	RoleField     Role = "field"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleWarehouse, RoleField:
		return true
	}
	return false
}

// CanWrite reports whether r may stage material or confirm deliveries.
// The field role is read-only.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleWarehouse
}

// User is a person who signs in with a username and numeric PIN.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	PINHash     string     `json:"-"`
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateUserRequest is the payload for adding a user.
type CreateUserRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	PIN      string `json:"pin"`
	Role     Role   `json:"role"`
}

// UpdateUserRequest is the payload for PATCH /api/v1/users/{id}.
type UpdateUserRequest struct {
	Active *bool `json:"active"`
}

// Repository defines user storage.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
