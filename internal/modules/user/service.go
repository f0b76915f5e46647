package user

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for user-related business logic.
type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	// UpdateUser activates or deactivates a user. Inactive users cannot sign in.
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error)
}
