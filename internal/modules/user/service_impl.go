package user

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/materialive/internal/apperr"
)

const (
	minPINLength = 4
	maxPINLength = 12
)

type service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// NormalizeUsername returns the stored form of a username.
func NormalizeUsername(username string) string {
	return strings.ToUpper(strings.TrimSpace(username))
}

func (s *service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	username := NormalizeUsername(req.Username)
	if username == "" {
		return nil, apperr.InvalidInput("username is required")
	}
	if !req.Role.Valid() {
		return nil, apperr.InvalidInput("invalid role %q", req.Role)
	}
	if err := validatePIN(req.PIN); err != nil {
		return nil, err
	}

	hashedPIN, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:        uuid.New(),
		Username:  username,
		FullName:  strings.TrimSpace(req.FullName),
		PINHash:   string(hashedPIN),
		Role:      req.Role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error) {
	if req.Active == nil {
		return nil, apperr.InvalidInput("active is required")
	}
	if err := s.repo.SetActive(ctx, id, *req.Active); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func validatePIN(pin string) error {
	if len(pin) < minPINLength || len(pin) > maxPINLength {
		return apperr.InvalidInput("pin must be %d to %d digits", minPINLength, maxPINLength)
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return apperr.InvalidInput("pin must contain digits only")
		}
	}
	return nil
}
