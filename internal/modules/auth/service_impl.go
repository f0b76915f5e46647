package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/modules/user"
)

type service struct {
	userRepo user.Repository
	tokens   *TokenManager
	revoker  Revoker
	log      *zap.Logger
}

// NewService creates a new auth service.
func NewService(userRepo user.Repository, tokens *TokenManager, revoker Revoker, log *zap.Logger) Service {
	if revoker == nil {
		revoker = NopRevoker{}
	}
	return &service{userRepo: userRepo, tokens: tokens, revoker: revoker, log: log}
}

func (s *service) Login(ctx context.Context, username, pin string) (*LoginResult, error) {
	u, err := s.userRepo.GetByUsername(ctx, user.NormalizeUsername(username))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.Unauthorized("account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PINHash), []byte(pin)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	tokenString, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("failed to record last login", zap.String("username", u.Username), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}

	s.log.Info("user logged in", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return &LoginResult{Token: tokenString, ExpiresAt: expiresAt, User: u}, nil
}

func (s *service) Logout(ctx context.Context, p Principal) error {
	if p.TokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, p.TokenID, time.Until(p.ExpiresAt))
}

func (s *service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	p, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, p.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, apperr.Unauthorized("token has been revoked")
	}
	return p, nil
}
