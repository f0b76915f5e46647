package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/modules/user"
)

// Claims is the JWT payload. The role travels in the token so requests can
// be authorized without a session lookup.
type Claims struct {
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	jwt.StandardClaims
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

// Issue signs a token for u.
func (m *TokenManager) Issue(u *user.User) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(m.ttl)
	claims := &Claims{
		Username: u.Username,
		Role:     u.Role,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   u.ID.String(),
			Issuer:    m.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: expirationTime.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expirationTime, nil
}

// Parse verifies tokenString and returns the principal it carries.
func (m *TokenManager) Parse(tokenString string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, apperr.Unauthorized("invalid token issuer")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Unauthorized("invalid token subject")
	}
	if !claims.Role.Valid() {
		return nil, apperr.Unauthorized("invalid token role")
	}

	return &Principal{
		UserID:    userID,
		Username:  claims.Username,
		Role:      claims.Role,
		TokenID:   claims.Id,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}
