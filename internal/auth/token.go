package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/retina-portal/internal/domain"
)

// TokenManager handles issuing and validating JWT session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Claims describes JWT payload.
type Claims struct {
	Identity string          `json:"sub"`
	UserType domain.UserType `json:"user_type"`
	jwt.RegisteredClaims
}

// GenerateSession builds and signs a session for the identity.
func (tm *TokenManager) GenerateSession(identity string, userType domain.UserType) (*domain.Session, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	tokenID := uuid.NewString()

	claims := &Claims{
		Identity: identity,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		Token:     tokenString,
		TokenID:   tokenID,
		Identity:  identity,
		UserType:  userType,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
