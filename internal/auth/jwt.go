package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/foodlink-service/internal/apperror"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity encoded in a bearer token
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// TokenManager issues and verifies HS256 bearer tokens with a shared secret
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager initializes a token manager
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate signs a token for the given user that expires after the configured TTL
func (m *TokenManager) Generate(userID, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID:   userID,
		Username: username,
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Parse verifies the signature and expiry and returns the embedded claims.
// Every failure wraps apperror.ErrNotAuthenticated.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", apperror.ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("invalid token: %w", apperror.ErrNotAuthenticated)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: %w", apperror.ErrNotAuthenticated)
	}
	return claims, nil
}
