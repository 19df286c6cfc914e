package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role value that grants access to mutating routes.
const RoleAdmin = 1

// Claims is the bearer token payload issued by the sign-in collaborator.
type Claims struct {
	ID    string `json:"id"`
	Role  int    `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for principal p, valid for ttl.
// Used by the token command to mint development credentials.
func IssueToken(key []byte, p Principal, ttl time.Duration) (string, error) {
	if p.ID == "" {
		return "", errors.New("principal id required")
	}

	now := time.Now()
	claims := Claims{
		ID:    p.ID,
		Role:  p.Role,
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature and expiry and returns the principal.
// Any failure maps to ErrInvalidToken so callers cannot probe which check failed.
func ParseToken(key []byte, tokenString string) (Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.ID == "" {
		return Principal{}, ErrInvalidToken
	}

	return Principal{ID: claims.ID, Role: claims.Role, Email: claims.Email}, nil
}
