// Package auth verifies Supabase-issued JWTs and exposes the authenticated
// user to request handlers and tools.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// User is the authenticated principal extracted from a verified token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

var (
	// ErrMissingToken indicates no bearer token was supplied.
	ErrMissingToken = errors.New("auth: missing bearer token")
	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Verifier validates HS256 tokens signed with a shared secret. Supabase
// access tokens carry the "authenticated" audience.
type Verifier struct {
	secret   []byte
	audience string
}

// NewVerifier builds a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: "authenticated"}
}

// Verify parses and validates the raw token and returns the user it names.
func (v *Verifier) Verify(raw string) (User, error) {
	if raw == "" {
		return User{}, ErrMissingToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience(v.audience))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return User{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return User{ID: sub, Email: email, Role: role}, nil
}
