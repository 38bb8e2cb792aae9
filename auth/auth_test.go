package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-signing-key"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func TestVerifyValidToken(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub":   "user-123",
		"email": "pat@example.com",
		"role":  "authenticated",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	user, err := NewVerifier(testSecret).Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, "pat@example.com", user.Email)
	assert.Equal(t, "authenticated", user.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub": "user-123",
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewVerifier("other-secret").Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub": "user-123",
		"aud": "authenticated",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := NewVerifier(testSecret).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub": "user-123",
		"aud": "anon",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewVerifier(testSecret).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingSub(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewVerifier(testSecret).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmptyToken(t *testing.T) {
	_, err := NewVerifier(testSecret).Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}
