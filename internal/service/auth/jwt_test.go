package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palettekit/palette-api/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewVerifier_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("valid token yields owner id", func(t *testing.T) {
		t.Parallel()
		owner := uuid.New()
		token := signToken(t, testSecret, owner.String(), time.Now().Add(time.Hour))

		got, err := verifier.VerifyToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, owner, got)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, testSecret, uuid.New().String(), time.Now().Add(-time.Hour))

		_, err := verifier.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, "ffffffffffffffffffffffffffffffff", uuid.New().String(),
			time.Now().Add(time.Hour))

		_, err := verifier.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, testSecret, "not-a-uuid", time.Now().Add(time.Hour))

		_, err := verifier.VerifyToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		_, err := verifier.VerifyToken(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()
		_, err := verifier.VerifyToken(ctx, "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestVerifyToken_ClockSkewTolerated(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)

	// Expired one minute ago, within the two-minute leeway.
	token := signToken(t, testSecret, uuid.New().String(), time.Now().Add(-time.Minute))

	_, err = verifier.VerifyToken(context.Background(), token)
	assert.NoError(t, err)
}
