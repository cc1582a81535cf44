package jwt

import (
	"testing"
	"time"

	"campusconnect/backend/internal/config"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfig(t *testing.T, secret string, ttl time.Duration) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTSecret: secret, TokenTTL: ttl}
	t.Cleanup(func() { config.AppConfig = prev })
}

func TestRoundTrip(t *testing.T) {
	useConfig(t, "test-secret", time.Hour)

	token, err := GenerateToken(42)
	require.NoError(t, err)

	userID, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestRejectsForeignSecret(t *testing.T) {
	useConfig(t, "one", time.Hour)
	token, err := GenerateToken(1)
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "two"
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsExpired(t *testing.T) {
	useConfig(t, "s", -time.Minute)
	token, err := GenerateToken(1)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsOtherAlgorithms(t *testing.T) {
	useConfig(t, "s", time.Hour)
	token := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
