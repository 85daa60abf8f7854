package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken("u-1", "ana@example.com", []string{"stock"})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.HasRole("stock"))
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("one"))
	validator := NewJWTService(DefaultJWTConfig("two"))

	token, _, err := issuer.GenerateAccessToken("u-1", "", nil)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken("u-1", "", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
