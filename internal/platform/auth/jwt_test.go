package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "s3cret", AccessTokenTTL: time.Hour})

	token, err := svc.GenerateAccessToken("user_1", "org_1", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "org_1", claims.OrganizationID)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService(config.JWTConfig{Secret: "a", AccessTokenTTL: time.Hour}).
		GenerateAccessToken("user_1", "org_1", "admin")
	require.NoError(t, err)

	_, err = NewTokenService(config.JWTConfig{Secret: "b"}).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "s3cret", AccessTokenTTL: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.GenerateAccessToken("user_1", "org_1", "admin")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService(config.JWTConfig{}).GenerateAccessToken("u", "o", "admin")
	assert.Error(t, err)
}
