package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	config := JWTConfig{SecretKey: "test-secret", Issuer: "braindump-backend"}

	generator, err := NewJWTGenerator(config, time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(config)
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "user@example.com")
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	generator, err := NewJWTGenerator(JWTConfig{SecretKey: "secret-a"}, time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "secret-b"})
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	generator, err := NewJWTGenerator(JWTConfig{SecretKey: "s", Issuer: "other"}, time.Hour)
	require.NoError(t, err)
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "s", Issuer: "braindump-backend"})
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateTokenMissing(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: "s"})
	require.NoError(t, err)

	_, err = validator.ValidateToken("   ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user-1", Email: "u@example.com"})

	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "user-1", UserIDFromContext(ctx))

	assert.Empty(t, UserIDFromContext(context.Background()))
}

func TestKeyedRateLimiter(t *testing.T) {
	limiter := NewKeyedRateLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("ip-1"))
	}
	assert.False(t, limiter.Allow("ip-1"))
	assert.True(t, limiter.Allow("ip-2"))
}
