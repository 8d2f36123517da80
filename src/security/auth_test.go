package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret-which-is-long-enough")

	token, err := svc.GenerateToken("42")
	require.NoError(t, err)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", userID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-one-which-is-long-enough!").GenerateToken("42")
	require.NoError(t, err)

	_, err = NewAuthService("secret-two-which-is-long-enough!").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService("test-secret-which-is-long-enough")
	_, err := svc.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := NewAuthService("test-secret-which-is-long-enough")
	a, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	b, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHashing(t *testing.T) {
	svc := NewAuthService("test-secret-which-is-long-enough")
	hash, err := svc.HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)
	assert.NoError(t, svc.CompareHashAndPassword(hash, "hunter2hunter2"))
	assert.Error(t, svc.CompareHashAndPassword(hash, "wrong"))
}
