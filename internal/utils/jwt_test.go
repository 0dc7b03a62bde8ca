package utils

import (
	"testing"
	"time"

	"brokebuy/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseToken(t *testing.T) {
	claims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Role:             models.RoleAdmin,
	}
	token, err := SignToken(claims, "secret", time.Hour)
	require.NoError(t, err)

	parsed, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.UserID())
	assert.True(t, parsed.IsAdmin())

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseToken_Rejects(t *testing.T) {
	expired := models.UserClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := SignToken(expired, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, "secret")
	assert.Error(t, err)

	noExpiry, err := SignToken(models.UserClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}, "secret", 0)
	require.NoError(t, err)
	_, err = ParseToken(noExpiry, "secret")
	assert.Error(t, err)

	noSubject, err := SignToken(models.UserClaims{}, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(noSubject, "secret")
	assert.Error(t, err)

	_, err = ParseToken("not-a-token", "secret")
	assert.Error(t, err)
}
