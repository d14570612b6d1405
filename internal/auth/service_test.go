package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thecueroom/backend/internal/models"
)

func TestGenerateTokenForUser(t *testing.T) {
	secret := []byte("test-secret")
	svc := NewService(secret)

	user := &models.User{
		ID:       "user-123",
		Email:    "dj@example.com",
		Username: "djtest",
		IsAdmin:  true,
	}

	resp, err := svc.GenerateTokenForUser(user)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "user-123", resp.User.ID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), resp.ExpiresAt, time.Minute)

	// Parse the token back and verify claims
	token, err := jwt.Parse(resp.Token, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "dj@example.com", claims["email"])
	assert.Equal(t, "djtest", claims["username"])
	assert.Equal(t, true, claims["is_admin"])
}

func TestTokenSignedWithWrongSecretRejected(t *testing.T) {
	svc := NewService([]byte("secret-a"))
	other := NewService([]byte("secret-b"))

	resp, err := svc.GenerateTokenForUser(&models.User{ID: "user-1", Username: "u"})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.Token)
	assert.Error(t, err)
}
