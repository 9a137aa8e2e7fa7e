package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager(testSecret, "tourledger")

	t.Run("Access token round trip", func(t *testing.T) {
		token, err := tm.GenerateAccessToken("user-7", "guide", "g-42", []string{"guide"}, time.Minute)
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-7", claims.ActorID())
		assert.Equal(t, "guide", claims.OwnerType)
		assert.Equal(t, "g-42", claims.OwnerID)
		assert.Equal(t, TokenTypeAccess, claims.Type)
		assert.True(t, claims.HasRole("guide"))
		assert.False(t, claims.HasRole("finance"))
	})

	t.Run("Service token", func(t *testing.T) {
		token, err := tm.GenerateServiceToken("payment-gateway", []string{"system"}, time.Minute)
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeService, claims.Type)
		assert.True(t, claims.HasRole("system"))
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := tm.GenerateServiceToken("cron", nil, -time.Minute)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", "tourledger")
		token, err := other.GenerateServiceToken("cron", nil, time.Minute)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong issuer", func(t *testing.T) {
		other := NewTokenManager(testSecret, "someone-else")
		token, err := other.GenerateServiceToken("cron", nil, time.Minute)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
