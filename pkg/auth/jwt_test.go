package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestNewAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken(7, "ana@example.com", RoleTraveler, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.Sub)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, RoleTraveler, claims.Role)
}

func TestParseRejects(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewAccessToken(7, "ana@example.com", RoleTraveler, testSecret, time.Hour)
		require.NoError(t, err)
		_, err = Parse(token, "other")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := NewAccessToken(7, "ana@example.com", RoleTraveler, testSecret, -time.Minute)
		require.NoError(t, err)
		_, err = Parse(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := NewAccessToken(0, "ana@example.com", RoleTraveler, testSecret, time.Hour)
		require.NoError(t, err)
		_, err = Parse(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Parse("not-a-token", testSecret)
		assert.Error(t, err)
	})
}
