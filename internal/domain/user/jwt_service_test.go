package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", "userstore-test", time.Hour)

	u, err := NewUser("token-alice")
	require.NoError(t, err)

	t.Run("should round-trip claims", func(t *testing.T) {
		token, err := svc.GenerateToken(u)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.UserID)
		assert.Equal(t, u.Username, claims.Username)
		assert.Equal(t, u.SecurityStamp, claims.SecurityStamp)
		assert.Equal(t, "userstore-test", claims.Issuer)
		assert.Equal(t, u.ID.String(), claims.Subject)
	})

	t.Run("should reject token signed with another key", func(t *testing.T) {
		other := NewJWTService("other-secret", "userstore-test", time.Hour)
		token, err := other.GenerateToken(u)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("should reject expired token", func(t *testing.T) {
		expired := NewJWTService("test-secret", "userstore-test", -time.Minute)
		token, err := expired.GenerateToken(u)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("should reject garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.Error(t, err)
	})

	t.Run("token carries the stamp at issuance time", func(t *testing.T) {
		token, err := svc.GenerateToken(u)
		require.NoError(t, err)

		u.RotateSecurityStamp()

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.NotEqual(t, u.SecurityStamp, claims.SecurityStamp)
	})
}
