package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("should create user with id and security stamp", func(t *testing.T) {
		u, err := NewUser("alice")

		require.NoError(t, err)
		assert.False(t, u.ID.IsEmpty())
		assert.Equal(t, "alice", u.Username)
		assert.NotEmpty(t, u.SecurityStamp)
		assert.Equal(t, int64(0), u.Version)
		assert.Zero(t, u.AccessFailed)
	})

	t.Run("should reject empty username", func(t *testing.T) {
		_, err := NewUser("")
		require.Error(t, err)
	})
}

func TestUser_Logins(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	login := Login{Provider: "google", Key: "g-123"}

	t.Run("add is idempotent", func(t *testing.T) {
		assert.True(t, u.AddLogin(login))
		assert.False(t, u.AddLogin(login))
		assert.Len(t, u.Logins, 1)
	})

	t.Run("different key is a distinct login", func(t *testing.T) {
		assert.True(t, u.AddLogin(Login{Provider: "google", Key: "g-456"}))
		assert.Len(t, u.Logins, 2)
	})

	t.Run("remove deletes matching entry", func(t *testing.T) {
		u.RemoveLogin(login)
		assert.False(t, u.HasLogin(login))
		assert.Len(t, u.Logins, 1)
	})

	t.Run("remove on absent login is a no-op", func(t *testing.T) {
		before := len(u.Logins)
		u.RemoveLogin(Login{Provider: "github", Key: "nope"})
		assert.Len(t, u.Logins, before)
	})
}

func TestUser_Claims(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	claim := Claim{Type: "scope", Value: "read"}

	t.Run("add is idempotent", func(t *testing.T) {
		assert.True(t, u.AddClaim(claim))
		assert.False(t, u.AddClaim(claim))
		assert.Len(t, u.Claims, 1)
	})

	t.Run("same type different value is distinct", func(t *testing.T) {
		assert.True(t, u.AddClaim(Claim{Type: "scope", Value: "write"}))
		assert.Len(t, u.Claims, 2)
	})

	t.Run("remove matches both type and value", func(t *testing.T) {
		u.RemoveClaim(Claim{Type: "scope", Value: "write"})
		assert.Len(t, u.Claims, 1)
		assert.Equal(t, "read", u.Claims[0].Value)
	})

	t.Run("remove on absent claim is a no-op", func(t *testing.T) {
		u.RemoveClaim(Claim{Type: "missing", Value: "x"})
		assert.Len(t, u.Claims, 1)
	})
}

func TestUser_Roles(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	t.Run("membership is case-insensitive", func(t *testing.T) {
		assert.True(t, u.AddRole("Admin"))
		assert.True(t, u.IsInRole("admin"))
		assert.True(t, u.IsInRole("ADMIN"))
	})

	t.Run("case-variant duplicates are rejected", func(t *testing.T) {
		assert.False(t, u.AddRole("ADMIN"))
		assert.False(t, u.AddRole("admin"))
		assert.Len(t, u.Roles, 1)
	})

	t.Run("remove matches any casing", func(t *testing.T) {
		u.RemoveRole("aDmIn")
		assert.False(t, u.IsInRole("Admin"))
		assert.Empty(t, u.Roles)
	})

	t.Run("remove on absent role is a no-op", func(t *testing.T) {
		u.RemoveRole("ghost")
		assert.Empty(t, u.Roles)
	})
}

func TestUser_AccessFailedCount(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	assert.Equal(t, 1, u.IncrementAccessFailedCount())
	assert.Equal(t, 2, u.IncrementAccessFailedCount())

	u.ResetAccessFailedCount()
	assert.Zero(t, u.AccessFailed)
}

func TestUser_Lockout(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	now := time.Now().UTC()

	t.Run("not locked out without lockout end", func(t *testing.T) {
		u.LockoutEnabled = true
		assert.False(t, u.IsLockedOut(now))
	})

	t.Run("locked out until end timestamp", func(t *testing.T) {
		u.LockUntil(now.Add(10 * time.Minute))
		assert.True(t, u.IsLockedOut(now))
		assert.Zero(t, u.AccessFailed)
		assert.False(t, u.IsLockedOut(now.Add(11*time.Minute)))
	})

	t.Run("disabled lockout never locks", func(t *testing.T) {
		u.LockoutEnabled = false
		assert.False(t, u.IsLockedOut(now))
	})
}

func TestUser_Password(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	t.Run("no password set", func(t *testing.T) {
		assert.False(t, u.HasPassword())
		assert.False(t, u.VerifyPassword("anything"))
	})

	t.Run("set and verify", func(t *testing.T) {
		require.NoError(t, u.SetPassword("secret123"))
		assert.True(t, u.HasPassword())
		assert.True(t, u.VerifyPassword("secret123"))
		assert.False(t, u.VerifyPassword("wrong"))
	})

	t.Run("too short password rejected", func(t *testing.T) {
		require.Error(t, u.SetPassword("abc"))
	})

	t.Run("set password rotates security stamp", func(t *testing.T) {
		before := u.SecurityStamp
		require.NoError(t, u.SetPassword("secret456"))
		assert.NotEqual(t, before, u.SecurityStamp)
	})
}

func TestUser_Clone(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	u.AddLogin(Login{Provider: "google", Key: "g-1"})
	u.AddClaim(Claim{Type: "scope", Value: "read"})
	u.AddRole("Admin")
	end := time.Now().Add(time.Hour)
	u.LockoutEnd = &end

	clone := u.Clone()

	clone.AddLogin(Login{Provider: "github", Key: "gh-1"})
	clone.RemoveRole("Admin")
	*clone.LockoutEnd = clone.LockoutEnd.Add(time.Hour)

	assert.Len(t, u.Logins, 1)
	assert.True(t, u.IsInRole("Admin"))
	assert.Equal(t, end, *u.LockoutEnd)
}

func TestParseUserID(t *testing.T) {
	t.Run("valid uuid", func(t *testing.T) {
		id := NewUserID()
		parsed, err := ParseUserID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
	})

	t.Run("malformed id rejected", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
	})
}
