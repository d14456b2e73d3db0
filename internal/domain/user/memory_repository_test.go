package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkvault/userstore/internal/domain/shared"
)

func newTestUser(t *testing.T, username string) *User {
	t.Helper()

	u, err := NewUser(username)
	require.NoError(t, err)
	return u
}

func TestMemoryRepository_Create(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	t.Run("round-trips all fields", func(t *testing.T) {
		u := newTestUser(t, "alice")
		u.Email = "alice@example.com"
		u.AddLogin(Login{Provider: "google", Key: "g-1"})
		u.AddClaim(Claim{Type: "scope", Value: "read"})
		u.AddRole("Admin")

		require.NoError(t, repo.Create(ctx, u))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.Username, got.Username)
		assert.Equal(t, u.Email, got.Email)
		assert.Equal(t, u.Logins, got.Logins)
		assert.Equal(t, u.Claims, got.Claims)
		assert.Equal(t, u.Roles, got.Roles)
		assert.Equal(t, u.SecurityStamp, got.SecurityStamp)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		u := newTestUser(t, "bob")
		require.NoError(t, repo.Create(ctx, u))

		err := repo.Create(ctx, u)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeAlreadyExists))
	})

	t.Run("nil user rejected", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidInput))
	})
}

func TestMemoryRepository_Replace(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	t.Run("full overwrite, not a merge", func(t *testing.T) {
		u := newTestUser(t, "carol")
		u.AddClaim(Claim{Type: "scope", Value: "read"})
		require.NoError(t, repo.Create(ctx, u))

		u.RemoveClaim(Claim{Type: "scope", Value: "read"})
		u.AddClaim(Claim{Type: "scope", Value: "write"})

		previous, err := repo.Replace(ctx, u)
		require.NoError(t, err)
		require.NotNil(t, previous)
		assert.Equal(t, "read", previous.Claims[0].Value)

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, got.Claims, 1)
		assert.Equal(t, "write", got.Claims[0].Value)
	})

	t.Run("bumps version on success", func(t *testing.T) {
		u := newTestUser(t, "dave")
		require.NoError(t, repo.Create(ctx, u))
		require.Equal(t, int64(0), u.Version)

		_, err := repo.Replace(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.Version)

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		u := newTestUser(t, "erin")
		require.NoError(t, repo.Create(ctx, u))

		stale := u.Clone()

		_, err := repo.Replace(ctx, u)
		require.NoError(t, err)

		_, err = repo.Replace(ctx, stale)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeConflict))
	})

	t.Run("missing document is not found", func(t *testing.T) {
		ghost := newTestUser(t, "ghost")

		_, err := repo.Replace(ctx, ghost)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeNotFound))
	})
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	t.Run("removes the document", func(t *testing.T) {
		u := newTestUser(t, "frank")
		require.NoError(t, repo.Create(ctx, u))

		require.NoError(t, repo.Delete(ctx, u.ID))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("absent document is a no-op", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, NewUserID()))
	})
}

func TestMemoryRepository_Lookups(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u := newTestUser(t, "Grace")
	u.Email = "grace@example.com"
	u.AddLogin(Login{Provider: "github", Key: "gh-42"})
	require.NoError(t, repo.Create(ctx, u))

	t.Run("by username is case-sensitive", func(t *testing.T) {
		got, err := repo.GetByUsername(ctx, "Grace")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)

		got, err = repo.GetByUsername(ctx, "grace")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("by email", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "grace@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("by login requires both provider and key to match", func(t *testing.T) {
		got, err := repo.GetByLogin(ctx, "github", "gh-42")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)

		got, err = repo.GetByLogin(ctx, "github", "gh-43")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.GetByLogin(ctx, "google", "gh-42")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("login lookup follows persist state", func(t *testing.T) {
		u.RemoveLogin(Login{Provider: "github", Key: "gh-42"})
		_, err := repo.Replace(ctx, u)
		require.NoError(t, err)

		got, err := repo.GetByLogin(ctx, "github", "gh-42")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("malformed id rejected", func(t *testing.T) {
		_, err := repo.GetByID(ctx, UserID("not-a-uuid"))
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidInput))
	})

	t.Run("stored documents are isolated from callers", func(t *testing.T) {
		first, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)

		first.Username = "mutated"

		second, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Grace", second.Username)
	})
}
