package user

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/arkvault/userstore/internal/domain/shared"
)

// setupTestMongo creates a MongoDB repository against a throwaway collection
func setupTestMongo(t *testing.T) (*MongoRepository, func()) {
	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		t.Skip("MONGO_URL environment variable not set, skipping MongoDB integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	require.NoError(t, err, "Failed to connect to MongoDB")

	err = client.Ping(ctx, readpref.Primary())
	require.NoError(t, err, "Failed to ping MongoDB")

	db := client.Database("userstore_test")
	repo := NewMongoRepository(db, "users_"+t.Name())

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Collection("users_" + t.Name()).Drop(ctx)
		_ = client.Disconnect(ctx)
	}

	return repo, cleanup
}

func TestMongoRepository_CreateAndGet(t *testing.T) {
	repo, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("should return nil when user does not exist", func(t *testing.T) {
		result, err := repo.GetByID(ctx, NewUserID())

		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("should round-trip all fields", func(t *testing.T) {
		u := newTestUser(t, "mongo-alice")
		u.Email = "mongo-alice@example.com"
		u.PhoneNumber = "+15550100"
		require.NoError(t, u.SetPassword("secret123"))
		u.AddLogin(Login{Provider: "google", Key: "g-mongo-1"})
		u.AddClaim(Claim{Type: "scope", Value: "read"})
		u.AddRole("Admin")
		u.LockoutEnabled = true

		require.NoError(t, repo.Create(ctx, u))

		result, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, u.ID, result.ID)
		assert.Equal(t, u.Username, result.Username)
		assert.Equal(t, u.Email, result.Email)
		assert.Equal(t, u.PasswordHash, result.PasswordHash)
		assert.Equal(t, u.SecurityStamp, result.SecurityStamp)
		assert.Equal(t, u.Logins, result.Logins)
		assert.Equal(t, u.Claims, result.Claims)
		assert.Equal(t, u.Roles, result.Roles)
		assert.True(t, result.LockoutEnabled)
	})

	t.Run("should reject duplicate id", func(t *testing.T) {
		u := newTestUser(t, "mongo-bob")
		require.NoError(t, repo.Create(ctx, u))

		err := repo.Create(ctx, u)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeAlreadyExists))
	})
}

func TestMongoRepository_Replace(t *testing.T) {
	repo, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("should overwrite document and return previous", func(t *testing.T) {
		u := newTestUser(t, "mongo-carol")
		u.AddClaim(Claim{Type: "scope", Value: "read"})
		require.NoError(t, repo.Create(ctx, u))

		u.RemoveClaim(Claim{Type: "scope", Value: "read"})
		u.AddClaim(Claim{Type: "scope", Value: "write"})

		previous, err := repo.Replace(ctx, u)
		require.NoError(t, err)
		require.NotNil(t, previous)
		assert.Equal(t, "read", previous.Claims[0].Value)
		assert.Equal(t, int64(1), u.Version)

		result, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, result.Claims, 1)
		assert.Equal(t, "write", result.Claims[0].Value)
	})

	t.Run("should conflict on stale version", func(t *testing.T) {
		u := newTestUser(t, "mongo-dave")
		require.NoError(t, repo.Create(ctx, u))

		stale := u.Clone()
		_, err := repo.Replace(ctx, u)
		require.NoError(t, err)

		_, err = repo.Replace(ctx, stale)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeConflict))
	})

	t.Run("should report missing document as not found", func(t *testing.T) {
		ghost := newTestUser(t, "mongo-ghost")

		_, err := repo.Replace(ctx, ghost)
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeNotFound))
	})
}

func TestMongoRepository_Lookups(t *testing.T) {
	repo, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()

	u := newTestUser(t, "Mongo-Erin")
	u.Email = "mongo-erin@example.com"
	u.AddLogin(Login{Provider: "github", Key: "gh-mongo-7"})
	require.NoError(t, repo.Create(ctx, u))

	t.Run("by username is case-sensitive", func(t *testing.T) {
		result, err := repo.GetByUsername(ctx, "Mongo-Erin")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, u.ID, result.ID)

		result, err = repo.GetByUsername(ctx, "mongo-erin")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("by email", func(t *testing.T) {
		result, err := repo.GetByEmail(ctx, "mongo-erin@example.com")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, u.ID, result.ID)
	})

	t.Run("by login requires both fields in one element", func(t *testing.T) {
		result, err := repo.GetByLogin(ctx, "github", "gh-mongo-7")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, u.ID, result.ID)

		result, err = repo.GetByLogin(ctx, "github", "wrong-key")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("login lookup follows persist state", func(t *testing.T) {
		u.RemoveLogin(Login{Provider: "github", Key: "gh-mongo-7"})
		_, err := repo.Replace(ctx, u)
		require.NoError(t, err)

		result, err := repo.GetByLogin(ctx, "github", "gh-mongo-7")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("malformed id rejected", func(t *testing.T) {
		_, err := repo.GetByID(ctx, UserID("not-a-uuid"))
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidInput))
	})
}

func TestMongoRepository_Delete(t *testing.T) {
	repo, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("should remove document", func(t *testing.T) {
		u := newTestUser(t, "mongo-frank")
		require.NoError(t, repo.Create(ctx, u))

		require.NoError(t, repo.Delete(ctx, u.ID))

		result, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("absent document is a no-op", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, NewUserID()))
	})
}
