package user

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arkvault/userstore/internal/domain/shared"
)

// RedisRepository implements Repository using Redis JSON documents with
// secondary indexes for username, email and login lookups
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis JSON-based user repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// Create inserts a new user document
func (r *RedisRepository) Create(ctx context.Context, u *User) error {
	if u == nil {
		return shared.ErrInvalidInput("user cannot be nil")
	}

	key := userKey(u.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := r.readDocument(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return shared.ErrAlreadyExists("user")
		}

		jsonBytes, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("failed to serialize user: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.JSONSet(ctx, key, "$", string(jsonBytes))
			r.updateUserIndices(ctx, pipe, u)
			return nil
		})

		return err
	}, key)

	return shared.ClassifyStoreError(err)
}

// Replace overwrites the stored document, conditioned on the version the
// aggregate was read at. The previous document is returned so callers can
// diff it against the new one.
func (r *RedisRepository) Replace(ctx context.Context, u *User) (*User, error) {
	if u == nil {
		return nil, shared.ErrInvalidInput("user cannot be nil")
	}

	key := userKey(u.ID)
	var previous *User

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.readDocument(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return shared.ErrNotFound("user")
		}
		if current.Version != u.Version {
			return shared.ErrConflict("user")
		}

		next := u.Clone()
		next.Version = u.Version + 1

		jsonBytes, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to serialize user: %w", err)
		}

		// Index values may have changed, so old entries are removed
		// before the new ones are written.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			r.cleanupUserIndices(ctx, pipe, current)
			pipe.JSONSet(ctx, key, "$", string(jsonBytes))
			r.updateUserIndices(ctx, pipe, next)
			return nil
		})
		if err != nil {
			return err
		}

		previous = current
		u.Version = next.Version
		return nil
	}, key)

	if err != nil {
		return nil, shared.ClassifyStoreError(err)
	}

	return previous, nil
}

// Delete removes a user document and its index entries. Deleting an absent
// document is a no-op.
func (r *RedisRepository) Delete(ctx context.Context, id UserID) error {
	key := userKey(id)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.readDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.JSONDel(ctx, key, "$")
			r.cleanupUserIndices(ctx, pipe, current)
			return nil
		})

		return err
	}, key)

	return shared.ClassifyStoreError(err)
}

// GetByID retrieves a user by ID
func (r *RedisRepository) GetByID(ctx context.Context, id UserID) (*User, error) {
	if _, err := ParseUserID(id.String()); err != nil {
		return nil, err
	}

	u, err := r.readDocument(ctx, r.client, id)
	if err != nil {
		return nil, shared.ClassifyStoreError(err)
	}

	return u, nil
}

// GetByUsername retrieves a user through the username index
func (r *RedisRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, shared.ErrInvalidInput("username cannot be empty")
	}

	return r.getByIndex(ctx, usernameIndexKey(username))
}

// GetByEmail retrieves a user through the email index
func (r *RedisRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, shared.ErrInvalidInput("email cannot be empty")
	}

	return r.getByIndex(ctx, emailIndexKey(email))
}

// GetByLogin retrieves the user holding the (provider, key) login pair
func (r *RedisRepository) GetByLogin(ctx context.Context, provider, key string) (*User, error) {
	if provider == "" || key == "" {
		return nil, shared.ErrInvalidInput("login provider and key cannot be empty")
	}

	return r.getByIndex(ctx, loginIndexKey(Login{Provider: provider, Key: key}))
}

func (r *RedisRepository) getByIndex(ctx context.Context, indexKey string) (*User, error) {
	id, err := r.client.Get(ctx, indexKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, shared.ClassifyStoreError(err)
	}

	u, err := r.readDocument(ctx, r.client, UserID(id))
	if err != nil {
		return nil, shared.ClassifyStoreError(err)
	}

	return u, nil
}

// jsonCmdable covers both the plain client and transactional contexts
type jsonCmdable interface {
	JSONGet(ctx context.Context, key string, paths ...string) *redis.JSONCmd
}

// readDocument fetches and decodes the JSON document at user:<id>.
// Returns nil without error when the document does not exist.
func (r *RedisRepository) readDocument(ctx context.Context, c jsonCmdable, id UserID) (*User, error) {
	jsonData, err := c.JSONGet(ctx, userKey(id), "$").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if jsonData == "" || jsonData == "null" {
		return nil, nil
	}

	// JSON.GET with a path returns an array of matches
	var jsonArray []json.RawMessage
	if err := json.Unmarshal([]byte(jsonData), &jsonArray); err != nil {
		return nil, fmt.Errorf("failed to parse JSON array from Redis: %w", err)
	}

	if len(jsonArray) == 0 {
		return nil, nil
	}

	u := &User{}
	if err := json.Unmarshal(jsonArray[0], u); err != nil {
		return nil, fmt.Errorf("failed to deserialize user: %w", err)
	}

	return u, nil
}

// updateUserIndices writes secondary index entries for the document
func (r *RedisRepository) updateUserIndices(ctx context.Context, pipe redis.Pipeliner, u *User) {
	if u.Username != "" {
		pipe.Set(ctx, usernameIndexKey(u.Username), u.ID.String(), 0)
	}
	if u.Email != "" {
		pipe.Set(ctx, emailIndexKey(u.Email), u.ID.String(), 0)
	}
	for _, l := range u.Logins {
		pipe.Set(ctx, loginIndexKey(l), u.ID.String(), 0)
	}
}

// cleanupUserIndices removes secondary index entries for the document
func (r *RedisRepository) cleanupUserIndices(ctx context.Context, pipe redis.Pipeliner, u *User) {
	if u.Username != "" {
		pipe.Del(ctx, usernameIndexKey(u.Username))
	}
	if u.Email != "" {
		pipe.Del(ctx, emailIndexKey(u.Email))
	}
	for _, l := range u.Logins {
		pipe.Del(ctx, loginIndexKey(l))
	}
}

func userKey(id UserID) string {
	return fmt.Sprintf("user:%s", id.String())
}

func usernameIndexKey(username string) string {
	return fmt.Sprintf("idx:user:username:%s", username)
}

func emailIndexKey(email string) string {
	return fmt.Sprintf("idx:user:email:%s", email)
}

func loginIndexKey(l Login) string {
	return fmt.Sprintf("idx:user:login:%s:%s", l.Provider, l.Key)
}
