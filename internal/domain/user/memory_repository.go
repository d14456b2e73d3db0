package user

import (
	"context"
	"sync"

	"github.com/arkvault/userstore/internal/domain/shared"
)

// MemoryRepository implements Repository with an in-process map. It keeps
// the same semantics as the production backends, including version checks,
// and backs unit tests and embedded deployments.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryRepository creates a new in-memory user repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]*User),
	}
}

// Create inserts a new user document
func (r *MemoryRepository) Create(ctx context.Context, u *User) error {
	if u == nil {
		return shared.ErrInvalidInput("user cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[u.ID.String()]; exists {
		return shared.ErrAlreadyExists("user")
	}

	r.users[u.ID.String()] = u.Clone()
	return nil
}

// Replace overwrites the stored document conditioned on the read version
func (r *MemoryRepository) Replace(ctx context.Context, u *User) (*User, error) {
	if u == nil {
		return nil, shared.ErrInvalidInput("user cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.users[u.ID.String()]
	if !exists {
		return nil, shared.ErrNotFound("user")
	}
	if current.Version != u.Version {
		return nil, shared.ErrConflict("user")
	}

	next := u.Clone()
	next.Version = u.Version + 1
	r.users[u.ID.String()] = next

	u.Version = next.Version
	return current, nil
}

// Delete removes a user document. Absent documents are a no-op.
func (r *MemoryRepository) Delete(ctx context.Context, id UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id.String())
	return nil
}

// GetByID retrieves a user by ID
func (r *MemoryRepository) GetByID(ctx context.Context, id UserID) (*User, error) {
	if _, err := ParseUserID(id.String()); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, exists := r.users[id.String()]; exists {
		return u.Clone(), nil
	}

	return nil, nil
}

// GetByUsername retrieves a user by exact username
func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, shared.ErrInvalidInput("username cannot be empty")
	}

	return r.findFirst(func(u *User) bool {
		return u.Username == username
	}), nil
}

// GetByEmail retrieves a user by exact email
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, shared.ErrInvalidInput("email cannot be empty")
	}

	return r.findFirst(func(u *User) bool {
		return u.Email == email
	}), nil
}

// GetByLogin retrieves the user holding the (provider, key) login pair
func (r *MemoryRepository) GetByLogin(ctx context.Context, provider, key string) (*User, error) {
	if provider == "" || key == "" {
		return nil, shared.ErrInvalidInput("login provider and key cannot be empty")
	}

	return r.findFirst(func(u *User) bool {
		return u.HasLogin(Login{Provider: provider, Key: key})
	}), nil
}

func (r *MemoryRepository) findFirst(match func(*User) bool) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return u.Clone()
		}
	}

	return nil
}
