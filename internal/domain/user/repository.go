package user

import (
	"context"
)

// Repository defines the interface for user persistence operations.
// Lookups return a nil user when nothing matched; absence is not an error.
type Repository interface {
	// Create inserts a new user document. Fails with ALREADY_EXISTS when
	// the identifier is already taken.
	Create(ctx context.Context, u *User) error

	// Replace overwrites the stored document with the given aggregate,
	// conditioned on the version the aggregate was read at. On success the
	// aggregate's version is bumped and the previous document is returned.
	// Fails with CONFLICT on version mismatch and NOT_FOUND when the
	// document no longer exists.
	Replace(ctx context.Context, u *User) (*User, error)

	// Delete removes a user document by ID. Deleting an absent document
	// is a no-op.
	Delete(ctx context.Context, id UserID) error

	// GetByID retrieves a user by ID. Fails with INVALID_INPUT when the
	// identifier is malformed.
	GetByID(ctx context.Context, id UserID) (*User, error)

	// GetByUsername retrieves a user by exact, case-sensitive username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by exact email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByLogin retrieves the user holding the (provider, key) login pair
	GetByLogin(ctx context.Context, provider, key string) (*User, error)
}
