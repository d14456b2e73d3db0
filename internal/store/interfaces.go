// Package store exposes the user aggregate store behind narrow capability
// interfaces. A deployment composes only the capabilities it needs instead
// of depending on one monolithic contract.
package store

import (
	"context"
	"time"

	"github.com/arkvault/userstore/internal/domain/user"
)

// CredentialStore covers password hash and security stamp access
type CredentialStore interface {
	SetPasswordHash(u *user.User, hash string) error
	GetPasswordHash(u *user.User) (string, error)
	HasPassword(u *user.User) (bool, error)
	SetSecurityStamp(u *user.User, stamp string) error
	GetSecurityStamp(u *user.User) (string, error)
}

// ContactStore covers email and phone attributes with their verification flags
type ContactStore interface {
	SetEmail(u *user.User, email string) error
	GetEmail(u *user.User) (string, error)
	SetEmailConfirmed(u *user.User, confirmed bool) error
	IsEmailConfirmed(u *user.User) (bool, error)
	SetPhoneNumber(u *user.User, phone string) error
	GetPhoneNumber(u *user.User) (string, error)
	SetPhoneConfirmed(u *user.User, confirmed bool) error
	IsPhoneConfirmed(u *user.User) (bool, error)
}

// LockoutStore covers the lockout window and the failed access counter
type LockoutStore interface {
	GetLockoutEnd(u *user.User) (*time.Time, error)
	SetLockoutEnd(u *user.User, end *time.Time) error
	GetLockoutEnabled(u *user.User) (bool, error)
	SetLockoutEnabled(u *user.User, enabled bool) error
	IncrementAccessFailedCount(u *user.User) (int, error)
	ResetAccessFailedCount(u *user.User) error
	GetAccessFailedCount(u *user.User) (int, error)
}

// TwoFactorStore covers the two-factor flag
type TwoFactorStore interface {
	SetTwoFactorEnabled(u *user.User, enabled bool) error
	GetTwoFactorEnabled(u *user.User) (bool, error)
}

// LoginStore covers external identity provider bindings
type LoginStore interface {
	AddLogin(u *user.User, login user.Login) error
	RemoveLogin(u *user.User, login user.Login) error
	GetLogins(u *user.User) ([]user.Login, error)
	FindByLogin(ctx context.Context, provider, key string) (*user.User, error)
}

// ClaimStore covers (type, value) claim assertions
type ClaimStore interface {
	AddClaim(u *user.User, claim user.Claim) error
	RemoveClaim(u *user.User, claim user.Claim) error
	GetClaims(u *user.User) ([]user.Claim, error)
}

// RoleStore covers the case-insensitive role set
type RoleStore interface {
	AddToRole(u *user.User, role string) error
	RemoveFromRole(u *user.User, role string) error
	GetRoles(u *user.User) ([]string, error)
	IsInRole(u *user.User, role string) (bool, error)
}

// UserStore is the full contract: all capability groups plus document
// lifecycle and lookup operations. The handle is a scoped resource; after
// Close every operation fails with DISPOSED.
type UserStore interface {
	CredentialStore
	ContactStore
	LockoutStore
	TwoFactorStore
	LoginStore
	ClaimStore
	RoleStore

	Create(ctx context.Context, u *user.User) error
	Replace(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)

	Close() error
}

var _ UserStore = (*Store)(nil)
