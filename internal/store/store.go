package store

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"go.uber.org/zap"

	"github.com/arkvault/userstore/internal/domain/shared"
	"github.com/arkvault/userstore/internal/domain/user"
	"github.com/arkvault/userstore/pkg/logger"
)

// EventPublisher publishes domain events after successful persistence.
// *cqrs.EventBus from watermill satisfies this.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Store implements UserStore on top of a user.Repository. Attribute
// mutators only touch the in-memory aggregate; callers persist explicitly
// through Create/Replace/Delete.
type Store struct {
	repo     user.Repository
	events   EventPublisher
	logger   *logger.Logger
	disposed atomic.Bool
}

// NewStore creates a new store handle. events may be nil when no event
// transport is wired.
func NewStore(repo user.Repository, events EventPublisher, log *logger.Logger) *Store {
	return &Store{
		repo:   repo,
		events: events,
		logger: log.WithComponent("userstore"),
	}
}

// Close marks the handle disposed. Every subsequent operation fails with
// DISPOSED. Close is idempotent.
func (s *Store) Close() error {
	s.disposed.Store(true)
	return nil
}

// guard runs the synchronous pre-storage checks shared by every operation
func (s *Store) guard(u *user.User) error {
	if s.disposed.Load() {
		return shared.ErrDisposed()
	}
	if u == nil {
		return shared.ErrInvalidInput("user reference is required")
	}
	return nil
}

func (s *Store) checkDisposed() error {
	if s.disposed.Load() {
		return shared.ErrDisposed()
	}
	return nil
}

// Create inserts the aggregate as a new document
func (s *Store) Create(ctx context.Context, u *user.User) error {
	if err := s.guard(u); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return err
	}

	s.publish(ctx, user.UserCreatedEvent{
		UserID:    u.ID.String(),
		Username:  u.Username,
		Version:   u.Version,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// Replace overwrites the stored document with the in-memory aggregate.
// The published update event carries a JSON merge patch of the change.
func (s *Store) Replace(ctx context.Context, u *user.User) error {
	if err := s.guard(u); err != nil {
		return err
	}

	previous, err := s.repo.Replace(ctx, u)
	if err != nil {
		return err
	}

	s.publish(ctx, user.UserUpdatedEvent{
		UserID:    u.ID.String(),
		Version:   u.Version,
		Changes:   s.mergePatch(previous, u),
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// Delete removes the aggregate's document
func (s *Store) Delete(ctx context.Context, u *user.User) error {
	if err := s.guard(u); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return err
	}

	s.publish(ctx, user.UserDeletedEvent{
		UserID:    u.ID.String(),
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// FindByID looks up a user by raw identifier string
func (s *Store) FindByID(ctx context.Context, id string) (*user.User, error) {
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}

	uid, err := user.ParseUserID(id)
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, uid)
}

// FindByUsername looks up a user by exact username
func (s *Store) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}

	return s.repo.GetByUsername(ctx, username)
}

// FindByEmail looks up a user by exact email
func (s *Store) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}

	return s.repo.GetByEmail(ctx, email)
}

// FindByLogin looks up the user holding the (provider, key) login pair
func (s *Store) FindByLogin(ctx context.Context, provider, key string) (*user.User, error) {
	if err := s.checkDisposed(); err != nil {
		return nil, err
	}

	return s.repo.GetByLogin(ctx, provider, key)
}

// Credential capability

func (s *Store) SetPasswordHash(u *user.User, hash string) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (s *Store) GetPasswordHash(u *user.User) (string, error) {
	if err := s.guard(u); err != nil {
		return "", err
	}
	return u.PasswordHash, nil
}

func (s *Store) HasPassword(u *user.User) (bool, error) {
	if err := s.guard(u); err != nil {
		return false, err
	}
	return u.HasPassword(), nil
}

func (s *Store) SetSecurityStamp(u *user.User, stamp string) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.SecurityStamp = stamp
	return nil
}

func (s *Store) GetSecurityStamp(u *user.User) (string, error) {
	if err := s.guard(u); err != nil {
		return "", err
	}
	return u.SecurityStamp, nil
}

// Contact capability

func (s *Store) SetEmail(u *user.User, email string) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.Email = email
	return nil
}

func (s *Store) GetEmail(u *user.User) (string, error) {
	if err := s.guard(u); err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *Store) SetEmailConfirmed(u *user.User, confirmed bool) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.EmailConfirmed = confirmed
	return nil
}

func (s *Store) IsEmailConfirmed(u *user.User) (bool, error) {
	if err := s.guard(u); err != nil {
		return false, err
	}
	return u.EmailConfirmed, nil
}

func (s *Store) SetPhoneNumber(u *user.User, phone string) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.PhoneNumber = phone
	return nil
}

func (s *Store) GetPhoneNumber(u *user.User) (string, error) {
	if err := s.guard(u); err != nil {
		return "", err
	}
	return u.PhoneNumber, nil
}

func (s *Store) SetPhoneConfirmed(u *user.User, confirmed bool) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.PhoneConfirmed = confirmed
	return nil
}

func (s *Store) IsPhoneConfirmed(u *user.User) (bool, error) {
	if err := s.guard(u); err != nil {
		return false, err
	}
	return u.PhoneConfirmed, nil
}

// Lockout capability

func (s *Store) GetLockoutEnd(u *user.User) (*time.Time, error) {
	if err := s.guard(u); err != nil {
		return nil, err
	}
	return u.LockoutEnd, nil
}

func (s *Store) SetLockoutEnd(u *user.User, end *time.Time) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.LockoutEnd = end
	return nil
}

func (s *Store) GetLockoutEnabled(u *user.User) (bool, error) {
	if err := s.guard(u); err != nil {
		return false, err
	}
	return u.LockoutEnabled, nil
}

func (s *Store) SetLockoutEnabled(u *user.User, enabled bool) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.LockoutEnabled = enabled
	return nil
}

func (s *Store) IncrementAccessFailedCount(u *user.User) (int, error) {
	if err := s.guard(u); err != nil {
		return 0, err
	}
	return u.IncrementAccessFailedCount(), nil
}

func (s *Store) ResetAccessFailedCount(u *user.User) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.ResetAccessFailedCount()
	return nil
}

func (s *Store) GetAccessFailedCount(u *user.User) (int, error) {
	if err := s.guard(u); err != nil {
		return 0, err
	}
	return u.AccessFailed, nil
}

// Two-factor capability

func (s *Store) SetTwoFactorEnabled(u *user.User, enabled bool) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.TwoFactorEnabled = enabled
	return nil
}

func (s *Store) GetTwoFactorEnabled(u *user.User) (bool, error) {
	if err := s.guard(u); err != nil {
		return false, err
	}
	return u.TwoFactorEnabled, nil
}

// Login capability

func (s *Store) AddLogin(u *user.User, login user.Login) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.AddLogin(login)
	return nil
}

func (s *Store) RemoveLogin(u *user.User, login user.Login) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.RemoveLogin(login)
	return nil
}

func (s *Store) GetLogins(u *user.User) ([]user.Login, error) {
	if err := s.guard(u); err != nil {
		return nil, err
	}
	return append([]user.Login(nil), u.Logins...), nil
}

// Claim capability

func (s *Store) AddClaim(u *user.User, claim user.Claim) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.AddClaim(claim)
	return nil
}

func (s *Store) RemoveClaim(u *user.User, claim user.Claim) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.RemoveClaim(claim)
	return nil
}

func (s *Store) GetClaims(u *user.User) ([]user.Claim, error) {
	if err := s.guard(u); err != nil {
		return nil, err
	}
	return append([]user.Claim(nil), u.Claims...), nil
}

// Role capability

func (s *Store) AddToRole(u *user.User, role string) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.AddRole(role)
	return nil
}

func (s *Store) RemoveFromRole(u *user.User, role string) error {
	if err := s.guard(u); err != nil {
		return err
	}
	u.RemoveRole(role)
	return nil
}

func (s *Store) GetRoles(u *user.User) ([]string, error) {
	if err := s.guard(u); err != nil {
		return nil, err
	}
	return append([]string(nil), u.Roles...), nil
}

func (s *Store) IsInRole(u *user.User, role string) (bool, error) {
	if err := s.guard(u); err != nil {
		return false, err
	}
	return u.IsInRole(role), nil
}

// publish sends a domain event. Publish failures are logged, never
// surfaced: persistence already succeeded.
func (s *Store) publish(ctx context.Context, event any) {
	if s.events == nil {
		return
	}

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish user event", zap.Error(err))
	}
}

// mergePatch computes a JSON merge patch between the previous and current
// document. Returns nil when the patch cannot be computed; the event is
// still useful without it.
func (s *Store) mergePatch(previous, current *user.User) json.RawMessage {
	if previous == nil {
		return nil
	}

	previousJSON, err := json.Marshal(previous)
	if err != nil {
		return nil
	}
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil
	}

	patch, err := jsonpatch.CreateMergePatch(previousJSON, currentJSON)
	if err != nil {
		s.logger.Debug("Failed to compute user change patch", zap.Error(err))
		return nil
	}

	return patch
}
