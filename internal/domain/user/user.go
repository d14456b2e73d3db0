package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/arkvault/userstore/internal/domain/shared"
)

// UserID represents a unique user identifier
type UserID shared.ID

// NewUserID creates a new user ID
func NewUserID() UserID {
	return UserID(shared.NewID())
}

// ParseUserID validates a raw identifier string
func ParseUserID(raw string) (UserID, error) {
	id, err := shared.ParseID(raw)
	if err != nil {
		return "", err
	}
	return UserID(id), nil
}

// String returns string representation
func (id UserID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id UserID) IsEmpty() bool {
	return string(id) == ""
}

// Login represents an external identity provider binding
type Login struct {
	Provider string `json:"provider" bson:"provider"`
	Key      string `json:"key" bson:"key"`
}

// Equal checks provider and key equality
func (l Login) Equal(other Login) bool {
	return l.Provider == other.Provider && l.Key == other.Key
}

// Claim represents a (type, value) assertion attached to a user
type Claim struct {
	Type  string `json:"type" bson:"type"`
	Value string `json:"value" bson:"value"`
}

// Equal checks type and value equality
func (c Claim) Equal(other Claim) bool {
	return c.Type == other.Type && c.Value == other.Value
}

// HashedPassword represents a bcrypt hashed password
type HashedPassword struct {
	hash string
}

// NewHashedPassword creates a hashed password from plain text
func NewHashedPassword(plainPassword string) (HashedPassword, error) {
	if len(plainPassword) < 6 {
		return HashedPassword{}, shared.ErrInvalidInput("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return HashedPassword{}, err
	}

	return HashedPassword{hash: string(hash)}, nil
}

// NewHashedPasswordFromHash creates from existing hash
func NewHashedPasswordFromHash(hash string) HashedPassword {
	return HashedPassword{hash: hash}
}

// Hash returns the password hash
func (p HashedPassword) Hash() string {
	return p.hash
}

// Verify checks if the plain password matches the hash
func (p HashedPassword) Verify(plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(p.hash), []byte(plainPassword))
	return err == nil
}

// User represents a user account aggregate. It is the unit of storage: the
// whole aggregate maps to exactly one document in the backing store, and
// every persist is a full-document write.
type User struct {
	ID               UserID     `json:"id" bson:"_id"`
	Username         string     `json:"username" bson:"username"`
	Email            string     `json:"email,omitempty" bson:"email,omitempty"`
	PhoneNumber      string     `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	PasswordHash     string     `json:"password_hash,omitempty" bson:"password_hash,omitempty"`
	SecurityStamp    string     `json:"security_stamp" bson:"security_stamp"`
	EmailConfirmed   bool       `json:"email_confirmed" bson:"email_confirmed"`
	PhoneConfirmed   bool       `json:"phone_confirmed" bson:"phone_confirmed"`
	TwoFactorEnabled bool       `json:"two_factor_enabled" bson:"two_factor_enabled"`
	LockoutEnabled   bool       `json:"lockout_enabled" bson:"lockout_enabled"`
	LockoutEnd       *time.Time `json:"lockout_end,omitempty" bson:"lockout_end,omitempty"`
	AccessFailed     int        `json:"access_failed_count" bson:"access_failed_count"`

	Logins []Login  `json:"logins,omitempty" bson:"logins,omitempty"`
	Claims []Claim  `json:"claims,omitempty" bson:"claims,omitempty"`
	Roles  []string `json:"roles,omitempty" bson:"roles,omitempty"`

	// Version is the optimistic concurrency token. Replace only succeeds
	// against the version the aggregate was read at.
	Version int64 `json:"version" bson:"version"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewUser creates a new user aggregate
func NewUser(username string) (*User, error) {
	if username == "" {
		return nil, shared.ErrInvalidInput("username cannot be empty")
	}

	now := time.Now().UTC()

	return &User{
		ID:            NewUserID(),
		Username:      username,
		SecurityStamp: shared.NewID().String(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// SetPassword hashes and stores a new password, rotating the security stamp
// so outstanding sessions are invalidated.
func (u *User) SetPassword(plainPassword string) error {
	hashed, err := NewHashedPassword(plainPassword)
	if err != nil {
		return err
	}

	u.PasswordHash = hashed.Hash()
	u.RotateSecurityStamp()
	return nil
}

// VerifyPassword checks a plain password against the stored hash
func (u *User) VerifyPassword(plainPassword string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return NewHashedPasswordFromHash(u.PasswordHash).Verify(plainPassword)
}

// HasPassword reports whether a password hash is set
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// RotateSecurityStamp replaces the security stamp with a fresh value
func (u *User) RotateSecurityStamp() {
	u.SecurityStamp = shared.NewID().String()
	u.touch()
}

// AddLogin appends a login unless an entry with the same provider and key
// already exists. Duplicate adds are silently ignored.
func (u *User) AddLogin(login Login) bool {
	if u.HasLogin(login) {
		return false
	}

	u.Logins = append(u.Logins, login)
	u.touch()
	return true
}

// RemoveLogin removes every entry matching both provider and key.
// Removing an absent login is a no-op.
func (u *User) RemoveLogin(login Login) {
	kept := u.Logins[:0]
	for _, l := range u.Logins {
		if !l.Equal(login) {
			kept = append(kept, l)
		}
	}
	if len(kept) != len(u.Logins) {
		u.touch()
	}
	u.Logins = kept
}

// HasLogin checks membership by provider and key
func (u *User) HasLogin(login Login) bool {
	for _, l := range u.Logins {
		if l.Equal(login) {
			return true
		}
	}
	return false
}

// AddClaim appends a claim unless an entry with the same type and value
// already exists
func (u *User) AddClaim(claim Claim) bool {
	for _, c := range u.Claims {
		if c.Equal(claim) {
			return false
		}
	}

	u.Claims = append(u.Claims, claim)
	u.touch()
	return true
}

// RemoveClaim removes every entry matching both type and value
func (u *User) RemoveClaim(claim Claim) {
	kept := u.Claims[:0]
	for _, c := range u.Claims {
		if !c.Equal(claim) {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(u.Claims) {
		u.touch()
	}
	u.Claims = kept
}

// AddRole appends a role unless an equal role already exists. Role names
// compare case-insensitively.
func (u *User) AddRole(role string) bool {
	if u.IsInRole(role) {
		return false
	}

	u.Roles = append(u.Roles, role)
	u.touch()
	return true
}

// RemoveRole removes every role equal to the given name, ignoring case
func (u *User) RemoveRole(role string) {
	kept := u.Roles[:0]
	for _, r := range u.Roles {
		if !strings.EqualFold(r, role) {
			kept = append(kept, r)
		}
	}
	if len(kept) != len(u.Roles) {
		u.touch()
	}
	u.Roles = kept
}

// IsInRole checks case-insensitive role membership
func (u *User) IsInRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IncrementAccessFailedCount bumps the failed access counter and returns
// the new count
func (u *User) IncrementAccessFailedCount() int {
	u.AccessFailed++
	u.touch()
	return u.AccessFailed
}

// ResetAccessFailedCount clears the failed access counter
func (u *User) ResetAccessFailedCount() {
	u.AccessFailed = 0
	u.touch()
}

// IsLockedOut reports whether lockout is enabled and the lockout end
// timestamp is still in the future
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// LockUntil sets the lockout end timestamp and clears the failure counter
func (u *User) LockUntil(end time.Time) {
	u.LockoutEnd = &end
	u.AccessFailed = 0
	u.touch()
}

// Clone returns a deep copy of the aggregate. Collections are copied so the
// clone shares no state with the original.
func (u *User) Clone() *User {
	clone := *u

	if u.LockoutEnd != nil {
		end := *u.LockoutEnd
		clone.LockoutEnd = &end
	}
	if u.Logins != nil {
		clone.Logins = append([]Login(nil), u.Logins...)
	}
	if u.Claims != nil {
		clone.Claims = append([]Claim(nil), u.Claims...)
	}
	if u.Roles != nil {
		clone.Roles = append([]string(nil), u.Roles...)
	}

	return &clone
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}
