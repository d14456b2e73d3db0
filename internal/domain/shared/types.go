package shared

import (
	"github.com/google/uuid"
)

// ID represents a unique identifier
type ID string

// NewID generates a new unique ID
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string representation of ID
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if ID is empty
func (id ID) IsEmpty() bool {
	return string(id) == ""
}

// ParseID validates that a raw string is a well-formed identifier
func ParseID(raw string) (ID, error) {
	if raw == "" {
		return "", ErrInvalidInput("identifier cannot be empty")
	}

	if _, err := uuid.Parse(raw); err != nil {
		return "", WrapDomainError(err, ErrCodeInvalidInput, "malformed identifier")
	}

	return ID(raw), nil
}
