package user

import (
	"encoding/json"
	"time"
)

// UserCreatedEvent is published after a user document is inserted
type UserCreatedEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// UserUpdatedEvent is published after a full-document replace. Changes
// carries a JSON merge patch from the previous document to the new one.
type UserUpdatedEvent struct {
	UserID    string          `json:"user_id"`
	Version   int64           `json:"version"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// UserDeletedEvent is published after a user document is removed
type UserDeletedEvent struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
