package models

import "time"

// SessionInfo is the locally derived view of the persisted session.
type SessionInfo struct {
	IsActive  bool      `json:"isActive"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"token,omitempty"`
	Scope     string    `json:"scope"`
	UserID    string    `json:"userId"`
}

// Notification is a transient, user-visible notice.
type Notification struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"` // "info" | "error"
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
