// Package domain holds the core data types shared across Robin's
// storage, API, and streaming layers.
package domain

import "time"

// SessionState is the lifecycle state of a conversation session.
type SessionState string

const (
	SessionActive SessionState = "active"
	SessionEnded  SessionState = "ended"
)

// Session tracks one live voice conversation. It is created by the REST
// layer before any audio flows and mutated only by state transitions; a
// given session id is never driven by more than one coordinator at a time.
type Session struct {
	ID          string       `json:"session_id"`
	UserID      string       `json:"user_id"`
	State       SessionState `json:"state"`
	StartTime   time.Time    `json:"start_time"`
	LastUpdated time.Time    `json:"last_updated"`
	ExpiresAt   time.Time    `json:"expires_at"`
}
