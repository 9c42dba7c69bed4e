package domain

import "time"

// Role values for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationTurn is a single textual turn in a session's transcript.
// Turns are append-only: written exactly once per textual output event.
type ConversationTurn struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Text      string    `json:"text"`
	ToolUseID string    `json:"tool_use_id,omitempty"` // set when the turn references a tool call
}
