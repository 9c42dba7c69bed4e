package domain

import (
	"encoding/json"
	"time"
)

// ToolCallStatus marks whether a tool round trip succeeded.
type ToolCallStatus string

const (
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallFailed  ToolCallStatus = "failed"
)

// ToolCallRecord is the persisted log entry for one completed tool round
// trip. Records are append-only: written exactly once per round trip,
// success or failure.
type ToolCallRecord struct {
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	ToolName  string          `json:"tool_name"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	LatencyMS int64           `json:"latency_ms"`
	Status    ToolCallStatus  `json:"status"`
}
