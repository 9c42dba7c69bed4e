package streaming

import "encoding/json"

// ControlMessage is a JSON text frame from the client. The only
// recognized shape is {"type":"end"}.
type ControlMessage struct {
	Type string `json:"type"`
}

// ControlEnd asks the relay to stop forwarding audio.
const ControlEnd = "end"

// ClientFrame is one inbound frame from the client connection: either raw
// PCM audio bytes or a parsed control message, never both.
type ClientFrame struct {
	Audio   []byte
	Control *ControlMessage
}

// ClientConn is the duplex client connection as the streaming core sees
// it. NextFrame blocks with the underlying connection's own read
// semantics; writes may come from the dispatcher goroutine while reads
// block elsewhere, so implementations must allow that.
type ClientConn interface {
	NextFrame() (ClientFrame, error)
	WriteAudio(data []byte) error
	WriteJSON(v any) error
}

// Notifications pushed to the client while a session runs.

// ToolCallStartMessage tells the client a tool invocation began.
type ToolCallStartMessage struct {
	Type  string         `json:"type"`
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
}

// ToolCallEndMessage tells the client a tool invocation finished.
type ToolCallEndMessage struct {
	Type      string          `json:"type"`
	Tool      string          `json:"tool"`
	Result    json.RawMessage `json:"result"`
	LatencyMS int64           `json:"latency_ms"`
}

// ErrorMessage reports a session-fatal failure to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newToolCallStart(tool string, input map[string]any) ToolCallStartMessage {
	if input == nil {
		input = map[string]any{}
	}
	return ToolCallStartMessage{Type: "tool_call_start", Tool: tool, Input: input}
}

func newToolCallEnd(tool string, result json.RawMessage, latencyMS int64) ToolCallEndMessage {
	return ToolCallEndMessage{Type: "tool_call_end", Tool: tool, Result: result, LatencyMS: latencyMS}
}

// NewErrorMessage builds the client-facing error notification.
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}
