package streaming

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ebuka1017/Robin/internal/logging"
)

// ToolInvoker is the slice of the tool gateway the bridge calls through.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error)
}

// BridgeResult is the outcome of one tool round trip. Output is always a
// valid JSON document: the gateway result on success, or a structured
// {"success":false,"error":...} object on failure, so the model always
// receives a result for every announced tool use.
type BridgeResult struct {
	Success bool
	Output  json.RawMessage
	Err     string
	Latency time.Duration
}

// LatencyMS returns the round-trip latency in whole milliseconds.
func (r BridgeResult) LatencyMS() int64 {
	return r.Latency.Milliseconds()
}

// toolBridge wraps the gateway call with wall-clock measurement and error
// containment. It never returns an error to the dispatcher: a failed call
// becomes a failed BridgeResult.
type toolBridge struct {
	invoker ToolInvoker
	log     *logging.Logger
}

func newToolBridge(invoker ToolInvoker, log *logging.Logger) *toolBridge {
	return &toolBridge{invoker: invoker, log: log}
}

type failurePayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (b *toolBridge) invoke(ctx context.Context, name string, arguments json.RawMessage) BridgeResult {
	start := time.Now()
	result, err := b.invoker.Invoke(ctx, name, arguments)
	latency := time.Since(start)

	if err != nil {
		b.log.Error().Err(err).Str("tool", name).
			Int64("latencyMs", latency.Milliseconds()).Msg("tool invocation failed")
		payload, _ := json.Marshal(failurePayload{Success: false, Error: err.Error()})
		return BridgeResult{Success: false, Output: payload, Err: err.Error(), Latency: latency}
	}

	if len(result) == 0 {
		result = []byte("{}")
	}

	b.log.Info().Str("tool", name).
		Int64("latencyMs", latency.Milliseconds()).Msg("tool invoked")
	return BridgeResult{Success: true, Output: result, Latency: latency}
}
