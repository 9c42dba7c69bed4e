package streaming

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ebuka1017/Robin/internal/domain"
	"github.com/ebuka1017/Robin/internal/logging"
)

// TranscriptSink receives the transcript turns and tool-call records the
// dispatcher produces. Implementations must not block for long and must
// not fail the stream: persistence errors are theirs to log and swallow.
type TranscriptSink interface {
	AppendMessage(sessionID, role, text string)
	AppendToolCall(rec domain.ToolCallRecord)
}

// toolUseState holds one announced tool use between the toolUse event and
// the TOOL contentEnd that completes it. At most one is live per session;
// tool calls are not pipelined by the protocol.
type toolUseState struct {
	toolUseID string
	toolName  string
	input     json.RawMessage
}

// outputDispatcher consumes model events until the stream ends, routing
// each by kind: audio to the client, text to the transcript sink, tool
// round trips through the bridge and back into the model stream.
type outputDispatcher struct {
	sessionID  string
	transport  ModelTransport
	writer     *sessionWriter
	conn       ClientConn
	bridge     *toolBridge
	sink       TranscriptSink
	promptName string
	log        *logging.Logger
}

// run processes events until completionEnd, stream exhaustion, or an
// unrecoverable transport error. Malformed events are skipped.
func (d *outputDispatcher) run(ctx context.Context) error {
	var pending *toolUseState

	for {
		payload, err := d.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.log.Debug().Msg("model stream exhausted")
				return nil
			}
			return err
		}

		ev, err := DecodeModelEvent(payload)
		if err != nil {
			d.log.Warn().Err(err).Msg("skipping malformed model event")
			continue
		}

		switch e := ev.(type) {
		case AudioOutput:
			audio, err := base64.StdEncoding.DecodeString(e.Content)
			if err != nil {
				d.log.Warn().Err(err).Msg("skipping undecodable audio chunk")
				continue
			}
			if err := d.conn.WriteAudio(audio); err != nil {
				return err
			}

		case TextOutput:
			d.sink.AppendMessage(d.sessionID, strings.ToLower(e.Role), e.Content)

		case ToolUse:
			pending = &toolUseState{
				toolUseID: e.ToolUseID,
				toolName:  e.ToolName,
				input:     parseToolInput(e.Content),
			}
			d.log.Info().Str("tool", e.ToolName).Str("toolUseId", e.ToolUseID).Msg("tool use announced")
			if err := d.conn.WriteJSON(newToolCallStart(e.ToolName, decodeToolInput(pending.input))); err != nil {
				return err
			}

		case ContentEnded:
			if e.Type != ContentTypeTool {
				continue
			}
			if pending == nil {
				d.log.Warn().Str("contentName", e.ContentName).Msg("tool content ended with no pending tool use")
				continue
			}
			state := *pending
			pending = nil
			if err := d.completeToolUse(ctx, state); err != nil {
				return err
			}

		case CompletionEnd:
			d.log.Debug().Msg("completion end received")
			return nil

		default:
			// ContentStarted, UnknownEvent: forward-compatible no-ops.
		}
	}
}

// completeToolUse runs the full tool round trip: bridge call, record
// write, result injection into the model stream, and client notification.
// This blocks the dispatch loop; the model emits nothing further for this
// turn until the result arrives, so no concurrent tool calls exist.
func (d *outputDispatcher) completeToolUse(ctx context.Context, state toolUseState) error {
	res := d.bridge.invoke(ctx, state.toolName, state.input)

	status := domain.ToolCallSuccess
	if !res.Success {
		status = domain.ToolCallFailed
	}
	d.sink.AppendToolCall(domain.ToolCallRecord{
		SessionID: d.sessionID,
		Timestamp: time.Now(),
		ToolName:  state.toolName,
		Input:     state.input,
		Output:    res.Output,
		LatencyMS: res.LatencyMS(),
		Status:    status,
	})

	resultContentName := uuid.New().String()
	if err := d.writer.sendEvents(ctx,
		NewToolContentStart(d.promptName, resultContentName, state.toolUseID),
		NewToolResult(d.promptName, resultContentName, string(res.Output)),
		NewContentEnd(d.promptName, resultContentName),
	); err != nil {
		return err
	}

	return d.conn.WriteJSON(newToolCallEnd(state.toolName, res.Output, res.LatencyMS()))
}

// parseToolInput normalizes the announced tool arguments to a JSON object.
func parseToolInput(content string) json.RawMessage {
	if content == "" || !json.Valid([]byte(content)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(content)
}

// decodeToolInput produces the map form for client notifications.
func decodeToolInput(input json.RawMessage) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(input, &parsed); err != nil {
		return map[string]any{}
	}
	return parsed
}
