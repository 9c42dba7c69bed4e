package streaming

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoEvent marks a payload without the top-level "event" key.
var ErrNoEvent = errors.New("payload has no event envelope")

// ModelEvent is one decoded output event from the model transport. The set
// of variants is closed; dispatch switches over it exhaustively and treats
// UnknownEvent as forward-compatible noise.
type ModelEvent interface {
	modelEvent()
}

// AudioOutput is a base64 speech chunk to forward to the client.
type AudioOutput struct {
	Content string
}

// TextOutput is a transcript fragment to persist.
type TextOutput struct {
	Role    string
	Content string
}

// ToolUse announces a pending tool invocation.
type ToolUse struct {
	ToolUseID string
	ToolName  string
	Content   string
}

// ContentStarted reports a content block the model opened on its side.
type ContentStarted struct {
	ContentName string
	Type        string
	Role        string
}

// ContentEnded reports a content block the model closed. Type TOOL means
// the tool-use request is complete and must now be executed.
type ContentEnded struct {
	ContentName string
	Type        string
	StopReason  string
}

// CompletionEnd terminates the output stream.
type CompletionEnd struct{}

// UnknownEvent is any event kind this server does not handle.
type UnknownEvent struct {
	Raw json.RawMessage
}

func (AudioOutput) modelEvent()    {}
func (TextOutput) modelEvent()     {}
func (ToolUse) modelEvent()        {}
func (ContentStarted) modelEvent() {}
func (ContentEnded) modelEvent()   {}
func (CompletionEnd) modelEvent()  {}
func (UnknownEvent) modelEvent()   {}

// DecodeModelEvent decodes one raw payload from the model transport into
// a tagged variant. Malformed payloads return an error so the dispatch
// loop can skip them; unrecognized event kinds decode to UnknownEvent.
func DecodeModelEvent(payload []byte) (ModelEvent, error) {
	var envelope struct {
		Event *EventBody `json:"event"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decoding model event: %w", err)
	}
	if envelope.Event == nil {
		return nil, ErrNoEvent
	}

	body := envelope.Event
	switch {
	case body.AudioOutput != nil:
		return AudioOutput{Content: body.AudioOutput.Content}, nil
	case body.TextOutput != nil:
		return TextOutput{Role: body.TextOutput.Role, Content: body.TextOutput.Content}, nil
	case body.ToolUse != nil:
		return ToolUse{
			ToolUseID: body.ToolUse.ToolUseID,
			ToolName:  body.ToolUse.ToolName,
			Content:   body.ToolUse.Content,
		}, nil
	case body.ContentStart != nil:
		return ContentStarted{
			ContentName: body.ContentStart.ContentName,
			Type:        body.ContentStart.Type,
			Role:        body.ContentStart.Role,
		}, nil
	case body.ContentEnd != nil:
		return ContentEnded{
			ContentName: body.ContentEnd.ContentName,
			Type:        body.ContentEnd.Type,
			StopReason:  body.ContentEnd.StopReason,
		}, nil
	case body.CompletionEnd != nil:
		return CompletionEnd{}, nil
	default:
		return UnknownEvent{Raw: append(json.RawMessage(nil), payload...)}, nil
	}
}
