package streaming

import "encoding/json"

// Content block types within a prompt.
const (
	ContentTypeText  = "TEXT"
	ContentTypeAudio = "AUDIO"
	ContentTypeTool  = "TOOL"
)

// Roles on the model wire protocol.
const (
	WireRoleSystem    = "SYSTEM"
	WireRoleUser      = "USER"
	WireRoleAssistant = "ASSISTANT"
	WireRoleTool      = "TOOL"
)

// Audio formats on either side of the relay. Client microphone audio is
// 16 kHz linear PCM; model speech comes back at 24 kHz.
const (
	InputSampleRateHertz  = 16000
	OutputSampleRateHertz = 24000
	SampleSizeBits        = 16
	ChannelCount          = 1
)

// Envelope is the JSON envelope every wire event travels in. Exactly one
// field of Event is non-nil.
type Envelope struct {
	Event EventBody `json:"event"`
}

// EventBody holds one lifecycle or output event keyed by kind.
type EventBody struct {
	SessionStart *SessionStartEvent `json:"sessionStart,omitempty"`
	PromptStart  *PromptStartEvent  `json:"promptStart,omitempty"`
	ContentStart *ContentStartEvent `json:"contentStart,omitempty"`
	TextInput    *TextDataEvent     `json:"textInput,omitempty"`
	AudioInput   *TextDataEvent     `json:"audioInput,omitempty"`
	ToolResult   *TextDataEvent     `json:"toolResult,omitempty"`
	ContentEnd   *ContentEndEvent   `json:"contentEnd,omitempty"`
	PromptEnd    *PromptEndEvent    `json:"promptEnd,omitempty"`
	SessionEnd   *SessionEndEvent   `json:"sessionEnd,omitempty"`

	// Output-side events (model to server).
	AudioOutput   *AudioOutputEvent   `json:"audioOutput,omitempty"`
	TextOutput    *TextOutputEvent    `json:"textOutput,omitempty"`
	ToolUse       *ToolUseEvent       `json:"toolUse,omitempty"`
	CompletionEnd *CompletionEndEvent `json:"completionEnd,omitempty"`
}

// InferenceConfiguration sets sampling limits for the session.
type InferenceConfiguration struct {
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
	Temperature float64 `json:"temperature"`
}

// SessionStartEvent opens the model session.
type SessionStartEvent struct {
	InferenceConfiguration InferenceConfiguration `json:"inferenceConfiguration"`
}

// MediaConfiguration declares a media type for a text or tool channel.
type MediaConfiguration struct {
	MediaType string `json:"mediaType"`
}

// AudioOutputConfiguration declares the speech format the model produces.
type AudioOutputConfiguration struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	VoiceID         string `json:"voiceId"`
	Encoding        string `json:"encoding"`
	AudioType       string `json:"audioType"`
}

// AudioInputConfiguration declares the microphone format the server relays.
type AudioInputConfiguration struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	AudioType       string `json:"audioType"`
	Encoding        string `json:"encoding"`
}

// ToolConfiguration carries the model-facing tool definitions.
type ToolConfiguration struct {
	Tools json.RawMessage `json:"tools"`
}

// PromptStartEvent opens the prompt and declares output channels and tools.
type PromptStartEvent struct {
	PromptName                 string                   `json:"promptName"`
	TextOutputConfiguration    MediaConfiguration       `json:"textOutputConfiguration"`
	AudioOutputConfiguration   AudioOutputConfiguration `json:"audioOutputConfiguration"`
	ToolUseOutputConfiguration MediaConfiguration       `json:"toolUseOutputConfiguration"`
	ToolConfiguration          ToolConfiguration        `json:"toolConfiguration"`
}

// ToolResultInputConfiguration correlates a tool-result content block with
// the tool use that requested it.
type ToolResultInputConfiguration struct {
	ToolUseID              string             `json:"toolUseId"`
	Type                   string             `json:"type"`
	TextInputConfiguration MediaConfiguration `json:"textInputConfiguration"`
}

// ContentStartEvent opens a typed content block within the prompt.
type ContentStartEvent struct {
	PromptName                   string                        `json:"promptName"`
	ContentName                  string                        `json:"contentName"`
	Type                         string                        `json:"type"`
	Role                         string                        `json:"role,omitempty"`
	Interactive                  bool                          `json:"interactive"`
	TextInputConfiguration       *MediaConfiguration           `json:"textInputConfiguration,omitempty"`
	AudioInputConfiguration      *AudioInputConfiguration      `json:"audioInputConfiguration,omitempty"`
	ToolResultInputConfiguration *ToolResultInputConfiguration `json:"toolResultInputConfiguration,omitempty"`
}

// TextDataEvent carries content into an open block: system prompt text,
// base64 audio, or a JSON-stringified tool result.
type TextDataEvent struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Content     string `json:"content"`
}

// ContentEndEvent closes a content block. The model also emits these on
// its output side, where Type and StopReason are populated.
type ContentEndEvent struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Type        string `json:"type,omitempty"`
	StopReason  string `json:"stopReason,omitempty"`
}

// PromptEndEvent closes the prompt.
type PromptEndEvent struct {
	PromptName string `json:"promptName"`
}

// SessionEndEvent closes the model session.
type SessionEndEvent struct{}

// AudioOutputEvent carries a base64 speech chunk from the model.
type AudioOutputEvent struct {
	Content string `json:"content"`
}

// TextOutputEvent carries a transcript fragment from the model.
type TextOutputEvent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolUseEvent announces a tool invocation the model wants performed.
type ToolUseEvent struct {
	ToolUseID string `json:"toolUseId"`
	ToolName  string `json:"toolName"`
	Content   string `json:"content"`
}

// CompletionEndEvent terminates the model's output stream.
type CompletionEndEvent struct {
	StopReason string `json:"stopReason,omitempty"`
}

// The builders below are pure: they take correlation ids and payloads and
// return ready-to-send envelopes.

// NewSessionStart builds the session-opening event.
func NewSessionStart(inference InferenceConfiguration) Envelope {
	return Envelope{Event: EventBody{SessionStart: &SessionStartEvent{
		InferenceConfiguration: inference,
	}}}
}

// NewPromptStart builds the prompt-opening event with output channel
// configuration and the tool definitions for this session.
func NewPromptStart(promptName, voiceID string, tools json.RawMessage) Envelope {
	if len(tools) == 0 {
		tools = []byte("[]")
	}
	return Envelope{Event: EventBody{PromptStart: &PromptStartEvent{
		PromptName:              promptName,
		TextOutputConfiguration: MediaConfiguration{MediaType: "text/plain"},
		AudioOutputConfiguration: AudioOutputConfiguration{
			MediaType:       "audio/lpcm",
			SampleRateHertz: OutputSampleRateHertz,
			SampleSizeBits:  SampleSizeBits,
			ChannelCount:    ChannelCount,
			VoiceID:         voiceID,
			Encoding:        "base64",
			AudioType:       "SPEECH",
		},
		ToolUseOutputConfiguration: MediaConfiguration{MediaType: "application/json"},
		ToolConfiguration:          ToolConfiguration{Tools: tools},
	}}}
}

// NewTextContentStart opens a TEXT content block for the given role.
func NewTextContentStart(promptName, contentName, role string) Envelope {
	return Envelope{Event: EventBody{ContentStart: &ContentStartEvent{
		PromptName:             promptName,
		ContentName:            contentName,
		Type:                   ContentTypeText,
		Role:                   role,
		Interactive:            true,
		TextInputConfiguration: &MediaConfiguration{MediaType: "text/plain"},
	}}}
}

// NewTextInput carries text into an open TEXT block.
func NewTextInput(promptName, contentName, content string) Envelope {
	return Envelope{Event: EventBody{TextInput: &TextDataEvent{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     content,
	}}}
}

// NewAudioContentStart opens the user's AUDIO content block.
func NewAudioContentStart(promptName, contentName string) Envelope {
	return Envelope{Event: EventBody{ContentStart: &ContentStartEvent{
		PromptName:  promptName,
		ContentName: contentName,
		Type:        ContentTypeAudio,
		Role:        WireRoleUser,
		Interactive: true,
		AudioInputConfiguration: &AudioInputConfiguration{
			MediaType:       "audio/lpcm",
			SampleRateHertz: InputSampleRateHertz,
			SampleSizeBits:  SampleSizeBits,
			ChannelCount:    ChannelCount,
			AudioType:       "SPEECH",
			Encoding:        "base64",
		},
	}}}
}

// NewAudioInput carries one base64 PCM chunk into the open AUDIO block.
func NewAudioInput(promptName, contentName, contentB64 string) Envelope {
	return Envelope{Event: EventBody{AudioInput: &TextDataEvent{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     contentB64,
	}}}
}

// NewToolContentStart opens a TOOL content block correlated to a tool use.
func NewToolContentStart(promptName, contentName, toolUseID string) Envelope {
	return Envelope{Event: EventBody{ContentStart: &ContentStartEvent{
		PromptName:  promptName,
		ContentName: contentName,
		Type:        ContentTypeTool,
		Role:        WireRoleTool,
		Interactive: false,
		ToolResultInputConfiguration: &ToolResultInputConfiguration{
			ToolUseID:              toolUseID,
			Type:                   ContentTypeText,
			TextInputConfiguration: MediaConfiguration{MediaType: "text/plain"},
		},
	}}}
}

// NewToolResult carries the JSON-stringified tool output into an open
// TOOL block.
func NewToolResult(promptName, contentName, content string) Envelope {
	return Envelope{Event: EventBody{ToolResult: &TextDataEvent{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     content,
	}}}
}

// NewContentEnd closes a content block.
func NewContentEnd(promptName, contentName string) Envelope {
	return Envelope{Event: EventBody{ContentEnd: &ContentEndEvent{
		PromptName:  promptName,
		ContentName: contentName,
	}}}
}

// NewPromptEnd closes the prompt.
func NewPromptEnd(promptName string) Envelope {
	return Envelope{Event: EventBody{PromptEnd: &PromptEndEvent{PromptName: promptName}}}
}

// NewSessionEnd closes the session.
func NewSessionEnd() Envelope {
	return Envelope{Event: EventBody{SessionEnd: &SessionEndEvent{}}}
}
