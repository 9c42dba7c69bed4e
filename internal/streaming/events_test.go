package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalEvent(t *testing.T, ev Envelope) map[string]any {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	body, ok := decoded["event"].(map[string]any)
	require.True(t, ok, "missing event envelope")
	return body
}

func TestNewSessionStart(t *testing.T) {
	body := marshalEvent(t, NewSessionStart(InferenceConfiguration{
		MaxTokens: 1024, TopP: 0.9, Temperature: 0.7,
	}))

	require.Contains(t, body, "sessionStart")
	inference := body["sessionStart"].(map[string]any)["inferenceConfiguration"].(map[string]any)
	assert.Equal(t, float64(1024), inference["maxTokens"])
	assert.Equal(t, 0.9, inference["topP"])
	assert.Equal(t, 0.7, inference["temperature"])
}

func TestNewPromptStart(t *testing.T) {
	body := marshalEvent(t, NewPromptStart("prompt-1", "tiffany", json.RawMessage(`[{"toolSpec":{}}]`)))

	require.Contains(t, body, "promptStart")
	ps := body["promptStart"].(map[string]any)
	assert.Equal(t, "prompt-1", ps["promptName"])

	audio := ps["audioOutputConfiguration"].(map[string]any)
	assert.Equal(t, "audio/lpcm", audio["mediaType"])
	assert.Equal(t, float64(24000), audio["sampleRateHertz"])
	assert.Equal(t, float64(16), audio["sampleSizeBits"])
	assert.Equal(t, float64(1), audio["channelCount"])
	assert.Equal(t, "tiffany", audio["voiceId"])

	assert.Equal(t, "text/plain", ps["textOutputConfiguration"].(map[string]any)["mediaType"])
	assert.Equal(t, "application/json", ps["toolUseOutputConfiguration"].(map[string]any)["mediaType"])

	tools := ps["toolConfiguration"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, 1)
}

func TestNewPromptStart_NoTools(t *testing.T) {
	body := marshalEvent(t, NewPromptStart("p", "matthew", nil))

	ps := body["promptStart"].(map[string]any)
	tools := ps["toolConfiguration"].(map[string]any)["tools"].([]any)
	assert.Empty(t, tools)
}

func TestNewTextContentStart(t *testing.T) {
	body := marshalEvent(t, NewTextContentStart("p", "c", WireRoleSystem))

	cs := body["contentStart"].(map[string]any)
	assert.Equal(t, "p", cs["promptName"])
	assert.Equal(t, "c", cs["contentName"])
	assert.Equal(t, "TEXT", cs["type"])
	assert.Equal(t, "SYSTEM", cs["role"])
	assert.Equal(t, true, cs["interactive"])
	assert.Equal(t, "text/plain", cs["textInputConfiguration"].(map[string]any)["mediaType"])
}

func TestNewAudioContentStart(t *testing.T) {
	body := marshalEvent(t, NewAudioContentStart("p", "audio-c"))

	cs := body["contentStart"].(map[string]any)
	assert.Equal(t, "AUDIO", cs["type"])
	assert.Equal(t, "USER", cs["role"])

	audio := cs["audioInputConfiguration"].(map[string]any)
	assert.Equal(t, float64(16000), audio["sampleRateHertz"])
	assert.Equal(t, "base64", audio["encoding"])
	assert.Equal(t, "SPEECH", audio["audioType"])
}

func TestNewToolContentStart_CorrelatesToolUse(t *testing.T) {
	body := marshalEvent(t, NewToolContentStart("p", "tool-c", "use-42"))

	cs := body["contentStart"].(map[string]any)
	assert.Equal(t, "TOOL", cs["type"])
	assert.Equal(t, "TOOL", cs["role"])
	assert.Equal(t, false, cs["interactive"])

	trc := cs["toolResultInputConfiguration"].(map[string]any)
	assert.Equal(t, "use-42", trc["toolUseId"])
	assert.Equal(t, "TEXT", trc["type"])
}

func TestNewAudioInput(t *testing.T) {
	body := marshalEvent(t, NewAudioInput("p", "c", "AAAA"))

	ai := body["audioInput"].(map[string]any)
	assert.Equal(t, "p", ai["promptName"])
	assert.Equal(t, "c", ai["contentName"])
	assert.Equal(t, "AAAA", ai["content"])
}

func TestLifecycleEnds(t *testing.T) {
	body := marshalEvent(t, NewContentEnd("p", "c"))
	assert.Contains(t, body, "contentEnd")

	body = marshalEvent(t, NewPromptEnd("p"))
	assert.Equal(t, "p", body["promptEnd"].(map[string]any)["promptName"])

	body = marshalEvent(t, NewSessionEnd())
	assert.Contains(t, body, "sessionEnd")
}

func TestDecodeModelEvent_Variants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    ModelEvent
	}{
		{
			name:    "audio output",
			payload: `{"event":{"audioOutput":{"content":"UklGRg=="}}}`,
			want:    AudioOutput{Content: "UklGRg=="},
		},
		{
			name:    "text output",
			payload: `{"event":{"textOutput":{"role":"ASSISTANT","content":"hello"}}}`,
			want:    TextOutput{Role: "ASSISTANT", Content: "hello"},
		},
		{
			name:    "tool use",
			payload: `{"event":{"toolUse":{"toolUseId":"u1","toolName":"search_email","content":"{\"q\":\"invoice\"}"}}}`,
			want:    ToolUse{ToolUseID: "u1", ToolName: "search_email", Content: `{"q":"invoice"}`},
		},
		{
			name:    "tool content end",
			payload: `{"event":{"contentEnd":{"contentName":"c1","type":"TOOL","stopReason":"TOOL_USE"}}}`,
			want:    ContentEnded{ContentName: "c1", Type: "TOOL", StopReason: "TOOL_USE"},
		},
		{
			name:    "completion end",
			payload: `{"event":{"completionEnd":{}}}`,
			want:    CompletionEnd{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeModelEvent([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeModelEvent_Unknown(t *testing.T) {
	got, err := DecodeModelEvent([]byte(`{"event":{"usageEvent":{"totalTokens":12}}}`))
	require.NoError(t, err)
	assert.IsType(t, UnknownEvent{}, got)
}

func TestDecodeModelEvent_Malformed(t *testing.T) {
	_, err := DecodeModelEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeModelEvent([]byte(`{"other":true}`))
	assert.ErrorIs(t, err, ErrNoEvent)
}
