package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebuka1017/Robin/internal/cache"
	"github.com/ebuka1017/Robin/internal/config"
	"github.com/ebuka1017/Robin/internal/domain"
	"github.com/ebuka1017/Robin/internal/logging"
	"github.com/ebuka1017/Robin/internal/store"
	"github.com/ebuka1017/Robin/internal/streaming"
)

type testEnv struct {
	srv      *Server
	sessions *store.SessionStore
	cache    cache.Cache
	marker   *cache.ActiveMarker
	http     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logging.New(nil, "silent")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := cache.NewMemory()
	t.Cleanup(func() { c.Close() })

	sessions := store.NewSessionStore(db)
	marker := cache.NewActiveMarker(c, time.Minute)

	cfg := config.Defaults()
	srv := New(cfg, log, sessions, c, marker, nil)

	mux := http.NewServeMux()
	srv.registerRoutes(mux)
	ts := httptest.NewServer(withMiddleware(mux, log, nil))
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, sessions: sessions, cache: c, marker: marker, http: ts}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.http.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSessionStart(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.post(t, "/api/sessions/start", `{"user_id":"alice"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sessionID := body["session_id"].(string)
	assert.NotEmpty(t, sessionID)
	assert.Contains(t, body["websocket_url"], "/ws/audio?session_id="+sessionID)

	stored := e.sessions.GetSession(sessionID)
	require.NotNil(t, stored)
	assert.Equal(t, "alice", stored.UserID)
	assert.Equal(t, domain.SessionActive, stored.State)
}

func TestSessionStart_EmptyBody(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.post(t, "/api/sessions/start", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored := e.sessions.GetSession(body["session_id"].(string))
	require.NotNil(t, stored)
	assert.Equal(t, "anonymous", stored.UserID)
}

func TestSessionGet(t *testing.T) {
	e := newTestEnv(t)
	sess, err := e.sessions.CreateSession("bob", time.Hour)
	require.NoError(t, err)

	resp, body := e.get(t, "/api/sessions/"+sess.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sess.ID, body["session_id"])
	assert.Equal(t, "bob", body["user_id"])
	assert.Equal(t, "active", body["state"])
}

func TestSessionGet_NotFound(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/api/sessions/unknown-id")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session not found", body["error"])
}

func TestSessionEnd(t *testing.T) {
	e := newTestEnv(t)
	sess, err := e.sessions.CreateSession("bob", time.Hour)
	require.NoError(t, err)

	resp, body := e.post(t, "/api/sessions/"+sess.ID+"/end", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ended", body["status"])

	stored := e.sessions.GetSession(sess.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.SessionEnded, stored.State)
}

func TestSessionStatus_ActiveMarkerWins(t *testing.T) {
	e := newTestEnv(t)
	sess, err := e.sessions.CreateSession("bob", time.Hour)
	require.NoError(t, err)

	e.marker.MarkActive(t.Context(), sess.ID)

	_, body := e.get(t, "/api/sessions/"+sess.ID+"/status")
	assert.Equal(t, "active", body["status"])

	e.marker.ClearActive(t.Context(), sess.ID)
	e.sessions.UpdateSessionState(sess.ID, domain.SessionEnded)

	_, body = e.get(t, "/api/sessions/"+sess.ID+"/status")
	assert.Equal(t, "ended", body["status"])
}

func TestHistory(t *testing.T) {
	e := newTestEnv(t)
	sess, err := e.sessions.CreateSession("bob", time.Hour)
	require.NoError(t, err)

	e.sessions.AppendMessage(sess.ID, domain.RoleUser, "hello")
	e.sessions.AppendMessage(sess.ID, domain.RoleAssistant, "Hi, how can I help?")

	resp, body := e.get(t, "/api/history/"+sess.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["message_count"])

	messages := body["messages"].([]any)
	first := messages[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "hello", first["text"])
}

func TestHistory_EmptySession(t *testing.T) {
	e := newTestEnv(t)
	sess, err := e.sessions.CreateSession("bob", time.Hour)
	require.NoError(t, err)

	_, body := e.get(t, "/api/history/"+sess.ID)
	assert.Equal(t, float64(0), body["message_count"])
	assert.NotNil(t, body["messages"], "messages must be an empty array, not null")
}

func TestToolCalls(t *testing.T) {
	e := newTestEnv(t)
	sess, err := e.sessions.CreateSession("bob", time.Hour)
	require.NoError(t, err)

	e.sessions.AppendToolCall(domain.ToolCallRecord{
		SessionID: sess.ID,
		Timestamp: time.Now(),
		ToolName:  "search_email",
		Input:     json.RawMessage(`{"query":"invoice"}`),
		Output:    json.RawMessage(`{"count":1}`),
		LatencyMS: 88,
		Status:    domain.ToolCallSuccess,
	})

	resp, body := e.get(t, "/api/tools/calls?session_id="+sess.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["tool_call_count"])

	call := body["tool_calls"].([]any)[0].(map[string]any)
	assert.Equal(t, "search_email", call["tool_name"])
	assert.Equal(t, float64(88), call["latency_ms"])
	assert.Equal(t, "success", call["status"])
}

func TestToolCalls_RequiresSessionID(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/api/tools/calls")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "session_id required", body["error"])
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotZero(t, body["timestamp"])
}

func TestNotFound(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/api/bogus")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", body["error"])
}

func TestAudioStream_RejectsBadSessions(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, "/ws/audio")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "session_id required", body["error"])

	resp, _ = e.get(t, "/ws/audio?session_id=unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	sess, err := e.sessions.CreateSession("bob", time.Hour)
	require.NoError(t, err)
	e.sessions.UpdateSessionState(sess.ID, domain.SessionEnded)

	resp, _ = e.get(t, "/ws/audio?session_id="+sess.ID)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWSClientConn_FrameParsing(t *testing.T) {
	frames := make(chan streaming.ClientFrame, 4)
	upgrader := websocket.Upgrader{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		c := newWSClientConn(conn)
		for {
			frame, err := c.NextFrame()
			if err != nil {
				close(frames)
				return
			}
			frames <- frame
		}
	}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"end"}`)))

	frame := <-frames
	assert.Equal(t, []byte{1, 2, 3}, frame.Audio)
	assert.Nil(t, frame.Control)

	// The unparseable text frame is dropped; the end control comes next.
	frame = <-frames
	require.NotNil(t, frame.Control)
	assert.Equal(t, streaming.ControlEnd, frame.Control.Type)

	client.Close()
	_, open := <-frames
	assert.False(t, open, "adapter must surface the disconnect")
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8000", resolveBindAddr(config.ServerConfig{Bind: "loopback", Port: 8000}))
	assert.Equal(t, "0.0.0.0:8000", resolveBindAddr(config.ServerConfig{Bind: "lan", Port: 8000}))
	assert.Equal(t, "10.1.2.3:9000", resolveBindAddr(config.ServerConfig{Bind: "custom", CustomBindHost: "10.1.2.3", Port: 9000}))
	assert.Equal(t, "127.0.0.1:8000", resolveBindAddr(config.ServerConfig{Port: 8000}))
}
