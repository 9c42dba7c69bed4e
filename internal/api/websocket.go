package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ebuka1017/Robin/internal/cache"
	"github.com/ebuka1017/Robin/internal/domain"
	"github.com/ebuka1017/Robin/internal/streaming"
)

// maxAudioFrameBytes bounds a single inbound WebSocket frame. Microphone
// chunks are small; anything near this limit is a misbehaving client.
const maxAudioFrameBytes = 1 << 20

// handleAudioStream upgrades the connection and hands it to the streaming
// service. The session must exist and still be active.
func (s *Server) handleAudioStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	sess := s.sessions.GetSession(sessionID)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if sess.State != domain.SessionActive {
		writeError(w, http.StatusConflict, "session already ended")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxAudioFrameBytes)
	s.log.Info().Str("session", sessionID).Str("remote", r.RemoteAddr).Msg("audio stream connected")

	defer func() {
		s.sessions.UpdateSessionState(sessionID, domain.SessionEnded)
		s.cache.Delete(r.Context(), cache.SessionKey(sessionID))
		conn.Close()
		s.log.Info().Str("session", sessionID).Msg("audio stream closed")
	}()

	s.streamer.Run(r.Context(), newWSClientConn(conn), sessionID)
}

// wsClientConn adapts a gorilla connection to the streaming client
// interface. Gorilla allows one concurrent writer; the mutex serializes
// audio frames and JSON notifications.
type wsClientConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSClientConn(conn *websocket.Conn) *wsClientConn {
	return &wsClientConn{conn: conn}
}

// NextFrame reads the next client frame: binary frames carry PCM audio,
// text frames carry control JSON. Unparseable text frames are dropped.
func (c *wsClientConn) NextFrame() (streaming.ClientFrame, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return streaming.ClientFrame{}, err
		}

		switch messageType {
		case websocket.BinaryMessage:
			return streaming.ClientFrame{Audio: data}, nil
		case websocket.TextMessage:
			var control streaming.ControlMessage
			if err := json.Unmarshal(data, &control); err != nil {
				continue
			}
			return streaming.ClientFrame{Control: &control}, nil
		}
	}
}

func (c *wsClientConn) WriteAudio(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsClientConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}
