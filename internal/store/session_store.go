package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ebuka1017/Robin/internal/domain"
)

// tsFormat is the stored timestamp layout. Nanosecond precision keeps
// transcript ordering stable even within a single dispatch loop tick.
const tsFormat = time.RFC3339Nano

// SessionStore persists sessions, transcript turns, and tool-call records.
// Transcript and tool-call writes follow a log-and-continue policy: a failed
// write must never abort a live audio stream.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store using the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession inserts a new active session and returns it.
func (s *SessionStore) CreateSession(userID string, ttl time.Duration) (*domain.Session, error) {
	if userID == "" {
		userID = "anonymous"
	}
	now := time.Now()
	sess := &domain.Session{
		ID:          uuid.New().String(),
		UserID:      userID,
		State:       domain.SessionActive,
		StartTime:   now,
		LastUpdated: now,
		ExpiresAt:   now.Add(ttl),
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO sessions (id, user_id, state, start_time, last_updated, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, string(sess.State),
		sess.StartTime.Format(tsFormat), sess.LastUpdated.Format(tsFormat), sess.ExpiresAt.Format(tsFormat),
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession returns a session by id, or nil if not found.
func (s *SessionStore) GetSession(id string) *domain.Session {
	var sess domain.Session
	var state, startTime, lastUpdated, expiresAt string

	err := s.db.sql.QueryRow(
		`SELECT id, user_id, state, start_time, last_updated, expires_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &state, &startTime, &lastUpdated, &expiresAt)
	if err != nil {
		return nil
	}

	sess.State = domain.SessionState(state)
	sess.StartTime, _ = time.Parse(tsFormat, startTime)
	sess.LastUpdated, _ = time.Parse(tsFormat, lastUpdated)
	sess.ExpiresAt, _ = time.Parse(tsFormat, expiresAt)
	return &sess
}

// UpdateSessionState transitions a session's lifecycle state.
func (s *SessionStore) UpdateSessionState(id string, state domain.SessionState) {
	_, err := s.db.sql.Exec(
		`UPDATE sessions SET state = ?, last_updated = ? WHERE id = ?`,
		string(state), time.Now().Format(tsFormat), id,
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to update session state")
	}
}

// ListSessions returns the most recently updated sessions.
func (s *SessionStore) ListSessions(limit int) []domain.Session {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.sql.Query(
		`SELECT id, user_id, state, start_time, last_updated, expires_at
		 FROM sessions ORDER BY last_updated DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var sess domain.Session
		var state, startTime, lastUpdated, expiresAt string
		if err := rows.Scan(&sess.ID, &sess.UserID, &state, &startTime, &lastUpdated, &expiresAt); err != nil {
			continue
		}
		sess.State = domain.SessionState(state)
		sess.StartTime, _ = time.Parse(tsFormat, startTime)
		sess.LastUpdated, _ = time.Parse(tsFormat, lastUpdated)
		sess.ExpiresAt, _ = time.Parse(tsFormat, expiresAt)
		out = append(out, sess)
	}
	return out
}

// AppendMessage appends a transcript turn for a session.
func (s *SessionStore) AppendMessage(sessionID, role, text string) {
	s.appendTurn(domain.ConversationTurn{
		SessionID: sessionID,
		Timestamp: time.Now(),
		Role:      role,
		Text:      text,
	})
}

func (s *SessionStore) appendTurn(turn domain.ConversationTurn) {
	var toolUseID sql.NullString
	if turn.ToolUseID != "" {
		toolUseID = sql.NullString{String: turn.ToolUseID, Valid: true}
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO messages (session_id, timestamp, role, text, tool_use_id)
		 VALUES (?, ?, ?, ?, ?)`,
		turn.SessionID, turn.Timestamp.Format(tsFormat), turn.Role, turn.Text, toolUseID,
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", turn.SessionID).Msg("failed to append message")
		return
	}

	_, _ = s.db.sql.Exec(
		`UPDATE sessions SET last_updated = ? WHERE id = ?`,
		time.Now().Format(tsFormat), turn.SessionID,
	)
}

// Messages returns up to limit transcript turns for a session, oldest first.
func (s *SessionStore) Messages(sessionID string, limit int) []domain.ConversationTurn {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.sql.Query(
		`SELECT session_id, timestamp, role, text, tool_use_id
		 FROM messages WHERE session_id = ? ORDER BY id LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var turn domain.ConversationTurn
		var ts string
		var toolUseID sql.NullString
		if err := rows.Scan(&turn.SessionID, &ts, &turn.Role, &turn.Text, &toolUseID); err != nil {
			continue
		}
		turn.Timestamp, _ = time.Parse(tsFormat, ts)
		if toolUseID.Valid {
			turn.ToolUseID = toolUseID.String
		}
		turns = append(turns, turn)
	}
	return turns
}

// AppendToolCall appends a completed tool round trip record.
func (s *SessionStore) AppendToolCall(rec domain.ToolCallRecord) {
	input := rec.Input
	if len(input) == 0 {
		input = []byte("{}")
	}
	output := rec.Output
	if len(output) == 0 {
		output = []byte("{}")
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO tool_calls (session_id, timestamp, tool_name, input, output, latency_ms, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Timestamp.Format(tsFormat), rec.ToolName,
		string(input), string(output), rec.LatencyMS, string(rec.Status),
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", rec.SessionID).Str("tool", rec.ToolName).
			Msg("failed to append tool call")
	}
}

// ToolCalls returns up to limit tool-call records for a session, newest first.
func (s *SessionStore) ToolCalls(sessionID string, limit int) []domain.ToolCallRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.sql.Query(
		`SELECT session_id, timestamp, tool_name, input, output, latency_ms, status
		 FROM tool_calls WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var recs []domain.ToolCallRecord
	for rows.Next() {
		var rec domain.ToolCallRecord
		var ts, input, output, status string
		if err := rows.Scan(&rec.SessionID, &ts, &rec.ToolName, &input, &output, &rec.LatencyMS, &status); err != nil {
			continue
		}
		rec.Timestamp, _ = time.Parse(tsFormat, ts)
		rec.Input = []byte(input)
		rec.Output = []byte(output)
		rec.Status = domain.ToolCallStatus(status)
		recs = append(recs, rec)
	}
	return recs
}

// PurgeExpired deletes sessions whose expiry has passed, cascading to
// their messages and tool calls. Returns the number of sessions removed.
func (s *SessionStore) PurgeExpired() int {
	res, err := s.db.sql.Exec(
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().Format(tsFormat),
	)
	if err != nil {
		s.db.log.Error().Err(err).Msg("failed to purge expired sessions")
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}
