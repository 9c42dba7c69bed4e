package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebuka1017/Robin/internal/domain"
	"github.com/ebuka1017/Robin/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"sessions", "messages", "tool_calls"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Session Store tests ---

func TestSessionStore_CreateAndGet(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	sess, err := ss.CreateSession("user-1", 24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, domain.SessionActive, sess.State)
	assert.True(t, sess.ExpiresAt.After(sess.StartTime))

	got := ss.GetSession(sess.ID)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, domain.SessionActive, got.State)
}

func TestSessionStore_AnonymousUser(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	sess, err := ss.CreateSession("", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", sess.UserID)
}

func TestSessionStore_GetMissing(t *testing.T) {
	ss := NewSessionStore(testDB(t))
	assert.Nil(t, ss.GetSession("nope"))
}

func TestSessionStore_UpdateState(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	sess, err := ss.CreateSession("u", time.Hour)
	require.NoError(t, err)

	ss.UpdateSessionState(sess.ID, domain.SessionEnded)

	got := ss.GetSession(sess.ID)
	require.NotNil(t, got)
	assert.Equal(t, domain.SessionEnded, got.State)
	assert.False(t, got.LastUpdated.Before(sess.LastUpdated))
}

func TestSessionStore_List(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	for i := 0; i < 3; i++ {
		_, err := ss.CreateSession("u", time.Hour)
		require.NoError(t, err)
	}

	list := ss.ListSessions(2)
	assert.Len(t, list, 2)

	list = ss.ListSessions(10)
	assert.Len(t, list, 3)
}

// --- Transcript tests ---

func TestMessages_AppendAndOrder(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	sess, err := ss.CreateSession("u", time.Hour)
	require.NoError(t, err)

	ss.AppendMessage(sess.ID, domain.RoleUser, "what time is my standup")
	ss.AppendMessage(sess.ID, domain.RoleAssistant, "Your standup is at 9:30.")
	ss.AppendMessage(sess.ID, domain.RoleUser, "thanks")

	turns := ss.Messages(sess.ID, 50)
	require.Len(t, turns, 3)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "what time is my standup", turns[0].Text)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)
	assert.Equal(t, "thanks", turns[2].Text)
}

func TestMessages_Limit(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	sess, err := ss.CreateSession("u", time.Hour)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ss.AppendMessage(sess.ID, domain.RoleUser, "msg")
	}
	assert.Len(t, ss.Messages(sess.ID, 3), 3)
}

func TestMessages_IsolatedPerSession(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	a, err := ss.CreateSession("u", time.Hour)
	require.NoError(t, err)
	b, err := ss.CreateSession("u", time.Hour)
	require.NoError(t, err)

	ss.AppendMessage(a.ID, domain.RoleUser, "for a")
	ss.AppendMessage(b.ID, domain.RoleUser, "for b")

	turns := ss.Messages(a.ID, 50)
	require.Len(t, turns, 1)
	assert.Equal(t, "for a", turns[0].Text)
}

// --- Tool call tests ---

func TestToolCalls_AppendAndRead(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	sess, err := ss.CreateSession("u", time.Hour)
	require.NoError(t, err)

	ss.AppendToolCall(domain.ToolCallRecord{
		SessionID: sess.ID,
		Timestamp: time.Now(),
		ToolName:  "search_email",
		Input:     json.RawMessage(`{"query":"invoice"}`),
		Output:    json.RawMessage(`{"count":2}`),
		LatencyMS: 120,
		Status:    domain.ToolCallSuccess,
	})
	ss.AppendToolCall(domain.ToolCallRecord{
		SessionID: sess.ID,
		Timestamp: time.Now(),
		ToolName:  "send_slack",
		LatencyMS: 40,
		Status:    domain.ToolCallFailed,
	})

	calls := ss.ToolCalls(sess.ID, 50)
	require.Len(t, calls, 2)

	// Newest first.
	assert.Equal(t, "send_slack", calls[0].ToolName)
	assert.Equal(t, domain.ToolCallFailed, calls[0].Status)
	assert.JSONEq(t, `{}`, string(calls[0].Input))

	assert.Equal(t, "search_email", calls[1].ToolName)
	assert.JSONEq(t, `{"query":"invoice"}`, string(calls[1].Input))
	assert.JSONEq(t, `{"count":2}`, string(calls[1].Output))
	assert.Equal(t, int64(120), calls[1].LatencyMS)
}

// --- Retention tests ---

func TestPurgeExpired(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	expired, err := ss.CreateSession("u", -time.Hour)
	require.NoError(t, err)
	ss.AppendMessage(expired.ID, domain.RoleUser, "old")

	live, err := ss.CreateSession("u", time.Hour)
	require.NoError(t, err)

	n := ss.PurgeExpired()
	assert.Equal(t, 1, n)

	assert.Nil(t, ss.GetSession(expired.ID))
	assert.NotNil(t, ss.GetSession(live.ID))

	// Cascade removed the expired session's messages.
	assert.Empty(t, ss.Messages(expired.ID, 50))
}
