package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions, messages and tool_calls",
		SQL: `
			CREATE TABLE sessions (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL DEFAULT 'anonymous',
				state        TEXT NOT NULL DEFAULT 'active',
				start_time   TEXT NOT NULL,
				last_updated TEXT NOT NULL,
				expires_at   TEXT NOT NULL
			);

			CREATE INDEX idx_sessions_state ON sessions (state);
			CREATE INDEX idx_sessions_updated ON sessions (last_updated);

			CREATE TABLE messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				timestamp   TEXT NOT NULL,
				role        TEXT NOT NULL,
				text        TEXT NOT NULL,
				tool_use_id TEXT
			);

			CREATE INDEX idx_messages_session ON messages (session_id, id);

			CREATE TABLE tool_calls (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				timestamp   TEXT NOT NULL,
				tool_name   TEXT NOT NULL,
				input       TEXT NOT NULL,
				output      TEXT NOT NULL,
				latency_ms  INTEGER NOT NULL,
				status      TEXT NOT NULL
			);

			CREATE INDEX idx_tool_calls_session ON tool_calls (session_id, id);
		`,
	},
	{
		Version: 2,
		Name:    "index sessions by expiry for purging",
		SQL: `
			CREATE INDEX idx_sessions_expires ON sessions (expires_at);
		`,
	},
}
