package journal

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// schema is portable between SQLite and PostgreSQL. Timestamps are stored
// as Unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS relay_journal (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    kind TEXT NOT NULL,
    provider TEXT NOT NULL,
    reference TEXT,
    status TEXT NOT NULL,
    http_status INTEGER NOT NULL,
    error TEXT,
    duration_ms BIGINT NOT NULL,
    created_at BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_relay_journal_created_at ON relay_journal(created_at)`,
	`CREATE TABLE IF NOT EXISTS relay_journal_schema (
    version INTEGER PRIMARY KEY
)`,
}

const (
	insertSchemaVersion = `INSERT INTO relay_journal_schema (version) VALUES (?) ON CONFLICT (version) DO NOTHING`
	getSchemaVersion    = `SELECT version FROM relay_journal_schema ORDER BY version DESC LIMIT 1`

	insertRecord = `INSERT INTO relay_journal
    (id, request_id, kind, provider, reference, status, http_status, error, duration_ms, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecent = `SELECT id, request_id, kind, provider, reference, status, http_status, error, duration_ms, created_at
    FROM relay_journal ORDER BY created_at DESC, id DESC LIMIT ?`

	deleteBefore = `DELETE FROM relay_journal WHERE created_at < ?`
)
