package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// database/sql driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverPgx     = "pgx"     // github.com/jackc/pgx/v5/stdlib
)

// SQLStore persists records through database/sql. The same statements run
// on SQLite and PostgreSQL; placeholders are rewritten for PostgreSQL.
type SQLStore struct {
	db       *sql.DB
	backend  string
	postgres bool
	logger   *slog.Logger
}

// OpenSQLite opens (creating if needed) a SQLite journal at path.
func OpenSQLite(ctx context.Context, driver, path string, busyTimeout time.Duration) (*SQLStore, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverSQLite3 {
		return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: fmt.Errorf("unknown driver %q", driver)}
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: err}
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: err}
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, backend: "sqlite", logger: slog.Default().With("component", "journal.sqlite")}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=" + strconv.FormatInt(busyTimeout.Milliseconds(), 10),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, &StorageError{Backend: "sqlite", Operation: "pragma", Cause: err}
		}
	}

	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("journal storage initialized", "path", path, "driver", driver)
	return s, nil
}

// OpenPostgres opens a PostgreSQL journal using the pgx driver.
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int) (*SQLStore, error) {
	if dsn == "" {
		return nil, &StorageError{Backend: "postgres", Operation: "open", Cause: errors.New("empty DSN")}
	}

	db, err := sql.Open(DriverPgx, dsn)
	if err != nil {
		return nil, &StorageError{Backend: "postgres", Operation: "open", Cause: err}
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	s := &SQLStore{db: db, backend: "postgres", postgres: true, logger: slog.Default().With("component", "journal.postgres")}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("journal storage initialized", "max_open_conns", maxOpenConns)
	return s, nil
}

func (s *SQLStore) initialize(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &StorageError{Backend: s.backend, Operation: "create_schema", Cause: err}
		}
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(insertSchemaVersion), SchemaVersion); err != nil {
		return &StorageError{Backend: s.backend, Operation: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRowContext(ctx, getSchemaVersion).Scan(&version); err != nil {
		return &StorageError{Backend: s.backend, Operation: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{
			Backend:   s.backend,
			Operation: "schema_version_mismatch",
			Cause:     fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version),
		}
	}
	return nil
}

// Record implements Store.
func (s *SQLStore) Record(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, s.rebind(insertRecord),
		rec.ID, nullString(rec.RequestID), rec.Kind, rec.Provider, nullString(rec.Reference),
		rec.Status, rec.HTTPStatus, nullString(rec.Error), rec.DurationMs, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return &StorageError{Backend: s.backend, Operation: "record", Cause: err}
	}
	return nil
}

// Recent implements Store.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectRecent), limit)
	if err != nil {
		return nil, &StorageError{Backend: s.backend, Operation: "recent", Cause: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                          Record
			requestID, reference, errCol sql.NullString
			createdAt                    int64
		)
		if err := rows.Scan(&rec.ID, &requestID, &rec.Kind, &rec.Provider, &reference,
			&rec.Status, &rec.HTTPStatus, &errCol, &rec.DurationMs, &createdAt); err != nil {
			return nil, &StorageError{Backend: s.backend, Operation: "scan", Cause: err}
		}
		rec.RequestID = requestID.String
		rec.Reference = reference.String
		rec.Error = errCol.String
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: s.backend, Operation: "recent", Cause: err}
	}
	return out, nil
}

// Prune implements Store.
func (s *SQLStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(deleteBefore), before.UnixMilli())
	if err != nil {
		return 0, &StorageError{Backend: s.backend, Operation: "prune", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: s.backend, Operation: "prune", Cause: err}
	}
	return n, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
