// Package journal keeps an operator-facing audit trail of generation and
// payment relays.
//
// Each relayed call produces one Record: kind, provider, model or order ID,
// outcome, answered HTTP status, and duration. Image bytes, prompts, and
// payer details are never stored.
//
// Backends:
//
//   - memory: a fixed-size ring of the most recent records
//   - sqlite: database/sql with modernc.org/sqlite ("sqlite", pure Go) or
//     github.com/mattn/go-sqlite3 ("sqlite3", cgo)
//   - postgres: database/sql with the pgx stdlib driver, DSN from DATABASE_URL
//
// Handlers write through a Recorder, which queues records and writes them
// on a background goroutine. A Pruner deletes records past the retention
// period on a cron schedule.
package journal
