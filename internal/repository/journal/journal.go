package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
)

// DefaultLimit caps Recent when the query sets no limit.
const DefaultLimit = 50

var errJournalClosed = errors.New("journal is closed")

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT    NOT NULL,
	at_unix_ms  INTEGER NOT NULL,
	engine_ms   INTEGER NOT NULL,
	kind        TEXT    NOT NULL,
	alarm_index INTEGER NOT NULL,
	alarm_name  TEXT    NOT NULL,
	detail      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS events_session_idx ON events (session_id, id);
`

// Entry is a stored event.
type Entry struct {
	ID        int64
	SessionID string
	lookout.Event
}

// Query filters Recent.
type Query struct {
	// Limit caps the number of entries; zero selects DefaultLimit.
	Limit int
	// SessionID restricts entries to one session.
	SessionID string
	// Kind restricts entries to one event kind.
	Kind lookout.EventKind
}

// Journal is an SQLite-backed event log. It implements engine.EventSink.
type Journal struct {
	db        *sql.DB
	sessionID string
}

// Open opens or creates the database at path and starts a new session.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// One writer keeps SQLite free of lock contention.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	j := &Journal{
		db:        db,
		sessionID: uuid.NewString(),
	}

	logger.InfoKV(ctx, "Event journal opened", "path", path, "session_id", j.sessionID)

	return j, nil
}

// SessionID returns the identifier of the current run.
func (j *Journal) SessionID() string {
	return j.sessionID
}

// Record stores an event. Failures are logged and dropped so the engine
// never stalls on storage.
func (j *Journal) Record(ctx context.Context, event lookout.Event) {
	if err := j.Append(ctx, event); err != nil {
		logger.WarnKV(ctx, "Event not journaled", "kind", event.Kind, "error", err)
	}
}

// Append stores an event and reports failures.
func (j *Journal) Append(ctx context.Context, event lookout.Event) error {
	if j.db == nil {
		return errJournalClosed
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (session_id, at_unix_ms, engine_ms, kind, alarm_index, alarm_name, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.sessionID,
		event.At.UnixMilli(),
		event.EngineMs,
		string(event.Kind),
		event.AlarmIndex,
		event.AlarmName,
		event.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// Recent returns the newest matching entries, newest first.
func (j *Journal) Recent(ctx context.Context, q Query) ([]Entry, error) {
	if j.db == nil {
		return nil, errJournalClosed
	}

	var (
		where []string
		args  []any
	)

	if q.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, q.SessionID)
	}

	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, session_id, at_unix_ms, engine_ms, kind, alarm_index, alarm_name, detail FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	defer rows.Close()

	entries := make([]Entry, 0, limit)

	for rows.Next() {
		var (
			e    Entry
			atMs int64
			kind string
		)

		if err = rows.Scan(&e.ID, &e.SessionID, &atMs, &e.EngineMs, &kind,
			&e.AlarmIndex, &e.AlarmName, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		e.At = time.UnixMilli(atMs)
		e.Kind = lookout.EventKind(kind)
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	return entries, nil
}

// CountByKind tallies the events of one session.
func (j *Journal) CountByKind(ctx context.Context, sessionID string) (map[lookout.EventKind]int, error) {
	if j.db == nil {
		return nil, errJournalClosed
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM events WHERE session_id = ? GROUP BY kind`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	defer rows.Close()

	counts := make(map[lookout.EventKind]int)

	for rows.Next() {
		var (
			kind  string
			count int
		)

		if err = rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}

		counts[lookout.EventKind(kind)] = count
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("read counts: %w", err)
	}

	return counts, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}

	err := j.db.Close()
	j.db = nil

	return err
}
