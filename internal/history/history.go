// Package history persists resolution and load events so operators can
// reconstruct why a version was (or was not) picked after the fact.
package history

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds recorded by the manager.
const (
	KindResolve  = "resolve"
	KindLoad     = "load"
	KindConflict = "conflict"
	KindClose    = "close"
)

// Event is one recorded lifecycle fact.
type Event struct {
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"`
	Family    string    `json:"family"`
	Requested string    `json:"requested,omitempty"`
	Resolved  string    `json:"resolved,omitempty"`
	GPU       bool      `json:"gpu,omitempty"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
}

// Store is a sqlite-backed event log.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  at INTEGER NOT NULL,
  kind TEXT NOT NULL,
  family TEXT NOT NULL,
  requested TEXT NOT NULL DEFAULT '',
  resolved TEXT NOT NULL DEFAULT '',
  gpu INTEGER NOT NULL DEFAULT 0,
  ok INTEGER NOT NULL DEFAULT 0,
  detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);
`)
	return err
}

// Record appends one event.
func (s *Store) Record(ctx context.Context, e Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (at, kind, family, requested, resolved, gpu, ok, detail) VALUES (?,?,?,?,?,?,?,?);`,
		at.Unix(), e.Kind, e.Family, e.Requested, e.Resolved, boolInt(e.GPU), boolInt(e.OK), e.Detail)
	return err
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, kind, family, requested, resolved, gpu, ok, detail FROM events ORDER BY id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var at int64
		var gpu, ok int
		if err := rows.Scan(&at, &e.Kind, &e.Family, &e.Requested, &e.Resolved, &gpu, &ok, &e.Detail); err != nil {
			return nil, err
		}
		e.At = time.Unix(at, 0)
		e.GPU = gpu != 0
		e.OK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
