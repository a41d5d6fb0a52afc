// Package buildlog records the history of static exports in SQLite.
package buildlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

// EventType names a build lifecycle event.
type EventType string

const (
	BuildStarted   EventType = "build.started"
	PagesRendered  EventType = "build.pages_rendered"
	LinksChecked   EventType = "build.links_checked"
	BuildCompleted EventType = "build.completed"
	BuildFailed    EventType = "build.failed"
)

// Event is one recorded build event.
type Event struct {
	ID        int64
	BuildID   string
	Type      EventType
	Timestamp time.Time
	Payload   json.RawMessage
}

// Summary condenses the events of one build.
type Summary struct {
	BuildID  string
	Started  time.Time
	Finished time.Time
	Outcome  string // completed, failed or running
	Pages    int
	Events   int
	Error    string
}

// Store implements build history on SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "could not open build history database").
			WithContext("path", path).
			Build()
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to initialize build history schema").Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_build_id ON events(build_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records an event. payload is stored as JSON; nil stores {}.
func (s *Store) Append(ctx context.Context, buildID string, typ EventType, payload any) error {
	raw := []byte("{}")
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to marshal event payload").Build()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, timestamp, payload) VALUES (?, ?, ?, ?)",
		buildID, string(typ), s.now().UnixMilli(), raw,
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "failed to append build event").
			WithContext("build_id", buildID).
			Build()
	}
	return nil
}

// Events returns every event of a build in the order recorded.
func (s *Store) Events(ctx context.Context, buildID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload FROM events WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to query build events").Build()
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			ts      int64
			ty      string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.BuildID, &ty, &ts, &payload); err != nil {
			return nil, errors.WrapError(err, errors.CategoryStorage, "failed to scan build event").Build()
		}
		e.Type = EventType(ty)
		e.Payload = payload
		e.Timestamp = time.UnixMilli(ts).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to iterate build events").Build()
	}
	if len(events) == 0 {
		return nil, errors.NotFound("build not found").WithContext("build_id", buildID).Build()
	}
	return events, nil
}

// Builds summarises the most recent builds, newest first.
func (s *Store) Builds(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id FROM events GROUP BY build_id ORDER BY MIN(id) DESC LIMIT ?`, limit)
	if err != nil {
		s.mu.RUnlock()
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to query builds").Build()
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			s.mu.RUnlock()
			return nil, errors.WrapError(err, errors.CategoryStorage, "failed to scan build id").Build()
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	s.mu.RUnlock()

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		events, err := s.Events(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(id, events))
	}
	return out, nil
}

type outcomePayload struct {
	Pages int    `json:"pages"`
	Error string `json:"error"`
}

func summarize(id string, events []Event) Summary {
	sum := Summary{BuildID: id, Outcome: "running", Events: len(events)}
	for _, e := range events {
		if sum.Started.IsZero() || e.Timestamp.Before(sum.Started) {
			sum.Started = e.Timestamp
		}
		var p outcomePayload
		_ = json.Unmarshal(e.Payload, &p)
		switch e.Type {
		case PagesRendered:
			sum.Pages = p.Pages
		case BuildCompleted:
			sum.Outcome, sum.Finished = "completed", e.Timestamp
			if p.Pages > 0 {
				sum.Pages = p.Pages
			}
		case BuildFailed:
			sum.Outcome, sum.Finished, sum.Error = "failed", e.Timestamp, p.Error
		}
	}
	return sum
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
