package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agis/mocal/internal/contract"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS event (
	id TEXT PRIMARY KEY NOT NULL,
	startTime INTEGER NOT NULL,
	endTime INTEGER,
	name TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'GENERIC',
	description TEXT NOT NULL DEFAULT ''
)`

const selectColumns = `SELECT id, startTime, endTime, name, type, description FROM event`

// Timed events must overlap (D+1ms, D+24h-1ms) and due dates must start in
// [D, D+24h-1ms]. AND binds tighter than OR.
const dayQuery = selectColumns + `
WHERE startTime < ? + 86400000 - 1 AND endTime > ? + 1
   OR endTime IS NULL AND startTime BETWEEN ? AND ? + 86400000 - 1
ORDER BY startTime ASC, id ASC`

// DefaultPollInterval is how often watchers check for commits made by other
// connections to the same file.
const DefaultPollInterval = 500 * time.Millisecond

type SQLiteStore struct {
	path  string
	db    *sql.DB
	mu    sync.Mutex
	watch *notifier
	poll  time.Duration
	loc   *time.Location
}

// Option configures an SQLiteStore at open time.
type Option func(*SQLiteStore)

// WithPollInterval sets how often watchers look for writes from other
// processes. Zero or negative disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *SQLiteStore) { s.poll = d }
}

// WithLocation sets the zone stored instants are returned in.
func WithLocation(loc *time.Location) Option {
	return func(s *SQLiteStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// DefaultPath is where the database lives when no path is configured.
func DefaultPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "mocal", "calendar.db")
	}
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "calendar.db"
	}
	return filepath.Join(home, ".local", "share", "mocal", "calendar.db")
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the event table exists.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes every statement against the file.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	s := &SQLiteStore{path: path, db: db, watch: newNotifier(), poll: DefaultPollInterval, loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Doctor(ctx context.Context) ([]contract.DoctorCheck, error) {
	checks := []contract.DoctorCheck{}
	if err := s.db.PingContext(ctx); err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "store_open", Status: contract.CheckFail, Message: err.Error()})
		return checks, err
	}
	checks = append(checks, contract.DoctorCheck{Name: "store_open", Status: contract.CheckOK, Message: "Database reachable at " + s.path})

	var tables int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'event'`).Scan(&tables); err != nil || tables == 0 {
		msg := "event table missing"
		if err != nil {
			msg = err.Error()
		} else {
			err = errors.New(msg)
		}
		checks = append(checks, contract.DoctorCheck{Name: "schema", Status: contract.CheckFail, Message: msg})
		return checks, err
	}
	checks = append(checks, contract.DoctorCheck{Name: "schema", Status: contract.CheckOK, Message: "event table present"})

	var rows int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event`).Scan(&rows); err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "events", Status: contract.CheckFail, Message: err.Error()})
		return checks, err
	}
	checks = append(checks, contract.DoctorCheck{Name: "events", Status: contract.CheckOK, Message: fmt.Sprintf("%d events stored", rows)})
	return checks, nil
}

func (s *SQLiteStore) AllEvents(ctx context.Context) ([]contract.Event, error) {
	return s.query(ctx, selectColumns+` ORDER BY startTime ASC, id ASC`)
}

func (s *SQLiteStore) GetEventByID(ctx context.Context, id uuid.UUID) (*contract.Event, error) {
	items, err := s.query(ctx, selectColumns+` WHERE id = ? LIMIT 1`, id.String())
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &items[0], nil
}

func (s *SQLiteStore) EventsOnDay(ctx context.Context, day time.Time) ([]contract.Event, error) {
	d := day.UnixMilli()
	return s.query(ctx, dayQuery, d, d, d, d)
}

func (s *SQLiteStore) WatchAll(ctx context.Context) <-chan Snapshot {
	return watch(ctx, s.watch, s.dataVersion, s.poll, s.AllEvents)
}

func (s *SQLiteStore) WatchDay(ctx context.Context, day time.Time) <-chan Snapshot {
	return watch(ctx, s.watch, s.dataVersion, s.poll, func(ctx context.Context) ([]contract.Event, error) {
		return s.EventsOnDay(ctx, day)
	})
}

func (s *SQLiteStore) AddEvent(ctx context.Context, e contract.Event) error {
	if e.ID == uuid.Nil {
		return errors.New("event id required")
	}
	_, err := s.write(ctx,
		`INSERT INTO event (id, startTime, endTime, name, type, description) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Start.UnixMilli(), endMillis(e.End), e.Name, typeName(e.Type), e.Description,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateEvent(ctx context.Context, e contract.Event) error {
	n, err := s.write(ctx,
		`UPDATE event SET startTime = ?, endTime = ?, name = ?, type = ?, description = ? WHERE id = ?`,
		e.Start.UnixMilli(), endMillis(e.End), e.Name, typeName(e.Type), e.Description, e.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update event %s: %w", e.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}
	return nil
}

func (s *SQLiteStore) RemoveEvent(ctx context.Context, e contract.Event) error {
	return s.RemoveEventByID(ctx, e.ID)
}

// RemoveEventByID is a no-op for unknown IDs.
func (s *SQLiteStore) RemoveEventByID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.write(ctx, `DELETE FROM event WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return nil
}

// write runs one mutating statement and notifies watchers when it touched a
// row. The lock keeps notifications in commit order.
func (s *SQLiteStore) write(ctx context.Context, stmt string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.watch.broadcast()
	}
	return n, nil
}

// dataVersion moves whenever another connection commits to the file. Commits
// through this handle leave it unchanged; write broadcasts those instead.
func (s *SQLiteStore) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]contract.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	items := []contract.Event{}
	for rows.Next() {
		var (
			rawID   string
			start   int64
			end     sql.NullInt64
			name    string
			rawType string
			desc    string
		)
		if err := rows.Scan(&rawID, &start, &end, &name, &rawType, &desc); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("scan event: invalid id %q: %w", rawID, err)
		}
		e := contract.Event{
			ID:          id,
			Start:       fromMillis(start, s.loc),
			Name:        name,
			Type:        contract.EventType(rawType),
			Description: desc,
		}
		if end.Valid {
			t := fromMillis(end.Int64, s.loc)
			e.End = &t
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return items, nil
}

func fromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

func endMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func typeName(t contract.EventType) string {
	if t == "" {
		return string(contract.TypeGeneric)
	}
	return string(t)
}

var _ Store = (*SQLiteStore)(nil)
