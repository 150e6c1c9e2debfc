package cost

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// CounterStore persists per-key accumulating float counters with a TTL,
// backing the daily and month-to-date spend counters. A background reaper
// is not required: Increment sweeps its own expired rows lazily since the
// counter table is small (one row per tenant per period).
type CounterStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteCounterStore opens (creating if absent) a SQLite-backed counter
// store. dsn defaults to "nexus-cost.db" when empty.
func NewSQLiteCounterStore(dsn string) (*CounterStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "nexus-cost.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cost store: %w", err)
	}
	s := &CounterStore{db: db, dialect: "sqlite"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresCounterStore opens a Postgres-backed counter store.
func NewPostgresCounterStore(dsn string) (*CounterStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres cost store: %w", err)
	}
	s := &CounterStore{db: db, dialect: "postgres"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *CounterStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s cost store: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS cost_counters (
	key TEXT PRIMARY KEY,
	value REAL NOT NULL,
	expires_at TIMESTAMP NOT NULL
);`
	if s.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS cost_counters (
	key TEXT PRIMARY KEY,
	value DOUBLE PRECISION NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);`
	}
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize cost counter schema: %w", err)
	}
	return nil
}

func (s *CounterStore) bind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Increment atomically adds delta to the counter at key, resetting its
// expiry to now+ttl, and creates the row with value=delta if absent. An
// expired row is treated as if it did not exist (increments from zero).
func (s *CounterStore) Increment(ctx context.Context, key string, delta float64, ttl time.Duration) error {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	var current float64
	var expiresAtStored time.Time
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT value, expires_at FROM cost_counters WHERE key = ?`), key).Scan(&current, &expiresAtStored)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx, s.bind(`INSERT INTO cost_counters(key, value, expires_at) VALUES(?, ?, ?)`), key, delta, expiresAt)
		return err
	case err != nil:
		return fmt.Errorf("read cost counter %q: %w", key, err)
	}

	if now.After(expiresAtStored) {
		_, err = s.db.ExecContext(ctx, s.bind(`UPDATE cost_counters SET value = ?, expires_at = ? WHERE key = ?`), delta, expiresAt, key)
		return err
	}

	_, err = s.db.ExecContext(ctx, s.bind(`UPDATE cost_counters SET value = value + ?, expires_at = ? WHERE key = ?`), delta, expiresAt, key)
	return err
}

// Get reads the current value for key, returning 0 if the key is missing or
// expired.
func (s *CounterStore) Get(ctx context.Context, key string) (float64, error) {
	var value float64
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT value, expires_at FROM cost_counters WHERE key = ?`), key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cost counter %q: %w", key, err)
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, nil
	}
	return value, nil
}

// Close releases the underlying database handle.
func (s *CounterStore) Close() error {
	return s.db.Close()
}
