package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store persists the audit chain to SQLite or Postgres and allows a
// read-only snapshot to be replayed for verification.
type Store struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteStore opens (creating if absent) a SQLite-backed audit store.
func NewSQLiteStore(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "nexus-audit.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite audit store: %w", err)
	}
	s := &Store{db: db, dialect: "sqlite"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore opens a Postgres-backed audit store.
func NewPostgresStore(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres audit store: %w", err)
	}
	s := &Store{db: db, dialect: "postgres"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s audit store: %w", s.dialect, err)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	actor_id TEXT,
	event TEXT NOT NULL,
	resource TEXT NOT NULL,
	resource_id TEXT,
	details TEXT NOT NULL,
	ip_address TEXT,
	prev_hash TEXT NOT NULL,
	entry_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);`
	if s.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	actor_id TEXT,
	event TEXT NOT NULL,
	resource TEXT NOT NULL,
	resource_id TEXT,
	details TEXT NOT NULL,
	ip_address TEXT,
	prev_hash TEXT NOT NULL,
	entry_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`
	}
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize audit schema: %w", err)
	}
	return nil
}

func (s *Store) bind(query string) string {
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

// lastHash returns the entry_hash of the most recently inserted row, or
// genesisHash if the table is empty.
func (s *Store) lastHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT entry_hash FROM audit_entries ORDER BY seq DESC LIMIT 1`).Scan(&hash)
	if err == sql.ErrNoRows {
		return genesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("read last audit hash: %w", err)
	}
	return hash, nil
}

// insert persists one already-hashed entry.
func (s *Store) insert(ctx context.Context, e Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	query := s.bind(`INSERT INTO audit_entries(id, tenant_id, actor_id, event, resource, resource_id, details, ip_address, prev_hash, entry_hash, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query, e.ID, e.TenantID, e.ActorID, e.Event, e.Resource, e.ResourceID, string(details), e.IPAddress, e.PrevHash, e.EntryHash, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Sequence loads every persisted entry in append order, for Verify.
func (s *Store) Sequence(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, tenant_id, actor_id, event, resource, resource_id, details, ip_address, prev_hash, entry_hash, created_at FROM audit_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("load audit sequence: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			actorID    sql.NullString
			resourceID sql.NullString
			ipAddress  sql.NullString
			detailsRaw string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &actorID, &e.Event, &e.Resource, &resourceID, &detailsRaw, &ipAddress, &e.PrevHash, &e.EntryHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ActorID = actorID.String
		e.ResourceID = resourceID.String
		e.IPAddress = ipAddress.String
		if err := json.Unmarshal([]byte(detailsRaw), &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshal audit details: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
