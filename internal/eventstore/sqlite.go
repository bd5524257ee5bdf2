package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the ledger at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, ferrors.StoreError("could not create ledger directory").WithCause(err).Build()
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.StoreError("could not open ledger database").WithCause(err).Build()
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.StoreError("failed to initialize ledger schema").WithCause(err).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		package TEXT NOT NULL,
		version TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_release ON events(package, version);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store. A zero timestamp is set to now.
func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if e.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return ferrors.StoreError("marshal metadata").WithCause(err).Build()
		}
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	payload := e.Payload
	if payload == nil {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (run_id, event_type, package, version, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.RunID, e.Type, e.Package, e.Version, ts.UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return ferrors.StoreError("failed to append event to ledger").
			WithCause(err).
			WithContext("type", e.Type).
			Build()
	}
	return nil
}

const selectColumns = "SELECT id, run_id, event_type, package, version, timestamp, payload, metadata FROM events"

// Recent returns up to limit events, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, selectColumns+" ORDER BY id DESC LIMIT ?", limit)
}

// GetByRelease returns the events for one package version, oldest first.
func (s *SQLiteStore) GetByRelease(ctx context.Context, pkg, version string) ([]Event, error) {
	return s.query(ctx, selectColumns+" WHERE package = ? AND version = ? ORDER BY id", pkg, version)
}

// GetByRunID returns the events recorded by one run, oldest first.
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) ([]Event, error) {
	return s.query(ctx, selectColumns+" WHERE run_id = ? ORDER BY id", runID)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, ferrors.StoreError("failed to query ledger").WithCause(err).Build()
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var tsMillis int64
		var metadataJSON []byte

		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &e.Package, &e.Version, &tsMillis, &e.Payload, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = time.UnixMilli(tsMillis).UTC()

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
