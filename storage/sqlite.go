package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"obsquery/core"
	"obsquery/metrics"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// sqliteLookupChunk bounds the number of bound parameters per IN query.
const sqliteLookupChunk = 500

// SQLiteEventStore is a document store kept in a single SQLite file. Each
// event is stored as its JSON document keyed by id.
type SQLiteEventStore struct {
	WriteDB *sql.DB // single writer
	ReadDB  *sql.DB // concurrent readers, query_only
	Path    string
	logger  *zap.SugaredLogger
}

// sqliteDSN builds a modernc DSN whose pragmas apply to every pooled connection.
func sqliteDSN(dbPath string, pragmas ...string) string {
	values := url.Values{}
	for _, p := range pragmas {
		values.Add("_pragma", p)
	}
	if dbPath == ":memory:" {
		values.Set("cache", "shared")
		return "file::memory:?" + values.Encode()
	}
	return "file:" + dbPath + "?" + values.Encode()
}

// NewSQLiteEventStore opens (creating if needed) the database at dbPath.
func NewSQLiteEventStore(dbPath string, logger *zap.SugaredLogger) (*SQLiteEventStore, error) {
	if err := validateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	dir := filepath.Dir(dbPath)
	if dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	writeDB, err := sql.Open("sqlite", sqliteDSN(dbPath, "journal_mode(WAL)", "busy_timeout(5000)"))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)

	if err := verifyJournalMode(writeDB, dbPath); err != nil {
		_ = writeDB.Close()
		return nil, err
	}

	store := &SQLiteEventStore{WriteDB: writeDB, Path: dbPath, logger: logger}
	if err := store.createTables(); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	readDB, err := sql.Open("sqlite", sqliteDSN(dbPath, "busy_timeout(5000)", "query_only(1)"))
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxIdleTime(10 * time.Minute)
	if err := readDB.Ping(); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to ping SQLite read database: %w", err)
	}
	store.ReadDB = readDB

	logger.Infof("SQLite event store initialized at %s", dbPath)
	return store, nil
}

// verifyJournalMode checks that WAL took effect. In-memory databases report "memory".
func verifyJournalMode(db *sql.DB, dbPath string) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got: %s, expected: wal)", journalMode)
	}
	return nil
}

func (s *SQLiteEventStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		import_time DATETIME NOT NULL,
		document TEXT NOT NULL -- JSON object
	);
	CREATE INDEX IF NOT EXISTS idx_events_import_time ON events(import_time DESC);
	`
	_, err := s.WriteDB.Exec(schema)
	return err
}

// Lookup fetches the records for ids. Large id lists are split into chunks.
func (s *SQLiteEventStore) Lookup(ctx context.Context, ids []string) (map[string]map[string]interface{}, error) {
	docs := make(map[string]map[string]interface{}, len(ids))

	for start := 0; start < len(ids); start += sqliteLookupChunk {
		end := start + sqliteLookupChunk
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.lookupChunk(ctx, ids[start:end], docs); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *SQLiteEventStore) lookupChunk(ctx context.Context, ids []string, docs map[string]map[string]interface{}) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	// #nosec G201 -- only placeholders are interpolated
	query := fmt.Sprintf("SELECT id, document FROM events WHERE id IN (%s)", placeholders)
	rows, err := s.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, document string
		if err := rows.Scan(&id, &document); err != nil {
			return fmt.Errorf("failed to scan event: %w", err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(document), &doc); err != nil {
			// Kept so the resolver reports it as malformed instead of missing.
			s.logger.Warnw("stored event is not valid JSON", "id", id, "error", err)
			doc = map[string]interface{}{}
		}
		docs[id] = doc
	}
	return rows.Err()
}

// PutEvents inserts or replaces events in one transaction.
func (s *SQLiteEventStore) PutEvents(ctx context.Context, events []*core.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.WriteDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, import_time, document) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET import_time = excluded.import_time, document = excluded.document`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		if event.ID == "" {
			return ErrEventWithoutID
		}
		document, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, event.ID, event.ImportTime.UTC(), string(document)); err != nil {
			return fmt.Errorf("failed to store event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	metrics.EventsLoaded.WithLabelValues(BackendSQLite).Add(float64(len(events)))
	return nil
}

// Count returns the number of stored events.
func (s *SQLiteEventStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.ReadDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// HealthCheck pings both pools.
func (s *SQLiteEventStore) HealthCheck(ctx context.Context) error {
	if err := s.WriteDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite write pool: %w", err)
	}
	if err := s.ReadDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite read pool: %w", err)
	}
	return nil
}

// Close closes both pools.
func (s *SQLiteEventStore) Close() error {
	readErr := s.ReadDB.Close()
	if err := s.WriteDB.Close(); err != nil {
		return err
	}
	return readErr
}

// validateDatabasePath rejects paths that could escape the intended location.
func validateDatabasePath(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if len(dbPath) > 512 {
		return fmt.Errorf("database path exceeds maximum length of 512 characters")
	}
	if strings.Contains(dbPath, "..") {
		return fmt.Errorf("path traversal not allowed (..): %s", dbPath)
	}
	if strings.Contains(dbPath, "\x00") {
		return fmt.Errorf("null bytes not allowed in path")
	}
	if strings.ContainsAny(dbPath, "?#") {
		return fmt.Errorf("query characters not allowed in path: %s", dbPath)
	}
	return nil
}
