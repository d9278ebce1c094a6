package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/provledger/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema, also what databases from the earlier ledger carry
// 1 - Composite (subject, timestamp, id) chain index and append-only triggers
const currentSchemaVersion = 1

// maxReaders bounds the reader pool. Readers never block the writer in WAL mode.
const maxReaders = 4

// Store provides durable storage for provenance events.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	// mu serializes appends: exactly one logical writer at a time.
	mu     sync.Mutex
	writer *sql.DB
	reader *sql.DB

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// Fails with ir.ErrStorageUnavailable if the location cannot be opened or
// written. This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	writer, err := openPool(path, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: open writer: %v", ir.ErrStorageUnavailable, err)
	}

	// Schema application doubles as a write probe: a read-only location
	// fails here rather than at the first Append.
	if err := applySchema(writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", ir.ErrStorageUnavailable, err)
	}

	reader, err := openPool(path, maxReaders)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("%w: open reader: %v", ir.ErrStorageUnavailable, err)
	}

	return &Store{writer: writer, reader: reader}, nil
}

// openPool opens a connection pool whose every connection carries the
// required pragmas via the DSN.
func openPool(path string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	return db, nil
}

// uriEscaper escapes the characters SQLite's URI parser gives meaning to
// inside a file path.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn builds the go-sqlite3 connection string. Per-connection pragmas go
// in the DSN so pooled connections cannot come up without them.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "FULL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")
	return "file:" + uriEscaper.Replace(path) + "?" + params.Encode()
}

// Close closes both connection pools, flushing all writes.
// Safe to call multiple times; calls after the first are no-ops.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true

		if s.reader != nil {
			if err := s.reader.Close(); err != nil {
				s.closeErr = fmt.Errorf("close reader: %w", err)
			}
		}
		if s.writer != nil {
			if err := s.writer.Close(); err != nil && s.closeErr == nil {
				s.closeErr = fmt.Errorf("close writer: %w", err)
			}
		}
	})
	return s.closeErr
}

// DB returns the reader pool for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.reader
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	// Always written, even when already current: this is the write probe.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the chain index and makes the table append-only at the
// database level. CREATE ... IF NOT EXISTS keeps it safe to re-run.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_subject_chain
		ON provenance_events(subject, timestamp, id);

		CREATE TRIGGER IF NOT EXISTS provenance_events_no_update
		BEFORE UPDATE ON provenance_events
		BEGIN
			SELECT RAISE(ABORT, 'provenance_events is append-only');
		END;

		CREATE TRIGGER IF NOT EXISTS provenance_events_no_delete
		BEFORE DELETE ON provenance_events
		BEGIN
			SELECT RAISE(ABORT, 'provenance_events is append-only');
		END;
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value on the
// given pool. Used for testing.
func verifyPragma(ctx context.Context, db *sql.DB, name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
