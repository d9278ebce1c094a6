package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/provledger/internal/ir"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with its digest computed from the fields.
func createTestEvent(subject, object string, timestamp int64) ir.Event {
	return ir.Event{
		Subject:   subject,
		Predicate: ir.PredicateCauses,
		Object:    object,
		Timestamp: timestamp,
		Hash:      ir.Digest(subject, object, timestamp),
	}
}
