package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/provledger/internal/ir"
)

// Append inserts a new event and returns its freshly assigned id.
// ev.ID is ignored.
//
// Fails with ir.ErrDuplicateHash if ev.Hash is already stored; nothing is
// written in that case. Any other failure is ir.ErrStorageUnavailable.
//
// The insert is committed with synchronous=FULL before Append returns, so a
// returned id is never lost to a crash.
func (s *Store) Append(ctx context.Context, ev ir.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("append event: %w: store closed", ir.ErrStorageUnavailable)
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append event: begin tx: %w: %v", ir.ErrStorageUnavailable, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO provenance_events
		(subject, predicate, object, timestamp, hash)
		VALUES (?, ?, ?, ?, ?)
	`,
		ev.Subject,
		ev.Predicate,
		ev.Object,
		ev.Timestamp,
		ev.Hash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("append event: %w: %s", ir.ErrDuplicateHash, ev.Hash)
		}
		return 0, fmt.Errorf("append event: insert: %w: %v", ir.ErrStorageUnavailable, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append event: last insert id: %w: %v", ir.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append event: commit: %w: %v", ir.ErrStorageUnavailable, err)
	}

	return id, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
// The only UNIQUE column an insert can collide on is hash.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
