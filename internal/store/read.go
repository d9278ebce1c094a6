package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/provledger/internal/ir"
)

const eventColumns = `id, subject, predicate, object, timestamp, hash`

// QueryBySubject returns all events whose subject equals uri.
// Results are ordered deterministically: ORDER BY timestamp ASC, id ASC.
//
// Returns an empty slice (not nil) if no events match.
func (s *Store) QueryBySubject(ctx context.Context, uri string) ([]ir.Event, error) {
	rows, err := s.reader.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM provenance_events
		WHERE subject = ?
		ORDER BY timestamp ASC, id ASC
	`, uri)
	if err != nil {
		return nil, fmt.Errorf("query events by subject: %w: %v", ir.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w: %v", ir.ErrStorageUnavailable, err)
	}

	return events, nil
}

// Get retrieves a single event by id.
// Returns ir.ErrEventNotFound if no such event exists.
func (s *Store) Get(ctx context.Context, id int64) (ir.Event, error) {
	row := s.reader.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM provenance_events
		WHERE id = ?
	`, id)

	ev, err := scanEvent(row)
	if err != nil {
		return ir.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return ev, nil
}

// GetByHash retrieves a single event by its digest.
// Returns ir.ErrEventNotFound if no such event exists.
func (s *Store) GetByHash(ctx context.Context, hash string) (ir.Event, error) {
	row := s.reader.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM provenance_events
		WHERE hash = ?
	`, hash)

	ev, err := scanEvent(row)
	if err != nil {
		return ir.Event{}, fmt.Errorf("get event by hash: %w", err)
	}
	return ev, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM provenance_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w: %v", ir.ErrStorageUnavailable, err)
	}
	return n, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEvent scans a row into an Event struct.
func scanEvent(row scanner) (ir.Event, error) {
	var ev ir.Event
	if err := row.Scan(
		&ev.ID, &ev.Subject, &ev.Predicate, &ev.Object, &ev.Timestamp, &ev.Hash,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Event{}, ir.ErrEventNotFound
		}
		return ir.Event{}, fmt.Errorf("scan event: %w: %v", ir.ErrStorageUnavailable, err)
	}
	return ev, nil
}
