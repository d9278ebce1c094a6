// Package store provides SQLite-backed durable storage for provenance events.
//
// The store implements an append-only log of causal events with:
//   - Auto-incrementing event ids assigned on append
//   - A UNIQUE hash column: a digest can be stored at most once
//   - Secondary indices on subject and hash so both lookups are sub-linear
//   - Triggers that abort any UPDATE or DELETE (append-only)
//
// # Concurrency
//
// Single writer, many readers. Appends are serialized by a mutex and run on
// a dedicated one-connection pool; queries run on a separate reader pool and
// observe either the pre- or post-append state. Each event is inserted in its
// own transaction, so readers never see a torn event.
//
// # Deterministic Query Results
//
// Chain queries order by timestamp ASC, id ASC. Ties on timestamp fall back
// to insertion order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=FULL: a successful Append survives a crash
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
