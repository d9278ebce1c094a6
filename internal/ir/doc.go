// Package ir provides the shared value types of the provenance ledger.
//
// This package contains types, the event hasher and the error taxonomy only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Events are immutable once persisted (append-only)
//   - Timestamps are milliseconds since the Unix epoch, assigned by the ledger
//   - Digests are lowercase hex SHA-256 (64 characters)
//   - Proofs are a tagged structure: a real Groth16 proof or an explicit
//     Unavailable marker, never an empty proof that looks real
package ir
