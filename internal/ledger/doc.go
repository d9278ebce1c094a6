// Package ledger implements the provenance ledger service.
//
// A Ledger orchestrates the hasher (ir.Digest), the event store and the
// proof engine to record causal events, verify proofs and return chains.
//
// LIFECYCLE:
//
// Each recorded event moves through these stages:
//
//	Pending -> Hashed -> Persisted -> Proven -> Recorded
//
// The event is durable once it reaches Persisted. A failure after that
// point (proof system unavailable, proof timeout, prover error) never rolls
// the event back; the record is returned with an explicit Unavailable proof
// and the proof can be regenerated later with Reprove.
//
// CONCURRENCY:
//
// The store serializes appends. Proof generation runs after the append has
// committed, outside any store lock, bounded by the configured proof
// timeout. Timestamps come from a monotonic millisecond clock so two
// records made by one Ledger never share a timestamp.
//
// Verification is a predicate: VerifyProof returns false on any failure
// and never returns an error.
package ledger
