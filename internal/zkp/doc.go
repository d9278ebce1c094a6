// Package zkp is the proof engine: it binds a public event digest to hidden
// circuit inputs with a Groth16 proof over BN254, and lets any verifier
// check that binding.
//
// The circuit proves knowledge of field elements (subject, object,
// timestamp) such that
//
//	MiMC(subject, object, timestamp, digestHi, digestLo) == commitment
//
// where digestHi/digestLo are the two 128-bit halves of the event digest and
// commitment is published alongside it. Subject and object enter the circuit
// as ir.FieldElement values, so the proof speaks about hashed
// representations of the URIs, never the raw strings.
//
// Public signals are ordered [digest, commitment]. The digest is carried as
// its 64-character hex form so that publicSignals[0] equals the record hash.
//
// # Artifacts
//
// Setup compiles the circuit and runs the Groth16 setup, writing the
// constraint system, proving key, verifying key and a manifest.yaml with
// SHA-256 checksums. Engine loads them lazily on first use and caches the
// result for the life of the process. Missing or corrupt artifacts surface as
// ir.ErrProofSystemUnavailable.
//
// Verify is a pure function of (proof, publicSignals, verifying key). It
// rejects Unavailable placeholder proofs explicitly.
package zkp
