// Package harness runs provenance ledger scenarios as executable contract tests.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: record_and_verify
//	description: "What this scenario validates"
//	clock: { start: 1700000000000, step: 1 }
//	proof_system: available        # or "unavailable"
//	steps:
//	  - op: record
//	    subj: http://example.org/Human1
//	    obj: http://example.org/Company1
//	    as: first
//	    expect: { proof: groth16 }
//	  - op: verify
//	    ref: first
//	    tamper: hash                 # hash | signal | commitment | proof
//	    expect: { valid: false }
//	  - op: chain
//	    uri: http://example.org/Human1
//	    expect: { length: 1, objects: [http://example.org/Company1] }
//	  - op: reprove
//	    ref: first
//	assertions:
//	  - type: event_count
//	    count: 1
//	  - type: chain_ordered
//	    uri: http://example.org/Human1
//	  - type: hashes_match
//
// A step without expect.error must succeed; expect.error names the ledger
// error code the step must fail with (e.g. DUPLICATE_HASH).
//
// # Assertion Types
//
//   - event_count: the store holds exactly Count events
//   - chain_ordered: the chain for URI is non-decreasing by timestamp, ties by id
//   - hashes_match: every stored event's hash equals its recomputed digest
//
// # Deterministic Testing
//
// Each scenario runs against a fresh SQLite file with a
// testutil.DeterministicClock, so hashes are identical across runs. Traces
// record proof kinds and verification results but never proof bytes, so
// golden files hold for both the stub prover and the Groth16 engine.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/record_and_verify.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario, harness.Options{})
package harness
