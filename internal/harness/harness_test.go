package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provledger/internal/ir"
	"github.com/roach88/provledger/internal/testutil"
)

func runYAML(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	if opts.TempDir == "" {
		opts.TempDir = t.TempDir()
	}
	result, err := Run(context.Background(), s, opts)
	require.NoError(t, err)
	return result
}

func TestRun_ExpectationMismatch(t *testing.T) {
	result := runYAML(t, `
name: wrong
description: "expects the wrong things"
steps:
  - op: record
    subj: a
    obj: b
    as: r
    expect:
      proof: unavailable
  - op: verify
    ref: r
    expect:
      valid: false
  - op: record
    subj: a
    obj: c
    expect:
      error: DUPLICATE_HASH
`, Options{})

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected proof unavailable, got groth16")
	assert.Contains(t, result.Errors[1], "expected valid=false, got true")
	assert.Contains(t, result.Errors[2], "expected outcome DUPLICATE_HASH, got ok")
}

func TestRun_MissingRefAfterFailedRecord(t *testing.T) {
	result := runYAML(t, `
name: missing_ref
description: "a failed record leaves its name unbound"
steps:
  - op: record
    subj: ""
    obj: b
    as: r
    expect:
      error: INVALID_INPUT
  - op: verify
    ref: r
`, Options{})

	assert.False(t, result.Pass)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "missing_ref", result.Trace[1].Outcome)
}

func TestRun_AssertionFailure(t *testing.T) {
	result := runYAML(t, `
name: count
description: "wrong event count"
steps:
  - op: record
    subj: a
    obj: b
assertions:
  - type: event_count
    count: 2
`, Options{})

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: event_count")
	assert.Contains(t, result.Errors[0], "Expected: 2 events")
	assert.Contains(t, result.Errors[0], "Actual: 1 events")
}

func TestRun_ProverErrorDegrades(t *testing.T) {
	result := runYAML(t, `
name: timeout
description: "prover failures degrade"
steps:
  - op: record
    subj: a
    obj: b
    expect:
      proof: unavailable
      reason: proof generation failed
`, Options{Prover: &testutil.StubProver{Err: assert.AnError}})

	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	src := `
name: det
description: "same input same trace"
steps:
  - op: record
    subj: a
    obj: b
  - op: record
    subj: a
    obj: b
  - op: chain
    uri: a
`
	first := runYAML(t, src, Options{})
	second := runYAML(t, src, Options{})
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, ir.Digest("a", "b", testutil.DefaultEpoch), first.Trace[0].Hash)
	assert.Equal(t, ir.Digest("a", "b", testutil.DefaultEpoch+1), first.Trace[1].Hash)
}

func TestRun_CanceledContext(t *testing.T) {
	s, err := ParseScenario([]byte("name: n\ndescription: d\nsteps: [{op: chain, uri: x}]\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Run(ctx, s, Options{TempDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTamper_DoesNotMutateRecord(t *testing.T) {
	rec := &ir.ProvenanceRecord{
		Hash:          ir.Digest("a", "b", 1),
		Proof:         testutil.StubProof(),
		PublicSignals: []string{ir.Digest("a", "b", 1), "42"},
	}
	orig := *rec
	origSignals := append([]string{}, rec.PublicSignals...)

	for _, mode := range []string{TamperHash, TamperSignal, TamperCommitment, TamperProof} {
		tamper(rec, mode)
	}

	assert.Equal(t, orig.Hash, rec.Hash)
	assert.Equal(t, origSignals, rec.PublicSignals)
	assert.Equal(t, testutil.StubProof(), rec.Proof)

	_, _, signals := tamper(rec, TamperCommitment)
	assert.Equal(t, "43", signals[1])
}
