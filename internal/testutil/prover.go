package testutil

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/roach88/provledger/internal/ir"
)

// StubCurve tags proofs issued by StubProver.
const StubCurve = "stub"

// StubProver is a fast, deterministic stand-in for the Groth16 engine.
//
// Its proofs are structurally valid groth16 proofs (they survive JSON
// decoding) whose second public signal is ir.FieldElement(hash). Verify
// accepts exactly the (proof, signals) pairs Prove would issue, so
// tampering with the hash or the commitment fails verification just as
// it does with the real engine.
//
// Err, when set, is returned from every Prove call. Delay makes Prove
// block until the delay elapses or ctx is done.
//
// Thread-safety: safe for concurrent use.
type StubProver struct {
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

// Prove implements ledger.Prover.
func (p *StubProver) Prove(ctx context.Context, subject, object string, timestamp int64) (ir.Proof, []string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ir.Proof{}, nil, ctx.Err()
		}
	}
	if p.Err != nil {
		return ir.Proof{}, nil, p.Err
	}

	hash := ir.Digest(subject, object, timestamp)
	return StubProof(), stubSignals(hash), nil
}

// Verify implements ledger.Prover.
func (p *StubProver) Verify(proof ir.Proof, publicSignals []string) bool {
	if len(publicSignals) != 2 || !ir.IsDigest(publicSignals[0]) {
		return false
	}
	want := StubProof()
	if proof.Kind != want.Kind || proof.Curve != want.Curve ||
		!slices.Equal(proof.A, want.A) || !slices.Equal(proof.C, want.C) ||
		len(proof.B) != 2 || !slices.Equal(proof.B[0], want.B[0]) || !slices.Equal(proof.B[1], want.B[1]) {
		return false
	}
	return slices.Equal(publicSignals, stubSignals(publicSignals[0]))
}

// Calls returns the number of Prove calls made so far.
func (p *StubProver) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// StubProof is the fixed proof StubProver issues.
func StubProof() ir.Proof {
	return ir.Proof{
		Kind:  ir.ProofKindGroth16,
		Curve: StubCurve,
		A:     []string{"1", "2"},
		B:     [][]string{{"3", "4"}, {"5", "6"}},
		C:     []string{"7", "8"},
	}
}

func stubSignals(hash string) []string {
	return []string{hash, strconv.FormatUint(ir.FieldElement(hash), 10)}
}
