package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/roach88/provledger/internal/ir"
	"github.com/roach88/provledger/internal/ledger"
	"github.com/roach88/provledger/internal/store"
	"github.com/roach88/provledger/internal/testutil"
)

// Options configures scenario execution.
type Options struct {
	// Prover generates and checks proofs. Nil uses testutil.StubProver.
	Prover ledger.Prover

	// Logger receives ledger logs. Nil discards them.
	Logger *slog.Logger

	// TempDir is where per-scenario databases are created. Empty uses
	// the system temp directory.
	TempDir string

	// ProofTimeout bounds each proof. Zero uses the ledger default.
	ProofTimeout time.Duration
}

// Harness is the state of one scenario execution.
type Harness struct {
	ledger  *ledger.Ledger
	store   *store.Store
	records map[string]*ir.ProvenanceRecord
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh SQLite file that is removed
// afterwards. An error is returned only when the harness itself cannot
// run; step and assertion failures are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	dir, err := os.MkdirTemp(opts.TempDir, "provledger-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}
	defer st.Close()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var prover ledger.Prover = &testutil.StubProver{}
	if opts.Prover != nil {
		prover = opts.Prover
	}
	if scenario.ProofSystem == "unavailable" {
		prover = nil
	}

	h := &Harness{
		ledger: ledger.New(st, prover,
			ledger.WithClock(scenarioClock(scenario.Clock)),
			ledger.WithLogger(logger),
			ledger.WithProofTimeout(opts.ProofTimeout)),
		store:   st,
		records: make(map[string]*ir.ProvenanceRecord),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.executeStep(ctx, i, step, result)
	}

	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, st) {
		result.AddError(msg)
	}

	return result, nil
}

func scenarioClock(cfg *ClockConfig) ledger.Clock {
	if cfg == nil {
		return testutil.NewDeterministicClock()
	}
	if cfg.Step == 0 {
		return testutil.FixedClock(cfg.Start)
	}
	return testutil.NewDeterministicClockAt(cfg.Start, cfg.Step)
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	ev := TraceEvent{Step: i, Op: step.Op, Ref: step.Ref}

	switch step.Op {
	case OpRecord:
		ev.Ref = step.As
		rec, err := h.ledger.RecordEvent(ctx, step.Subj, step.Obj)
		h.traceRecord(ctx, &ev, rec, err)
		if err == nil && step.As != "" {
			h.records[step.As] = rec
		}

	case OpReprove:
		rec, ok := h.lookup(i, step.Ref, result)
		if !ok {
			return
		}
		again, err := h.ledger.Reprove(ctx, rec.Hash)
		h.traceRecord(ctx, &ev, again, err)
		if err == nil && step.As != "" {
			h.records[step.As] = again
		}

	case OpVerify:
		rec, ok := h.lookup(i, step.Ref, result)
		if !ok {
			return
		}
		hash, proof, signals := tamper(rec, step.Tamper)
		valid := h.ledger.VerifyProof(hash, proof, signals)
		ev.Outcome = "ok"
		ev.Hash = hash
		ev.Tamper = step.Tamper
		ev.Valid = &valid

	case OpChain:
		chain, err := h.ledger.GetChain(ctx, step.URI)
		ev.Outcome = outcome(err)
		if err == nil {
			ev.Chain = make([]string, len(chain))
			for j, e := range chain {
				ev.Chain[j] = e.Hash
			}
		}
		checkChain(i, step.Expect, chain, result)
	}

	result.AddTrace(ev)
	checkExpect(i, step.Expect, ev, result)
}

func (h *Harness) traceRecord(ctx context.Context, ev *TraceEvent, rec *ir.ProvenanceRecord, err error) {
	ev.Outcome = outcome(err)
	if err != nil {
		return
	}
	ev.ID = rec.ID
	ev.Hash = rec.Hash
	ev.Proof = string(rec.Proof.Kind)
	ev.Reason = rec.Proof.Reason
	if stored, err := h.ledger.GetEvent(ctx, rec.Hash); err == nil {
		ev.Timestamp = stored.Timestamp
	}
}

func (h *Harness) lookup(i int, ref string, result *Result) (*ir.ProvenanceRecord, bool) {
	rec, ok := h.records[ref]
	if !ok {
		result.AddError(fmt.Sprintf("steps[%d]: ref %q has no record (its step failed)", i, ref))
		result.AddTrace(TraceEvent{Step: i, Op: "skip", Ref: ref, Outcome: "missing_ref"})
	}
	return rec, ok
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(ledger.CodeOf(err))
}

// tamper returns the verify inputs for rec, altered per mode.
func tamper(rec *ir.ProvenanceRecord, mode string) (string, ir.Proof, []string) {
	hash := rec.Hash
	proof := rec.Proof
	signals := slices.Clone(rec.PublicSignals)
	proof.A = slices.Clone(proof.A)
	proof.C = slices.Clone(proof.C)

	switch mode {
	case TamperHash:
		hash = flipHex(hash)
	case TamperSignal:
		if len(signals) > 0 {
			signals[0] = flipHex(signals[0])
		}
	case TamperCommitment:
		if len(signals) > 1 {
			if n, ok := new(big.Int).SetString(signals[1], 10); ok {
				signals[1] = n.Add(n, big.NewInt(1)).String()
			}
		}
	case TamperProof:
		proof.A, proof.C = proof.C, proof.A
	}
	return hash, proof, signals
}

// flipHex changes the first character of a hex string.
func flipHex(h string) string {
	if h == "" {
		return h
	}
	b := []byte(h)
	if b[0] == '0' {
		b[0] = '1'
	} else {
		b[0] = '0'
	}
	return string(b)
}

func checkExpect(i int, exp *Expect, ev TraceEvent, result *Result) {
	wantOutcome := "ok"
	if exp != nil && exp.Error != "" {
		wantOutcome = exp.Error
	}
	if ev.Outcome != wantOutcome {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected outcome %s, got %s", i, ev.Op, wantOutcome, ev.Outcome))
		return
	}
	if exp == nil {
		return
	}
	if exp.Proof != "" && ev.Proof != exp.Proof {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected proof %s, got %s", i, ev.Op, exp.Proof, ev.Proof))
	}
	if exp.Reason != "" && ev.Reason != exp.Reason {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected reason %q, got %q", i, ev.Op, exp.Reason, ev.Reason))
	}
	if exp.Valid != nil && (ev.Valid == nil || *ev.Valid != *exp.Valid) {
		got := "none"
		if ev.Valid != nil {
			got = fmt.Sprint(*ev.Valid)
		}
		result.AddError(fmt.Sprintf("steps[%d] %s: expected valid=%v, got %s", i, ev.Op, *exp.Valid, got))
	}
}

func checkChain(i int, exp *Expect, chain ir.Chain, result *Result) {
	if exp == nil {
		return
	}
	if exp.Length != nil && len(chain) != *exp.Length {
		result.AddError(fmt.Sprintf("steps[%d] chain: expected length %d, got %d", i, *exp.Length, len(chain)))
	}
	if exp.Objects != nil {
		got := make([]string, len(chain))
		for j, e := range chain {
			got[j] = e.Object
		}
		if !slices.Equal(got, exp.Objects) {
			result.AddError(fmt.Sprintf("steps[%d] chain: expected objects %v, got %v", i, exp.Objects, got))
		}
	}
}
