package zkp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/roach88/provledger/internal/ir"
)

// Engine produces and checks proofs against one set of artifacts.
//
// Artifacts are loaded at most once, on first use; a failed load is
// sticky for the life of the Engine. All methods are safe for concurrent
// use: the loaded artifacts are never mutated.
type Engine struct {
	dir    string
	logger *slog.Logger
	loader func(dir string) (*Artifacts, error)

	once      sync.Once
	artifacts *Artifacts
	loadErr   error
}

// NewEngine returns an Engine that loads artifacts from dir lazily.
func NewEngine(dir string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{dir: dir, logger: logger, loader: LoadArtifacts}
}

// NewVerifier returns an Engine that loads only the manifest and
// verifying key from dir. Its Prove always fails with
// ir.ErrProofSystemUnavailable.
func NewVerifier(dir string, logger *slog.Logger) *Engine {
	e := NewEngine(dir, logger)
	e.loader = LoadVerifyingKey
	return e
}

// NewEngineFromArtifacts returns an Engine over already-loaded artifacts.
func NewEngineFromArtifacts(a *Artifacts, logger *slog.Logger) *Engine {
	e := NewEngine("", logger)
	e.once.Do(func() {
		if a == nil {
			e.loadErr = fmt.Errorf("%w: no artifacts", ir.ErrProofSystemUnavailable)
			return
		}
		e.artifacts = a
	})
	return e
}

// Load forces the artifact load and returns its outcome.
func (e *Engine) Load() error {
	_, err := e.load()
	return err
}

func (e *Engine) load() (*Artifacts, error) {
	e.once.Do(func() {
		e.artifacts, e.loadErr = e.loader(e.dir)
		if e.loadErr != nil {
			e.logger.Warn("proof system unavailable", "dir", e.dir, "error", e.loadErr)
			return
		}
		e.logger.Debug("proof artifacts loaded",
			"dir", e.dir,
			"circuit", e.artifacts.Manifest.Circuit,
			"constraints", e.artifacts.Manifest.Constraints)
	})
	return e.artifacts, e.loadErr
}

// VerifyingKey returns the loaded verifying key.
func (e *Engine) VerifyingKey() (groth16.VerifyingKey, error) {
	a, err := e.load()
	if err != nil {
		return nil, err
	}
	return a.VerifyingKey, nil
}

type proveResult struct {
	proof   ir.Proof
	signals []string
	err     error
}

// Prove generates a proof for the event (subject, object, timestamp).
//
// Errors wrap ir.ErrProofSystemUnavailable when artifacts cannot be
// loaded and ir.ErrProofTimeout when ctx expires first. Cancellation of
// ctx returns ctx.Err(). The proving goroutine is not interruptible; on
// timeout it runs to completion and its result is discarded.
func (e *Engine) Prove(ctx context.Context, subject, object string, timestamp int64) (ir.Proof, []string, error) {
	a, err := e.load()
	if err != nil {
		return ir.Proof{}, nil, err
	}
	if a.ProvingKey == nil {
		return ir.Proof{}, nil, fmt.Errorf("%w: no proving key in %s", ir.ErrProofSystemUnavailable, e.dir)
	}

	st, err := NewStatement(subject, object, timestamp)
	if err != nil {
		return ir.Proof{}, nil, err
	}

	if err := ctx.Err(); err != nil {
		return ir.Proof{}, nil, ctxError(err)
	}

	done := make(chan proveResult, 1)
	go func() {
		proof, err := prove(a, st)
		done <- proveResult{proof: proof, signals: st.PublicSignals(), err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return ir.Proof{}, nil, r.err
		}
		return r.proof, r.signals, nil
	case <-ctx.Done():
		return ir.Proof{}, nil, ctxError(ctx.Err())
	}
}

func ctxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ir.ErrProofTimeout, err)
	}
	return err
}

func prove(a *Artifacts, st *Statement) (ir.Proof, error) {
	w, err := frontend.NewWitness(st.assignment(), ecc.BN254.ScalarField())
	if err != nil {
		return ir.Proof{}, fmt.Errorf("build witness: %w", err)
	}

	proof, err := groth16.Prove(a.CS, a.ProvingKey, w)
	if err != nil {
		return ir.Proof{}, fmt.Errorf("groth16 prove: %w", err)
	}

	return encodeProof(proof)
}

// Verify checks proof against publicSignals with the engine's verifying
// key. It returns false when artifacts are unavailable.
func (e *Engine) Verify(proof ir.Proof, publicSignals []string) bool {
	vk, err := e.VerifyingKey()
	if err != nil {
		return false
	}
	return Verify(proof, publicSignals, vk)
}
