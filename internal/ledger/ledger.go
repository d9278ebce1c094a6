package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/provledger/internal/ir"
	"github.com/roach88/provledger/internal/store"
)

// DefaultProofTimeout bounds a single proof generation.
const DefaultProofTimeout = 30 * time.Second

// Prover is the proof capability the ledger depends on. zkp.Engine
// implements it.
type Prover interface {
	// Prove returns a real proof and its public signals for the event.
	// publicSignals[0] must equal ir.Digest(subject, object, timestamp).
	Prove(ctx context.Context, subject, object string, timestamp int64) (ir.Proof, []string, error)

	// Verify checks proof against publicSignals. It never fails loudly.
	Verify(proof ir.Proof, publicSignals []string) bool
}

// Ledger is the provenance ledger service. It owns no global state; the
// host process constructs one and closes its store on shutdown.
type Ledger struct {
	store        *store.Store
	prover       Prover
	clock        Clock
	logger       *slog.Logger
	metrics      *Metrics
	proofTimeout time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithProofTimeout bounds proof generation. Non-positive values keep the default.
func WithProofTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.proofTimeout = d
		}
	}
}

// New creates a Ledger over an open store. prover may be nil, in which case
// every record carries an Unavailable proof and nothing verifies. s may be
// nil for a ledger that only verifies.
func New(s *store.Store, prover Prover, opts ...Option) *Ledger {
	l := &Ledger{
		store:        s,
		prover:       prover,
		clock:        NewMonotonicClock(),
		logger:       slog.Default(),
		proofTimeout: DefaultProofTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordEvent records "subject causes object" and attaches a proof.
//
// Input, duplicate and storage failures return an *Error and nothing is
// stored. Once the event is persisted RecordEvent always succeeds; proof
// failures degrade to an Unavailable proof with PublicSignals == [hash].
func (l *Ledger) RecordEvent(ctx context.Context, subject, object string) (*ir.ProvenanceRecord, error) {
	rec, err := l.recordEvent(ctx, subject, object)
	l.metrics.observeRecord(err)
	return rec, err
}

func (l *Ledger) recordEvent(ctx context.Context, subject, object string) (*ir.ProvenanceRecord, error) {
	if err := validateURI("subject", subject); err != nil {
		return nil, err
	}
	if err := validateURI("object", object); err != nil {
		return nil, err
	}

	ev := ir.Event{
		Subject:   subject,
		Predicate: ir.PredicateCauses,
		Object:    object,
		Timestamp: l.clock.Now(),
	}
	ev.Hash = ir.Digest(ev.Subject, ev.Object, ev.Timestamp)
	l.logger.Debug("event hashed", "stage", StageHashed, "hash", ev.Hash, "timestamp", ev.Timestamp)

	id, err := l.store.Append(ctx, ev)
	if err != nil {
		le := newError(StageHashed, "append event", err)
		le.Subject, le.Object, le.Hash = subject, object, ev.Hash
		return nil, le
	}
	ev.ID = id
	l.logger.Debug("event persisted", "stage", StagePersisted, "id", id, "hash", ev.Hash)

	rec := l.attachProof(ctx, ev)
	l.logger.Info("event recorded",
		"stage", StageRecorded,
		"id", rec.ID,
		"hash", rec.Hash,
		"proof", rec.Proof.Kind)
	return rec, nil
}

// attachProof runs the prover for a persisted event. It never fails: any
// prover error yields an Unavailable proof.
func (l *Ledger) attachProof(ctx context.Context, ev ir.Event) *ir.ProvenanceRecord {
	rec := &ir.ProvenanceRecord{ID: ev.ID, Hash: ev.Hash}

	start := time.Now()
	proof, signals, err := l.prove(ctx, ev)
	elapsed := time.Since(start).Seconds()

	if err == nil && (len(signals) == 0 || signals[0] != ev.Hash) {
		err = fmt.Errorf("prover returned public signals not bound to hash %s", ev.Hash)
	}
	if err != nil {
		reason := degradeReason(err)
		l.logger.Warn("proof degraded",
			"stage", StagePersisted,
			"id", ev.ID,
			"hash", ev.Hash,
			"reason", reason,
			"error", err)
		l.metrics.observeProof(string(ir.ProofKindUnavailable), reason, elapsed)
		rec.Proof = ir.UnavailableProof(reason)
		rec.PublicSignals = []string{ev.Hash}
		return rec
	}

	l.logger.Debug("event proven", "stage", StageProven, "id", ev.ID, "seconds", elapsed)
	l.metrics.observeProof(string(proof.Kind), "", elapsed)
	rec.Proof = proof
	rec.PublicSignals = signals
	return rec
}

func (l *Ledger) prove(ctx context.Context, ev ir.Event) (ir.Proof, []string, error) {
	if l.prover == nil {
		return ir.Proof{}, nil, fmt.Errorf("%w: no prover configured", ir.ErrProofSystemUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, l.proofTimeout)
	defer cancel()

	proof, signals, err := l.prover.Prove(ctx, ev.Subject, ev.Object, ev.Timestamp)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ir.ErrProofTimeout) {
		err = fmt.Errorf("%w: %v", ir.ErrProofTimeout, err)
	}
	return proof, signals, err
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, ir.ErrProofSystemUnavailable):
		return ir.ReasonProofSystemUnavailable
	case errors.Is(err, ir.ErrProofTimeout):
		return ir.ReasonProofTimeout
	default:
		return ir.ReasonProofFailed
	}
}

// VerifyProof reports whether proof is a valid proof for hash. It returns
// false, never an error, on malformed input, an Unavailable proof, a
// missing verifying key or a publicSignals[0] that differs from hash.
func (l *Ledger) VerifyProof(hash string, proof ir.Proof, publicSignals []string) (valid bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("verify panicked", "hash", hash, "panic", r)
			valid = false
		}
		l.metrics.observeVerify(valid)
	}()

	if !ir.IsDigest(hash) || len(publicSignals) == 0 || publicSignals[0] != hash {
		return false
	}
	if !proof.IsReal() || l.prover == nil {
		return false
	}
	return l.prover.Verify(proof, publicSignals)
}

// GetChain returns every event whose subject is uri, ascending by
// timestamp then id. An unknown uri yields an empty chain.
func (l *Ledger) GetChain(ctx context.Context, uri string) (ir.Chain, error) {
	if uri == "" {
		return nil, invalidInput("uri is required")
	}
	events, err := l.store.QueryBySubject(ctx, uri)
	if err != nil {
		return nil, newError(StagePending, "query chain", err)
	}
	return ir.Chain(events), nil
}

// GetEvent looks up a persisted event by hash.
func (l *Ledger) GetEvent(ctx context.Context, hash string) (ir.Event, error) {
	if !ir.IsDigest(hash) {
		return ir.Event{}, invalidInput("hash must be 64 lowercase hex characters")
	}
	ev, err := l.store.GetByHash(ctx, hash)
	if err != nil {
		le := newError(StagePending, "get event", err)
		le.Hash = hash
		return ir.Event{}, le
	}
	return ev, nil
}

// Reprove regenerates the proof for an already-persisted event. Like
// RecordEvent it degrades to an Unavailable proof rather than failing.
func (l *Ledger) Reprove(ctx context.Context, hash string) (*ir.ProvenanceRecord, error) {
	ev, err := l.GetEvent(ctx, hash)
	if err != nil {
		return nil, err
	}
	return l.attachProof(ctx, ev), nil
}

// Count returns the number of persisted events.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	n, err := l.store.Count(ctx)
	if err != nil {
		return 0, newError(StagePending, "count events", err)
	}
	return n, nil
}

func validateURI(field, v string) error {
	switch {
	case v == "":
		return invalidInput(field + " is required")
	case !utf8.ValidString(v):
		return invalidInput(field + " is not valid UTF-8")
	case !norm.NFC.IsNormalString(v):
		return invalidInput(field + " is not in Unicode NFC form")
	}
	return nil
}
