package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/provledger/internal/ir"
	"github.com/roach88/provledger/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", ev.Step, ev.Op, ev.Outcome)
		if ev.Hash != "" {
			fmt.Fprintf(&buf, " %s", ev.Hash)
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the final store state
// and returns one message per failure.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, st *store.Store) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(ctx, result, a, st); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(ctx context.Context, result *Result, a Assertion, st *store.Store) error {
	switch a.Type {
	case AssertEventCount:
		return assertEventCount(ctx, result, a, st)
	case AssertChainOrdered:
		return assertChainOrdered(ctx, result, a, st)
	case AssertHashesMatch:
		return assertHashesMatch(ctx, result, st)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertEventCount(ctx context.Context, result *Result, a Assertion, st *store.Store) error {
	n, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("event_count: %w", err)
	}
	if n != int64(a.Count) {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events", a.Count),
			Actual:   fmt.Sprintf("%d events", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertChainOrdered(ctx context.Context, result *Result, a Assertion, st *store.Store) error {
	events, err := st.QueryBySubject(ctx, a.URI)
	if err != nil {
		return fmt.Errorf("chain_ordered: %w", err)
	}
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if cur.Timestamp < prev.Timestamp || (cur.Timestamp == prev.Timestamp && cur.ID < prev.ID) {
			return &AssertionError{
				Type:     AssertChainOrdered,
				Expected: fmt.Sprintf("chain for %s ordered by (timestamp, id)", a.URI),
				Actual: fmt.Sprintf("event %d (ts=%d) after event %d (ts=%d)",
					cur.ID, cur.Timestamp, prev.ID, prev.Timestamp),
				Trace: result.Trace,
			}
		}
	}
	return nil
}

// assertHashesMatch recomputes the digest of every event that appears in
// the trace.
func assertHashesMatch(ctx context.Context, result *Result, st *store.Store) error {
	seen := map[string]bool{}
	for _, ev := range result.Trace {
		if ev.Hash == "" || ev.Outcome != "ok" || ev.Op == OpVerify || seen[ev.Hash] {
			continue
		}
		seen[ev.Hash] = true

		stored, err := st.GetByHash(ctx, ev.Hash)
		if err != nil {
			return fmt.Errorf("hashes_match: %w", err)
		}
		if want := ir.Digest(stored.Subject, stored.Object, stored.Timestamp); want != stored.Hash {
			return &AssertionError{
				Type:     AssertHashesMatch,
				Expected: want,
				Actual:   stored.Hash,
				Trace:    result.Trace,
			}
		}
	}
	return nil
}
