package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/provledger/internal/store"
	"github.com/roach88/provledger/internal/testutil"
	"github.com/roach88/provledger/internal/zkp"
)

// realEngine is a Groth16 engine over artifacts generated once per package run.
var realEngine *zkp.Engine

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "provledger-ledger-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, "mkdtemp:", err)
		os.Exit(1)
	}

	artifacts, err := zkp.Setup(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup:", err)
		os.RemoveAll(dir)
		os.Exit(1)
	}
	realEngine = zkp.NewEngineFromArtifacts(artifacts, discardLogger())

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestLedger builds a ledger over a fresh store with a deterministic
// clock and the given prover.
func newTestLedger(t *testing.T, prover Prover, opts ...Option) (*Ledger, *store.Store) {
	t.Helper()
	s := setupTestStore(t)
	base := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithLogger(discardLogger()),
	}
	return New(s, prover, append(base, opts...)...), s
}
