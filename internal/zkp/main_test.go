package zkp

import (
	"fmt"
	"os"
	"testing"
)

// testDir holds artifacts generated once for the whole package.
var (
	testDir       string
	testArtifacts *Artifacts
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "provledger-zkp-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, "mkdtemp:", err)
		os.Exit(1)
	}

	testDir = dir
	testArtifacts, err = Setup(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup:", err)
		os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}
