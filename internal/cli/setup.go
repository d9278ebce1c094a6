package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/provledger/internal/zkp"
)

// SetupResult describes the artifacts written by setup.
type SetupResult struct {
	Dir      string       `json:"dir"`
	Manifest zkp.Manifest `json:"manifest"`
}

// NewSetupCommand creates the setup command.
func NewSetupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup [dir]",
		Short: "Compile the circuit and generate proving/verifying keys",
		Long: `Compile the provenance circuit and run the Groth16 setup.

Writes the constraint system, proving key, verifying key and a manifest
with their checksums. The directory defaults to proof.artifacts_dir.

The setup is a single-party ceremony: whoever runs it can forge proofs.
Publish the verifying key, keep the run private to the ledger operator.

Example:
  provledger setup
  provledger setup ./build`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runSetup(opts *RootOptions, args []string, cmd *cobra.Command) error {
	dir := opts.ArtifactsDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		cfg, err := loadConfig(opts)
		if err != nil {
			return err
		}
		dir = cfg.Proof.ArtifactsDir
	}

	out := NewOutputFormatter(opts, cmd)
	out.VerboseLog("Compiling circuit and generating keys in %s", dir)

	a, err := zkp.Setup(dir)
	if err != nil {
		return WrapExitError(ExitFailure, "setup failed", err)
	}

	result := SetupResult{Dir: dir, Manifest: a.Manifest}
	return out.Success(result, func(w io.Writer) {
		m := a.Manifest
		fmt.Fprintf(w, "✓ Artifacts written to %s\n", dir)
		fmt.Fprintf(w, "  circuit:     %s (%s, %s)\n", m.Circuit, m.Curve, m.Backend)
		fmt.Fprintf(w, "  constraints: %d\n", m.Constraints)
		fmt.Fprintf(w, "  vk sha256:   %s\n", m.Files.VerifyingKey.SHA256)
	})
}
