package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/provledger/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigFile is an explicit provledger.yaml. Empty searches . and ./configs.
	ConfigFile string

	// Database and ArtifactsDir override ledger.db_path and
	// proof.artifacts_dir from the config when set.
	Database     string
	ArtifactsDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the provledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "provledger",
		Version: ir.LedgerVersion,
		Short:   "provledger - provenance ledger with zero-knowledge proofs",
		Long: `An append-only ledger of causal events ("subject causes object").

Every recorded event is hashed, stored durably in SQLite and bound to a
Groth16 proof whose first public signal is the event hash.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: provledger.yaml in . or ./configs)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides ledger.db_path)")
	cmd.PersistentFlags().StringVar(&opts.ArtifactsDir, "artifacts", "", "circuit artifacts directory (overrides proof.artifacts_dir)")

	// Add subcommands
	cmd.AddCommand(NewSetupCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewChainCommand(opts))
	cmd.AddCommand(NewReproveCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
