package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewReproveCommand creates the reprove command.
func NewReproveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reprove <hash>",
		Short: "Regenerate the proof for a recorded event",
		Long: `Regenerate the proof for an event that is already in the ledger.

Use this for events recorded while the proof system was unavailable.
The event itself is never modified.

Exit codes:
  0 - Proof regenerated (possibly still unavailable)
  1 - Storage failure
  2 - Malformed or unknown hash

Example:
  provledger reprove da81debbc46f562b82d897310a2c4edf58acdea6c3477e239002e27a4e8414bc`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReprove(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runReprove(opts *RootOptions, hash string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := NewOutputFormatter(opts, cmd)
	rec, err := a.ledger.Reprove(cmd.Context(), hash)
	if err != nil {
		return out.LedgerError("reprove failed", err)
	}

	return out.Success(rec, func(w io.Writer) {
		printRecord(w, rec)
	})
}
