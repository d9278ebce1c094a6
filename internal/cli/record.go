package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/provledger/internal/ir"
)

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <subject> <object>",
		Short: "Record that subject causes object",
		Long: `Record a causal event and attach a zero-knowledge proof.

The timestamp is taken from the ledger clock, never from the caller.
When the proof system is unavailable or times out the event is still
recorded and the proof is marked unavailable.

Exit codes:
  0 - Event recorded (possibly with an unavailable proof)
  1 - Storage failure or duplicate hash
  2 - Invalid input or config

Example:
  provledger record http://example.org/Human1 http://example.org/Company1
  provledger record --format json http://example.org/Human1 http://example.org/Company1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runRecord(opts *RootOptions, subject, object string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := NewOutputFormatter(opts, cmd)
	rec, err := a.ledger.RecordEvent(cmd.Context(), subject, object)
	if err != nil {
		return out.LedgerError("record failed", err)
	}

	return out.Success(rec, func(w io.Writer) {
		printRecord(w, rec)
	})
}

func printRecord(w io.Writer, rec *ir.ProvenanceRecord) {
	fmt.Fprintf(w, "id:      %d\n", rec.ID)
	fmt.Fprintf(w, "hash:    %s\n", rec.Hash)
	fmt.Fprintf(w, "proof:   %s\n", proofSummary(string(rec.Proof.Kind), rec.Proof.Reason))
	for i, s := range rec.PublicSignals {
		fmt.Fprintf(w, "signal%d: %s\n", i, s)
	}
}
