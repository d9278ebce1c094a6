package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// NewChainCommand creates the chain command.
func NewChainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <uri>",
		Short: "List every event whose subject is uri",
		Long: `Print the causal chain of a subject, oldest event first.

Events recorded at the same millisecond are listed in insertion order.
An unknown uri prints an empty chain.

Example:
  provledger chain http://example.org/Human1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runChain(opts *RootOptions, uri string, cmd *cobra.Command) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := NewOutputFormatter(opts, cmd)
	chain, err := a.ledger.GetChain(cmd.Context(), uri)
	if err != nil {
		return out.LedgerError("chain query failed", err)
	}

	return out.Success(chain, func(w io.Writer) {
		if len(chain) == 0 {
			fmt.Fprintf(w, "No events for %s\n", uri)
			return
		}
		fmt.Fprintf(w, "%s (%d events)\n", uri, len(chain))
		for _, ev := range chain {
			ts := time.UnixMilli(ev.Timestamp).UTC().Format(time.RFC3339Nano)
			fmt.Fprintf(w, "  #%d %s -> %s  %s\n", ev.ID, ts, ev.Object, ev.Hash)
		}
	})
}
