package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/provledger/internal/ir"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Record  string   // file holding a provenance record, "-" for stdin
	Hash    string   // claimed event hash
	Proof   string   // proof JSON, a file path, or "-" for stdin
	Signals []string // public signals, hash first
}

// VerifyResult is the outcome of a verification.
type VerifyResult struct {
	Hash  string `json:"hash"`
	Valid bool   `json:"valid"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a proof against a claimed hash",
		Long: `Check that a proof is valid for a hash.

Only the verifying key is needed; the database is not opened. An
unavailable proof, a malformed proof or public signals whose first entry
is not the hash are reported as invalid.

Exit codes:
  0 - Proof is valid
  1 - Proof is invalid
  2 - Missing or unreadable input

Examples:
  provledger record --format json s o | jq .data > rec.json
  provledger verify --record rec.json
  provledger verify --hash <hash> --proof proof.json --signals <hash>,<commitment>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Record, "record", "", `provenance record JSON file ("-" for stdin)`)
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "claimed event hash")
	cmd.Flags().StringVar(&opts.Proof, "proof", "", `proof as inline JSON, a file path, or "-" for stdin`)
	cmd.Flags().StringSliceVar(&opts.Signals, "signals", nil, "public signals, comma separated")
	cmd.MarkFlagsMutuallyExclusive("record", "hash")
	cmd.MarkFlagsMutuallyExclusive("record", "proof")
	cmd.MarkFlagsMutuallyExclusive("record", "signals")

	return cmd
}

// verifyInput is the raw form of a verification request; the proof stays
// undecoded so a malformed proof is "invalid" rather than a usage error.
type verifyInput struct {
	Hash          string          `json:"hash"`
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals"`
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	in, err := readVerifyInput(opts, cmd.InOrStdin())
	if err != nil {
		return err
	}

	l, err := openVerifier(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	out := NewOutputFormatter(opts.RootOptions, cmd)
	valid := false
	var proof ir.Proof
	if err := json.Unmarshal(in.Proof, &proof); err != nil {
		out.VerboseLog("proof not decodable: %v", err)
	} else {
		valid = l.VerifyProof(in.Hash, proof, in.PublicSignals)
	}

	result := VerifyResult{Hash: in.Hash, Valid: valid}
	if err := out.Success(result, func(w io.Writer) {
		if valid {
			fmt.Fprintf(w, "✓ valid proof for %s\n", in.Hash)
		} else {
			fmt.Fprintf(w, "✗ invalid proof for %s\n", in.Hash)
		}
	}); err != nil {
		return err
	}

	if !valid {
		return NewExitError(ExitFailure, "proof is invalid")
	}
	return nil
}

func readVerifyInput(opts *VerifyOptions, stdin io.Reader) (*verifyInput, error) {
	in := &verifyInput{}

	if opts.Record != "" {
		data, err := readSource(opts.Record, stdin)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read record", err)
		}
		if err := json.Unmarshal(data, in); err != nil {
			return nil, WrapExitError(ExitCommandError, "malformed record", err)
		}
	} else {
		in.Hash = opts.Hash
		in.PublicSignals = opts.Signals
		if opts.Proof != "" {
			data, err := readProofFlag(opts.Proof, stdin)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "failed to read proof", err)
			}
			in.Proof = data
		}
	}

	var missing []string
	if in.Hash == "" {
		missing = append(missing, "hash")
	}
	if len(in.Proof) == 0 || string(in.Proof) == "null" {
		missing = append(missing, "proof")
	}
	if len(in.PublicSignals) == 0 {
		missing = append(missing, "signals")
	}
	if len(missing) > 0 {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("missing required input: %s", strings.Join(missing, ", ")))
	}
	return in, nil
}

// readProofFlag accepts inline JSON as well as a path or "-".
func readProofFlag(v string, stdin io.Reader) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(v), "{") {
		return []byte(v), nil
	}
	return readSource(v, stdin)
}

func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
