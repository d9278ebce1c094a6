package ir

import (
	"encoding/json"
	"fmt"
)

// ProofKind tags the variant a Proof holds.
type ProofKind string

const (
	// ProofKindGroth16 is a real pairing-based proof.
	ProofKindGroth16 ProofKind = "groth16"

	// ProofKindUnavailable is the explicit placeholder produced when no
	// cryptographic proof could be generated. It never verifies.
	ProofKindUnavailable ProofKind = "unavailable"
)

// Reasons attached to Unavailable proofs.
const (
	ReasonProofSystemUnavailable = "proof system unavailable"
	ReasonProofTimeout           = "proof timeout"
	ReasonProofFailed            = "proof generation failed"
)

// Proof is the outcome of proof generation: Real(groth16) | Unavailable.
//
// A groth16 proof carries the curve point triple A (G1), B (G2), C (G1) as
// decimal coordinates. An unavailable proof carries only a Reason.
type Proof struct {
	Kind   ProofKind  `json:"kind"`
	Curve  string     `json:"curve,omitempty"`
	A      []string   `json:"a,omitempty"`
	B      [][]string `json:"b,omitempty"`
	C      []string   `json:"c,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// UnavailableProof builds the non-cryptographic placeholder.
func UnavailableProof(reason string) Proof {
	return Proof{Kind: ProofKindUnavailable, Reason: reason}
}

// IsReal reports whether p claims to be a cryptographic proof.
func (p Proof) IsReal() bool {
	return p.Kind == ProofKindGroth16
}

// Validate checks the fixed schema of each variant. Coordinates are checked
// for shape and decimal form only; curve membership is checked by the
// proof engine.
func (p Proof) Validate() error {
	switch p.Kind {
	case ProofKindGroth16:
		if p.Reason != "" {
			return fmt.Errorf("%w: groth16 proof must not carry a reason", ErrInvalidInput)
		}
		if err := validatePair("a", p.A); err != nil {
			return err
		}
		if len(p.B) != 2 {
			return fmt.Errorf("%w: proof.b must have 2 rows, got %d", ErrInvalidInput, len(p.B))
		}
		for i, row := range p.B {
			if err := validatePair(fmt.Sprintf("b[%d]", i), row); err != nil {
				return err
			}
		}
		return validatePair("c", p.C)
	case ProofKindUnavailable:
		if len(p.A) != 0 || len(p.B) != 0 || len(p.C) != 0 {
			return fmt.Errorf("%w: unavailable proof must not carry curve points", ErrInvalidInput)
		}
		return nil
	case "":
		return fmt.Errorf("%w: proof.kind is required", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown proof kind %q", ErrInvalidInput, p.Kind)
	}
}

// UnmarshalJSON decodes and validates a proof.
func (p *Proof) UnmarshalJSON(data []byte) error {
	type rawProof Proof
	var raw rawProof
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: malformed proof: %v", ErrInvalidInput, err)
	}
	decoded := Proof(raw)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*p = decoded
	return nil
}

func validatePair(name string, coords []string) error {
	if len(coords) != 2 {
		return fmt.Errorf("%w: proof.%s must have 2 coordinates, got %d", ErrInvalidInput, name, len(coords))
	}
	for i, c := range coords {
		if !isDecimal(c) {
			return fmt.Errorf("%w: proof.%s[%d] is not a decimal field element", ErrInvalidInput, name, i)
		}
	}
	return nil
}

// isDecimal reports whether s is a canonical unsigned decimal: digits
// only, no sign, no leading zeros.
func isDecimal(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
