package zkp

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/roach88/provledger/internal/ir"
)

var errUnavailableProof = fmt.Errorf("%w: unavailable proof never verifies", ir.ErrInvalidInput)

// Verify reports whether proof is a valid Groth16 proof for publicSignals
// under vk. It is pure: no I/O, no clock, and no error path. Malformed
// proofs or signals, placeholder proofs and a nil key all yield false.
func Verify(proof ir.Proof, publicSignals []string, vk groth16.VerifyingKey) bool {
	return CheckProof(proof, publicSignals, vk) == nil
}

// CheckProof is Verify with the rejection reason.
func CheckProof(proof ir.Proof, publicSignals []string, vk groth16.VerifyingKey) error {
	if vk == nil {
		return fmt.Errorf("%w: no verifying key", ir.ErrProofSystemUnavailable)
	}
	if proof.Kind == ir.ProofKindUnavailable {
		return errUnavailableProof
	}

	public, err := publicAssignment(publicSignals)
	if err != nil {
		return err
	}

	p, err := decodeProof(proof)
	if err != nil {
		return err
	}

	w, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: public witness: %v", ir.ErrInvalidInput, err)
	}

	if err := groth16.Verify(p, vk, w); err != nil {
		return fmt.Errorf("proof rejected: %w", err)
	}
	return nil
}

// publicAssignment parses [digest, commitment] into the public half of
// the circuit assignment.
func publicAssignment(signals []string) (*Circuit, error) {
	if len(signals) != 2 {
		return nil, fmt.Errorf("%w: want 2 public signals, got %d", ir.ErrInvalidInput, len(signals))
	}

	hi, lo, err := ir.DigestLimbs(signals[0])
	if err != nil {
		return nil, err
	}

	commitment, ok := new(big.Int).SetString(signals[1], 10)
	if !ok || commitment.Sign() < 0 || commitment.Cmp(fr.Modulus()) >= 0 || commitment.String() != signals[1] {
		return nil, fmt.Errorf("%w: commitment %q is not a canonical field element", ir.ErrInvalidInput, signals[1])
	}

	return &Circuit{DigestHi: hi, DigestLo: lo, Commitment: commitment}, nil
}
