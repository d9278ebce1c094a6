package zkp

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/roach88/provledger/internal/ir"
)

// CurveName tags real proofs produced by this engine.
const CurveName = "bn254"

// encodeProof converts a gnark BN254 proof into the typed JSON schema:
// a = Ar (G1), b = Bs (G2, coordinates as [A0, A1] pairs), c = Krs (G1).
func encodeProof(proof groth16.Proof) (ir.Proof, error) {
	p, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return ir.Proof{}, fmt.Errorf("unexpected proof type %T", proof)
	}
	if len(p.Commitments) != 0 {
		return ir.Proof{}, errors.New("proofs with commitments are not supported")
	}

	return ir.Proof{
		Kind:  ir.ProofKindGroth16,
		Curve: CurveName,
		A:     []string{fpString(&p.Ar.X), fpString(&p.Ar.Y)},
		B: [][]string{
			{fpString(&p.Bs.X.A0), fpString(&p.Bs.X.A1)},
			{fpString(&p.Bs.Y.A0), fpString(&p.Bs.Y.A1)},
		},
		C: []string{fpString(&p.Krs.X), fpString(&p.Krs.Y)},
	}, nil
}

// decodeProof rebuilds a gnark BN254 proof from the typed schema, rejecting
// non-canonical coordinates and points off the curve.
func decodeProof(in ir.Proof) (*groth16bn254.Proof, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !in.IsReal() {
		return nil, errUnavailableProof
	}
	if in.Curve != CurveName {
		return nil, fmt.Errorf("%w: unsupported curve %q", ir.ErrInvalidInput, in.Curve)
	}

	var p groth16bn254.Proof
	coords := []struct {
		dst *fp.Element
		src string
	}{
		{&p.Ar.X, in.A[0]}, {&p.Ar.Y, in.A[1]},
		{&p.Bs.X.A0, in.B[0][0]}, {&p.Bs.X.A1, in.B[0][1]},
		{&p.Bs.Y.A0, in.B[1][0]}, {&p.Bs.Y.A1, in.B[1][1]},
		{&p.Krs.X, in.C[0]}, {&p.Krs.Y, in.C[1]},
	}
	for _, c := range coords {
		if err := setFp(c.dst, c.src); err != nil {
			return nil, err
		}
	}

	if !p.Ar.IsOnCurve() {
		return nil, fmt.Errorf("%w: proof.a is not on the curve", ir.ErrInvalidInput)
	}
	if !p.Bs.IsOnCurve() {
		return nil, fmt.Errorf("%w: proof.b is not on the curve", ir.ErrInvalidInput)
	}
	if !p.Krs.IsOnCurve() {
		return nil, fmt.Errorf("%w: proof.c is not on the curve", ir.ErrInvalidInput)
	}

	return &p, nil
}

func fpString(e *fp.Element) string {
	return e.BigInt(new(big.Int)).String()
}

// setFp parses a canonical decimal base-field element.
func setFp(dst *fp.Element, s string) error {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.Cmp(fp.Modulus()) >= 0 || n.String() != s {
		return fmt.Errorf("%w: coordinate %q is not a canonical field element", ir.ErrInvalidInput, s)
	}
	dst.SetBigInt(n)
	return nil
}
