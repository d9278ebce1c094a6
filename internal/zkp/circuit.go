package zkp

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// Circuit proves knowledge of the hidden event inputs behind a digest.
//
// Public inputs come first in the witness, in declaration order:
// DigestHi, DigestLo, Commitment.
type Circuit struct {
	// Public inputs
	DigestHi   frontend.Variable `gnark:",public"`
	DigestLo   frontend.Variable `gnark:",public"`
	Commitment frontend.Variable `gnark:",public"`

	// Secret witness
	Subject   frontend.Variable
	Object    frontend.Variable
	Timestamp frontend.Variable
}

// Define asserts MiMC(Subject, Object, Timestamp, DigestHi, DigestLo) == Commitment.
// Hashing the digest limbs into the commitment ties both public limbs to
// the constraint system; an unconstrained public input would verify for
// any value.
func (c *Circuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	h.Write(c.Subject, c.Object, c.Timestamp, c.DigestHi, c.DigestLo)
	api.AssertIsEqual(h.Sum(), c.Commitment)

	return nil
}
