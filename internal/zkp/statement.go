package zkp

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	nativemimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/roach88/provledger/internal/ir"
)

// Statement is the full set of circuit inputs for one event.
type Statement struct {
	Subject   uint64 // ir.FieldElement(subject)
	Object    uint64 // ir.FieldElement(object)
	Timestamp uint64
	Digest    string // ir.Digest(subject, object, timestamp)

	digestHi   *big.Int
	digestLo   *big.Int
	commitment *big.Int
}

// NewStatement derives the circuit inputs for an event and computes its
// commitment natively.
func NewStatement(subject, object string, timestamp int64) (*Statement, error) {
	if timestamp < 0 {
		return nil, fmt.Errorf("%w: negative timestamp %d", ir.ErrInvalidInput, timestamp)
	}

	s := &Statement{
		Subject:   ir.FieldElement(subject),
		Object:    ir.FieldElement(object),
		Timestamp: uint64(timestamp),
		Digest:    ir.Digest(subject, object, timestamp),
	}

	hi, lo, err := ir.DigestLimbs(s.Digest)
	if err != nil {
		return nil, err
	}
	s.digestHi, s.digestLo = hi, lo

	commitment, err := mimcCommitment(
		new(big.Int).SetUint64(s.Subject),
		new(big.Int).SetUint64(s.Object),
		new(big.Int).SetUint64(s.Timestamp),
		hi, lo,
	)
	if err != nil {
		return nil, err
	}
	s.commitment = commitment

	return s, nil
}

// Commitment returns the public MiMC commitment.
func (s *Statement) Commitment() *big.Int {
	return new(big.Int).Set(s.commitment)
}

// PublicSignals returns the ordered public signals: [digest, commitment].
func (s *Statement) PublicSignals() []string {
	return []string{s.Digest, s.commitment.String()}
}

// assignment returns the full (public and secret) witness assignment.
func (s *Statement) assignment() *Circuit {
	return &Circuit{
		DigestHi:   s.digestHi,
		DigestLo:   s.digestLo,
		Commitment: s.commitment,
		Subject:    s.Subject,
		Object:     s.Object,
		Timestamp:  s.Timestamp,
	}
}

// mimcCommitment hashes the inputs with the native BN254 MiMC, matching the
// in-circuit hasher block for block.
func mimcCommitment(inputs ...*big.Int) (*big.Int, error) {
	h := nativemimc.NewMiMC()
	for i, in := range inputs {
		var e fr.Element
		e.SetBigInt(in)
		block := e.Bytes()
		if _, err := h.Write(block[:]); err != nil {
			return nil, fmt.Errorf("mimc input %d: %w", i, err)
		}
	}

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out.BigInt(new(big.Int)), nil
}
