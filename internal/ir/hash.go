package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

// DigestSeparator joins the digest fields. It appears literally and exactly
// once between fields; field values are not escaped.
const DigestSeparator = "||"

// DigestLength is the length of a hex-encoded SHA-256 digest.
const DigestLength = 64

// fieldElementHexChars is how much of a SHA-256 digest survives truncation
// into a circuit input: 16 hex characters, i.e. 64 bits.
const fieldElementHexChars = 16

// Digest computes the event fingerprint:
//
//	sha256(subject || "||" || object || "||" || timestamp)
//
// rendered as lowercase hex. timestamp is written in base 10.
func Digest(subject, object string, timestamp int64) string {
	h := sha256.New()
	h.Write([]byte(subject))
	h.Write([]byte(DigestSeparator))
	h.Write([]byte(object))
	h.Write([]byte(DigestSeparator))
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// FieldElement maps a string to a circuit input: the first 64 bits of
// sha256(s) as an unsigned integer.
//
// The circuit therefore attests to hashed representations of subject and
// object, never the raw strings. Prover and any independent re-derivation
// must use this exact truncation.
func FieldElement(s string) uint64 {
	sum := sha256.Sum256([]byte(s))
	v, err := strconv.ParseUint(hex.EncodeToString(sum[:])[:fieldElementHexChars], 16, 64)
	if err != nil {
		// 16 hex characters always fit in 64 bits
		panic(err)
	}
	return v
}

// IsDigest reports whether s is a 64-character lowercase hex string.
func IsDigest(s string) bool {
	if len(s) != DigestLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// DigestLimbs splits a hex digest into its high and low 128-bit halves.
// Both halves fit the BN254 scalar field, so the full digest is bound by
// the circuit without truncation.
func DigestLimbs(digest string) (hi, lo *big.Int, err error) {
	if !IsDigest(digest) {
		return nil, nil, fmt.Errorf("%w: digest %q is not 64 lowercase hex characters", ErrInvalidInput, digest)
	}
	hi, ok := new(big.Int).SetString(digest[:DigestLength/2], 16)
	if !ok {
		return nil, nil, fmt.Errorf("%w: digest high limb", ErrInvalidInput)
	}
	lo, ok = new(big.Int).SetString(digest[DigestLength/2:], 16)
	if !ok {
		return nil, nil, fmt.Errorf("%w: digest low limb", ErrInvalidInput)
	}
	return hi, lo, nil
}
