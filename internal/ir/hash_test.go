package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestKnownVector(t *testing.T) {
	got := Digest("http://example.org/Human1", "http://example.org/Company1", 1700000000000)
	assert.Equal(t, "da81debbc46f562b82d897310a2c4edf58acdea6c3477e239002e27a4e8414bc", got)
}

func TestDigestMatchesLiteralConcatenation(t *testing.T) {
	sum := sha256.Sum256([]byte("a||b||0"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Digest("a", "b", 0))
}

func TestDigestDeterminism(t *testing.T) {
	d1 := Digest("s", "o", 42)
	d2 := Digest("s", "o", 42)

	assert.Equal(t, d1, d2, "Digest must be deterministic")
	assert.Len(t, d1, DigestLength, "SHA-256 hex is 64 characters")
	assert.True(t, IsDigest(d1))
}

func TestDigestChangesWithInput(t *testing.T) {
	base := Digest("s", "o", 1)

	assert.NotEqual(t, base, Digest("s2", "o", 1), "different subject")
	assert.NotEqual(t, base, Digest("s", "o2", 1), "different object")
	assert.NotEqual(t, base, Digest("s", "o", 2), "different timestamp")
}

func TestDigestFieldsNeedNoEscaping(t *testing.T) {
	// Separator inside a value is hashed as-is.
	got := Digest("a||b", "c", 1)
	sum := sha256.Sum256([]byte("a||b||c||1"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestFieldElementTruncatesTo64Bits(t *testing.T) {
	assert.Equal(t, uint64(5329625244229304478), FieldElement("http://example.org/Human1"))
	assert.Equal(t, FieldElement("x"), FieldElement("x"))
	assert.NotEqual(t, FieldElement("x"), FieldElement("y"))
}

func TestIsDigest(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{Digest("a", "b", 1), true},
		{"", false},
		{"abc", false},
		{"DA81DEBBC46F562B82D897310A2C4EDF58ACDEA6C3477E239002E27A4E8414BC", false},
		{"za81debbc46f562b82d897310a2c4edf58acdea6c3477e239002e27a4e8414bc", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDigest(tt.in), "IsDigest(%q)", tt.in)
	}
}

func TestDigestLimbs(t *testing.T) {
	d := "da81debbc46f562b82d897310a2c4edf58acdea6c3477e239002e27a4e8414bc"
	hi, lo, err := DigestLimbs(d)
	require.NoError(t, err)

	wantHi, _ := new(big.Int).SetString("da81debbc46f562b82d897310a2c4edf", 16)
	wantLo, _ := new(big.Int).SetString("58acdea6c3477e239002e27a4e8414bc", 16)
	assert.Equal(t, 0, hi.Cmp(wantHi))
	assert.Equal(t, 0, lo.Cmp(wantLo))
	assert.LessOrEqual(t, hi.BitLen(), 128)
	assert.LessOrEqual(t, lo.BitLen(), 128)
}

func TestDigestLimbsRejectsMalformed(t *testing.T) {
	_, _, err := DigestLimbs("0xfakehash")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
