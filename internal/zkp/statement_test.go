package zkp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provledger/internal/ir"
)

func TestNewStatement(t *testing.T) {
	st, err := NewStatement("http://example.org/Human1", "http://example.org/Company1", 1700000000000)
	require.NoError(t, err)

	assert.Equal(t, uint64(5329625244229304478), st.Subject)
	assert.Equal(t, ir.FieldElement("http://example.org/Company1"), st.Object)
	assert.Equal(t, uint64(1700000000000), st.Timestamp)
	assert.Equal(t, "da81debbc46f562b82d897310a2c4edf58acdea6c3477e239002e27a4e8414bc", st.Digest)

	signals := st.PublicSignals()
	require.Len(t, signals, 2)
	assert.Equal(t, st.Digest, signals[0])
	assert.Equal(t, st.Commitment().String(), signals[1])
}

func TestNewStatement_Deterministic(t *testing.T) {
	a, err := NewStatement("s", "o", 42)
	require.NoError(t, err)
	b, err := NewStatement("s", "o", 42)
	require.NoError(t, err)

	assert.Equal(t, a.PublicSignals(), b.PublicSignals())
}

func TestNewStatement_CommitmentBindsEveryInput(t *testing.T) {
	base, err := NewStatement("s", "o", 42)
	require.NoError(t, err)

	for name, args := range map[string]struct {
		s, o string
		ts   int64
	}{
		"subject":   {"s2", "o", 42},
		"object":    {"s", "o2", 42},
		"timestamp": {"s", "o", 43},
	} {
		t.Run(name, func(t *testing.T) {
			other, err := NewStatement(args.s, args.o, args.ts)
			require.NoError(t, err)
			assert.NotEqual(t, 0, base.Commitment().Cmp(other.Commitment()))
		})
	}
}

func TestNewStatement_NegativeTimestamp(t *testing.T) {
	_, err := NewStatement("s", "o", -1)
	assert.ErrorIs(t, err, ir.ErrInvalidInput)
}

func TestStatement_CommitmentIsCopy(t *testing.T) {
	st, err := NewStatement("s", "o", 1)
	require.NoError(t, err)

	c := st.Commitment()
	c.Add(c, big.NewInt(1))
	assert.NotEqual(t, 0, c.Cmp(st.Commitment()))
}
