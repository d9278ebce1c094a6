package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGroth16() Proof {
	return Proof{
		Kind:  ProofKindGroth16,
		Curve: "bn254",
		A:     []string{"1", "2"},
		B:     [][]string{{"3", "4"}, {"5", "6"}},
		C:     []string{"7", "8"},
	}
}

func TestProofValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Proof)
		wantErr bool
	}{
		{"valid groth16", func(p *Proof) {}, false},
		{"missing kind", func(p *Proof) { p.Kind = "" }, true},
		{"unknown kind", func(p *Proof) { p.Kind = "plonk" }, true},
		{"short a", func(p *Proof) { p.A = []string{"1"} }, true},
		{"hex coordinate", func(p *Proof) { p.C = []string{"0x123", "0x456"} }, true},
		{"leading zero", func(p *Proof) { p.A[0] = "01" }, true},
		{"plus sign", func(p *Proof) { p.A[1] = "+2" }, true},
		{"zero coordinate", func(p *Proof) { p.C[0] = "0" }, false},
		{"b with one row", func(p *Proof) { p.B = p.B[:1] }, true},
		{"b row too long", func(p *Proof) { p.B[1] = []string{"1", "2", "3"} }, true},
		{"groth16 with reason", func(p *Proof) { p.Reason = "nope" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validGroth16()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUnavailableProof(t *testing.T) {
	p := UnavailableProof(ReasonProofTimeout)
	require.NoError(t, p.Validate())
	assert.False(t, p.IsReal())
	assert.Equal(t, ProofKindUnavailable, p.Kind)

	p.A = []string{"1", "2"}
	assert.Error(t, p.Validate(), "unavailable proof must not look like a real one")
}

func TestProofUnmarshalJSON(t *testing.T) {
	var p Proof
	err := json.Unmarshal([]byte(`{"kind":"groth16","curve":"bn254","a":["1","2"],"b":[["3","4"],["5","6"]],"c":["7","8"]}`), &p)
	require.NoError(t, err)
	assert.True(t, p.IsReal())
	assert.Equal(t, "bn254", p.Curve)

	var u Proof
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"unavailable","reason":"proof timeout"}`), &u))
	assert.Equal(t, ReasonProofTimeout, u.Reason)
}

func TestProofUnmarshalJSONRejectsUntypedPayload(t *testing.T) {
	// Untagged shape of the legacy mock proof.
	var p Proof
	err := json.Unmarshal([]byte(`{"a":[],"b":[],"c":[]}`), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = json.Unmarshal([]byte(`{"kind":`), &p)
	require.Error(t, err)
}

func TestProvenanceRecordJSONFieldNames(t *testing.T) {
	rec := ProvenanceRecord{
		ID:            1,
		Hash:          Digest("a", "b", 1),
		Proof:         UnavailableProof(ReasonProofSystemUnavailable),
		PublicSignals: []string{Digest("a", "b", 1)},
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "publicSignals")
	assert.Contains(t, m, "proof")

	var back ProvenanceRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}
