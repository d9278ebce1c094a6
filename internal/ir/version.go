package ir

// Version constants for the ledger and its proving circuit.
const (
	// LedgerVersion is the provledger release version.
	LedgerVersion = "0.1.0"

	// CircuitID names the arithmetic circuit proofs are generated against.
	// Artifacts built for a different circuit are rejected at load time.
	CircuitID = "provenance-mimc-v1"
)
