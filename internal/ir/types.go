package ir

// PredicateCauses is the only predicate the ledger records.
const PredicateCauses = "http://ontoseed.org/core#causes"

// Event is an immutable causal fact: Subject causes Object.
//
// ID is assigned by the store. Timestamp is assigned by the ledger at the
// moment of recording and is never supplied by the caller.
type Event struct {
	ID        int64  `json:"id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Timestamp int64  `json:"timestamp"`
	Hash      string `json:"hash"`
}

// ProvenanceRecord is the caller-facing result of recording an event.
//
// PublicSignals[0] always equals Hash. For a real proof PublicSignals[1]
// is the decimal circuit commitment.
type ProvenanceRecord struct {
	ID            int64    `json:"id"`
	Hash          string   `json:"hash"`
	Proof         Proof    `json:"proof"`
	PublicSignals []string `json:"publicSignals"`
}

// Chain is the timestamp-ordered sequence of events sharing one subject.
// It is derived on every query and never stored.
type Chain []Event
