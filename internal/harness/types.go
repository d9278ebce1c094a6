package harness

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`

	// Ref names the record a step acted on or produced.
	Ref string `json:"ref,omitempty"`

	// Outcome is "ok" or the ledger error code.
	Outcome string `json:"outcome"`

	ID        int64  `json:"id,omitempty"`
	Hash      string `json:"hash,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Proof     string `json:"proof,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Tamper    string `json:"tamper,omitempty"`
	Valid     *bool  `json:"valid,omitempty"`

	// Chain lists the hashes returned by a chain step, in order.
	Chain []string `json:"chain,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
