package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a ledger conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock configures the deterministic timestamp source. Optional.
	Clock *ClockConfig `yaml:"clock,omitempty"`

	// ProofSystem is "available" (default) or "unavailable". When
	// unavailable the ledger runs without a prover and every record
	// carries an Unavailable proof.
	ProofSystem string `yaml:"proof_system,omitempty"`

	// Steps run in order against a fresh ledger.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ClockConfig sets the first timestamp and the increment per record.
// A step of 0 issues the same timestamp for every record.
type ClockConfig struct {
	Start int64 `yaml:"start"`
	Step  int64 `yaml:"step"`
}

// Step is one ledger operation.
type Step struct {
	// Op is record, verify, chain or reprove.
	Op string `yaml:"op"`

	// Subj and Obj are record inputs.
	Subj string `yaml:"subj,omitempty"`
	Obj  string `yaml:"obj,omitempty"`

	// URI is the chain subject.
	URI string `yaml:"uri,omitempty"`

	// As binds the record produced by a record or reprove step to a name.
	As string `yaml:"as,omitempty"`

	// Ref names an earlier record for verify and reprove.
	Ref string `yaml:"ref,omitempty"`

	// Tamper alters the referenced record before verifying.
	Tamper string `yaml:"tamper,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. Unset fields are not checked.
type Expect struct {
	// Error is the expected ledger error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Proof is the expected proof kind for record and reprove.
	Proof string `yaml:"proof,omitempty"`

	// Reason is the expected Unavailable reason.
	Reason string `yaml:"reason,omitempty"`

	// Valid is the expected verify result.
	Valid *bool `yaml:"valid,omitempty"`

	// Length and Objects check a chain result.
	Length  *int     `yaml:"length,omitempty"`
	Objects []string `yaml:"objects,omitempty"`
}

// Assertion validates the final store state.
type Assertion struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count,omitempty"`
	URI   string `yaml:"uri,omitempty"`
}

// Step operations.
const (
	OpRecord  = "record"
	OpVerify  = "verify"
	OpChain   = "chain"
	OpReprove = "reprove"
)

// Tamper modes for verify steps.
const (
	TamperHash       = "hash"
	TamperSignal     = "signal"
	TamperCommitment = "commitment"
	TamperProof      = "proof"
)

// Assertion type constants.
const (
	AssertEventCount   = "event_count"
	AssertChainOrdered = "chain_ordered"
	AssertHashesMatch  = "hashes_match"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "asertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns every .yaml/.yml file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	switch s.ProofSystem {
	case "", "available", "unavailable":
	default:
		return fmt.Errorf("proof_system must be available or unavailable, got %q", s.ProofSystem)
	}

	if s.Clock != nil && s.Clock.Step < 0 {
		return fmt.Errorf("clock.step must be non-negative")
	}

	bound := map[string]bool{}
	for i, step := range s.Steps {
		if err := validateStep(i, &step, bound); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(i int, st *Step, bound map[string]bool) error {
	switch st.Op {
	case OpRecord:
		if st.Ref != "" || st.Tamper != "" || st.URI != "" {
			return fmt.Errorf("steps[%d]: record takes subj, obj and as only", i)
		}
	case OpVerify:
		if st.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for verify", i)
		}
		switch st.Tamper {
		case "", TamperHash, TamperSignal, TamperCommitment, TamperProof:
		default:
			return fmt.Errorf("steps[%d]: unknown tamper mode %q", i, st.Tamper)
		}
	case OpChain:
		if st.Ref != "" || st.Tamper != "" {
			return fmt.Errorf("steps[%d]: chain takes uri only", i)
		}
	case OpReprove:
		if st.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for reprove", i)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, st.Op)
	}

	if st.Ref != "" && !bound[st.Ref] {
		return fmt.Errorf("steps[%d]: ref %q is not bound by an earlier step", i, st.Ref)
	}
	if st.As != "" {
		if st.Op != OpRecord && st.Op != OpReprove {
			return fmt.Errorf("steps[%d]: as is only valid on record and reprove", i)
		}
		bound[st.As] = true
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertChainOrdered:
		if a.URI == "" {
			return fmt.Errorf("assertions[%d]: uri is required for chain_ordered", index)
		}
	case AssertHashesMatch:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
