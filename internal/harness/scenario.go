package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/accumulog/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario optionally forces ledger state, dispatches a sequence of
// update_accumulator calls and asserts on the receipts, events and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Token is an optional fixed correlation token for deterministic traces.
	// If empty, defaults to "test-token-default".
	Token string `yaml:"token,omitempty"`

	// MaxPayloadBytes is the runtime's transaction-size policy. 0 is unlimited.
	MaxPayloadBytes int `yaml:"max_payload_bytes,omitempty"`

	// Setup writes state directly, bypassing the append path.
	// Used for fault injection (desynchronized counters, saturated counters).
	Setup []SetupStep `yaml:"setup,omitempty"`

	// Steps are dispatched in order through the engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: count, slot, absent, event_count, unchanged, replays
	Assertions []Assertion `yaml:"assertions"`
}

// SetupStep forces one piece of state. Exactly one field is set.
type SetupStep struct {
	ForceCount       *ForceCount       `yaml:"force_count,omitempty"`
	ForceAccumulator *ForceAccumulator `yaml:"force_accumulator,omitempty"`
}

// ForceCount sets AccumulatorCount for an identity.
type ForceCount struct {
	As    string `yaml:"as"`
	Count uint64 `yaml:"count"`
}

// ForceAccumulator sets one AccumulatorList slot.
type ForceAccumulator struct {
	As      string `yaml:"as"`
	Index   uint64 `yaml:"index"`
	Payload string `yaml:"payload"` // hex
}

// Step dispatches one update_accumulator call.
type Step struct {
	Append AppendStep `yaml:"append"`

	// Expect specifies the expected result.
	// If nil, no validation is performed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// AppendStep is the call to dispatch. An empty As is an unsigned origin.
type AppendStep struct {
	As      string `yaml:"as"`
	Payload string `yaml:"payload"` // hex
}

// Expect specifies the expected call result. Exactly one field is set.
type Expect struct {
	// Index is the slot the payload must be stored at.
	Index *uint64 `yaml:"index,omitempty"`

	// Error is the expected error code: an accumulator code
	// (CounterOverflow, InconsistentState) or a rejection code
	// (BAD_ORIGIN, PAYLOAD_TOO_LARGE).
	Error string `yaml:"error,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": AccumulatorCount[as] equals count
	// - "slot": AccumulatorList[(as, index)] equals payload
	// - "absent": AccumulatorList[(as, index)] is absent
	// - "event_count": exactly count events were emitted (for as, if set)
	// - "unchanged": final state root equals the root after setup
	// - "replays": replaying the call log reproduces the ledger
	Type string `yaml:"type"`

	As      string  `yaml:"as,omitempty"`
	Index   uint64  `yaml:"index,omitempty"`
	Payload *string `yaml:"payload,omitempty"` // hex; pointer so "" is an explicit empty payload
	Count   *uint64 `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCount      = "count"
	AssertSlot       = "slot"
	AssertAbsent     = "absent"
	AssertEventCount = "event_count"
	AssertUnchanged  = "unchanged"
	AssertReplays    = "replays"
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

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		sc, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// validateScenario checks required fields and value formats.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.MaxPayloadBytes < 0 {
		return fmt.Errorf("max_payload_bytes must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	for i, step := range s.Setup {
		if err := validateSetupStep(i, step); err != nil {
			return err
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}

	return nil
}

func validateSetupStep(index int, step SetupStep) error {
	switch {
	case step.ForceCount != nil && step.ForceAccumulator != nil:
		return fmt.Errorf("setup[%d]: only one of force_count, force_accumulator may be set", index)
	case step.ForceCount != nil:
		if step.ForceCount.As == "" {
			return fmt.Errorf("setup[%d]: as is required for force_count", index)
		}
	case step.ForceAccumulator != nil:
		if step.ForceAccumulator.As == "" {
			return fmt.Errorf("setup[%d]: as is required for force_accumulator", index)
		}
		if _, err := ir.ParseHexPayload(step.ForceAccumulator.Payload); err != nil {
			return fmt.Errorf("setup[%d]: invalid payload: %w", index, err)
		}
	default:
		return fmt.Errorf("setup[%d]: one of force_count, force_accumulator is required", index)
	}
	return nil
}

func validateStep(index int, step Step) error {
	if _, err := ir.ParseHexPayload(step.Append.Payload); err != nil {
		return fmt.Errorf("steps[%d]: invalid payload: %w", index, err)
	}
	if step.Expect != nil {
		if step.Expect.Index != nil && step.Expect.Error != "" {
			return fmt.Errorf("steps[%d]: expect takes index or error, not both", index)
		}
		if step.Expect.Index == nil && step.Expect.Error == "" {
			return fmt.Errorf("steps[%d]: expect requires index or error", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion's required fields.
func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCount:
		if a.As == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: as and count are required for count", index)
		}
	case AssertSlot:
		if a.As == "" || a.Payload == nil {
			return fmt.Errorf("assertions[%d]: as and payload are required for slot", index)
		}
		if _, err := ir.ParseHexPayload(*a.Payload); err != nil {
			return fmt.Errorf("assertions[%d]: invalid payload: %w", index, err)
		}
	case AssertAbsent:
		if a.As == "" {
			return fmt.Errorf("assertions[%d]: as is required for absent", index)
		}
	case AssertEventCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for event_count", index)
		}
	case AssertUnchanged, AssertReplays:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
