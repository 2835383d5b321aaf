package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/accumulog/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Token        string       `json:"token,omitempty"`
	Trace        []TraceEvent `json:"trace"`
	StateRoot    string       `json:"state_root"`
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(scenario *Scenario, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: scenario.Name,
		Token:        scenario.Token,
		Trace:        result.Trace,
		StateRoot:    result.StateRoot,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, slices and maps.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, te := range s.Trace {
		m := map[string]any{
			"type": te.Type,
			"step": te.Step,
		}
		switch te.Type {
		case TypeRejected:
			m["error"] = te.Error
		case TypeEvent:
			m["seq"] = te.Seq
			m["as"] = string(te.Identity)
			m["count"] = te.Count
			m["payload"] = ir.HexPayload(te.Payload)
		default:
			m["seq"] = te.Seq
			m["as"] = string(te.Identity)
			m["outcome"] = te.Outcome
			if te.Outcome == ir.OutcomeOK {
				m["index"] = te.Index
			} else {
				m["error"] = te.Error
			}
		}
		traceList[i] = m
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"state_root":    s.StateRoot,
	}
	if s.Token != "" {
		result["token"] = s.Token
	}
	return result
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Returns error if the
// scenario could not be executed. Test failure (via goldie) occurs if the
// trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden file
// without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenario, result)
	traceJSON, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
