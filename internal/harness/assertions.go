package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/engine"
	"github.com/roach88/accumulog/internal/ir"
	"github.com/roach88/accumulog/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, te := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatTraceEvent(te))
		}
	}

	return buf.String()
}

// formatTraceEvent renders one trace entry on a line.
func formatTraceEvent(te TraceEvent) string {
	switch te.Type {
	case TypeRejected:
		return fmt.Sprintf("step %d rejected %s", te.Step, te.Error)
	case TypeEvent:
		return fmt.Sprintf("seq %d Updated(%s, %d, %s)", te.Seq, te.Identity, te.Count, ir.HexPayload(te.Payload))
	default:
		if te.Outcome == ir.OutcomeOK {
			return fmt.Sprintf("seq %d %s -> index %d", te.Seq, te.Identity, te.Index)
		}
		return fmt.Sprintf("seq %d %s -> %s", te.Seq, te.Identity, te.Error)
	}
}

// assertCount checks AccumulatorCount for an identity (absent reads as 0).
func assertCount(ctx context.Context, r accumulator.Reader, a Assertion) error {
	got, err := accumulator.Count(ctx, r, ir.Identity(a.As))
	if err != nil {
		return err
	}
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("count(%s) = %d", a.As, *a.Count),
			Actual:   fmt.Sprintf("count(%s) = %d", a.As, got),
		}
	}
	return nil
}

// assertSlot checks that a slot holds exactly the given payload.
func assertSlot(ctx context.Context, r accumulator.Reader, a Assertion) error {
	want, err := ir.ParseHexPayload(*a.Payload)
	if err != nil {
		return err
	}
	got, ok, err := accumulator.Get(ctx, r, ir.Identity(a.As), a.Index)
	if err != nil {
		return err
	}

	expected := fmt.Sprintf("slot(%s, %d) = %q", a.As, a.Index, *a.Payload)
	if !ok {
		return &AssertionError{Type: AssertSlot, Expected: expected, Actual: "absent"}
	}
	if !bytes.Equal(got, want) {
		return &AssertionError{
			Type:     AssertSlot,
			Expected: expected,
			Actual:   fmt.Sprintf("%q", ir.HexPayload(got)),
		}
	}
	return nil
}

// assertAbsent checks that a slot is empty.
func assertAbsent(ctx context.Context, r accumulator.Reader, a Assertion) error {
	got, ok, err := accumulator.Get(ctx, r, ir.Identity(a.As), a.Index)
	if err != nil {
		return err
	}
	if ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("slot(%s, %d) absent", a.As, a.Index),
			Actual:   fmt.Sprintf("%q", ir.HexPayload(got)),
		}
	}
	return nil
}

// assertEventCount checks the number of emitted events, optionally for one
// identity.
func assertEventCount(result *Result, a Assertion) error {
	var n uint64
	for _, te := range result.Events() {
		if a.As == "" || te.Identity == ir.Identity(a.As) {
			n++
		}
	}
	if n != *a.Count {
		scope := "all identities"
		if a.As != "" {
			scope = a.As
		}
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events for %s", *a.Count, scope),
			Actual:   fmt.Sprintf("%d events", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertUnchanged checks that the steps left ledger state untouched.
func assertUnchanged(result *Result) error {
	if result.StateRoot != result.SetupRoot {
		return &AssertionError{
			Type:     AssertUnchanged,
			Expected: "state root " + result.SetupRoot,
			Actual:   "state root " + result.StateRoot,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertReplays checks that the call log replays to the persisted ledger.
func assertReplays(ctx context.Context, st *store.Store) error {
	report, err := engine.Replay(ctx, st)
	if err != nil {
		return err
	}
	if !report.OK() {
		actual := make([]string, 0, len(report.Divergences)+1)
		for _, d := range report.Divergences {
			actual = append(actual, d.String())
		}
		if report.Root != report.PersistedRoot {
			actual = append(actual, fmt.Sprintf("root %s != persisted %s", report.Root, report.PersistedRoot))
		}
		return &AssertionError{
			Type:     AssertReplays,
			Expected: "replay reproduces the ledger",
			Actual:   strings.Join(actual, "; "),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertUnchanged:
			err = assertUnchanged(result)
		case AssertCount, AssertSlot, AssertAbsent, AssertReplays:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
				break
			}
			err = evaluateStateAssertion(actx, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func evaluateStateAssertion(actx *AssertionContext, a Assertion) error {
	r := actx.Store.View()
	switch a.Type {
	case AssertCount:
		return assertCount(actx.Ctx, r, a)
	case AssertSlot:
		return assertSlot(actx.Ctx, r, a)
	case AssertAbsent:
		return assertAbsent(actx.Ctx, r, a)
	default:
		return assertReplays(actx.Ctx, actx.Store)
	}
}
