package harness

import (
	"context"
	"fmt"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/engine"
	"github.com/roach88/accumulog/internal/ir"
	"github.com/roach88/accumulog/internal/store"
	"github.com/roach88/accumulog/internal/testutil"
)

// Harness is the test execution engine.
// It runs a scenario's steps through a real engine over a private ledger with
// a fixed correlation token.
type Harness struct {
	store  *store.Store
	engine *engine.Engine

	// pending collects events published during the current dispatch so they
	// land in the trace after their receipt.
	pending []ir.StoredEvent
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and engine
// 2. Force setup state
// 3. Dispatch steps, validating expect clauses
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, and errors
//
// A returned error means the scenario could not be executed; scenario
// failures are reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{store: st}
	h.engine = engine.New(st,
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator(scenario.Token)),
		engine.WithMaxPayloadBytes(scenario.MaxPayloadBytes),
	)
	h.engine.Subscribe(func(ev ir.StoredEvent) {
		h.pending = append(h.pending, ev)
	})

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if result.SetupRoot, err = st.StateRoot(ctx); err != nil {
		return nil, err
	}

	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	if result.StateRoot, err = st.StateRoot(ctx); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup writes forced state in one transaction.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupStep) error {
	if len(setup) == 0 {
		return nil
	}
	return h.store.Update(ctx, func(tx *store.Tx) error {
		for i, step := range setup {
			switch {
			case step.ForceCount != nil:
				fc := step.ForceCount
				if err := tx.PutCount(ctx, ir.Identity(fc.As), fc.Count); err != nil {
					return fmt.Errorf("setup step %d: %w", i, err)
				}
			case step.ForceAccumulator != nil:
				fa := step.ForceAccumulator
				payload, err := ir.ParseHexPayload(fa.Payload)
				if err != nil {
					return fmt.Errorf("setup step %d: %w", i, err)
				}
				if err := tx.PutAccumulator(ctx, ir.Identity(fa.As), fa.Index, payload); err != nil {
					return fmt.Errorf("setup step %d: %w", i, err)
				}
			}
		}
		return nil
	})
}

// executeSteps dispatches every step and validates expect clauses.
//
// Each step:
// 1. Dispatches the call through the engine
// 2. Records a rejection, or the receipt followed by its events
// 3. Compares the outcome with the expect clause
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		payload, err := ir.ParseHexPayload(step.Append.Payload)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		h.pending = h.pending[:0]
		receipt, err := h.engine.Dispatch(ctx, ir.Origin{Signer: ir.Identity(step.Append.As)}, payload)

		var code string
		switch {
		case engine.IsRejection(err):
			code = string(engine.RejectionCode(err))
			result.AddRejectedTrace(i, code)
		case err != nil && accumulator.CodeOf(err) == "":
			return fmt.Errorf("step %d: %w", i, err)
		default:
			code = receipt.ErrorCode
			result.AddReceiptTrace(i, receipt)
			for _, ev := range h.pending {
				result.AddEventTrace(i, ev)
			}
		}

		if msg := checkExpect(i, step.Expect, receipt, code); msg != "" {
			result.AddError(msg)
		}
	}
	return nil
}

// checkExpect returns a failure message, or "" if the step matched.
func checkExpect(step int, expect *Expect, receipt ir.Receipt, code string) string {
	if expect == nil {
		return ""
	}

	if expect.Error != "" {
		if code != expect.Error {
			return fmt.Sprintf("steps[%d]: expected error %s, got %s", step, expect.Error, describe(receipt, code))
		}
		return ""
	}

	if code != "" || !receipt.OK() {
		return fmt.Sprintf("steps[%d]: expected index %d, got %s", step, *expect.Index, describe(receipt, code))
	}
	if receipt.Index != *expect.Index {
		return fmt.Sprintf("steps[%d]: expected index %d, got index %d", step, *expect.Index, receipt.Index)
	}
	return ""
}

func describe(receipt ir.Receipt, code string) string {
	if code != "" {
		return "error " + code
	}
	return fmt.Sprintf("index %d", receipt.Index)
}
