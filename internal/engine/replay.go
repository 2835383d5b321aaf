package engine

// # Replay
//
// Replay re-executes the persisted call log against an empty in-memory state
// and checks that the ledger explains itself:
//
//  1. Every call ID recomputes from (signer, payload, seq)
//  2. Every receipt (outcome, index, error code) is reproduced
//  3. Every stored event is reproduced in order
//  4. The recomputed state root equals the persisted state root
//
// Replay runs the log twice and compares the two roots, so a divergence in
// the append path itself is reported even when the store agrees with one run.
//
// Replay uses the same accumulator.Append as Dispatch. There is no replay mode.

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/ir"
	"github.com/roach88/accumulog/internal/store"
)

// Divergence describes one mismatch between the call log and its replay.
type Divergence struct {
	Seq    int64  `json:"seq"`
	CallID string `json:"call_id"`
	Field  string `json:"field"`
	Want   string `json:"want"`
	Got    string `json:"got"`
}

// String formats the divergence for text output.
func (d Divergence) String() string {
	return fmt.Sprintf("seq %d (%s): %s: want %s, got %s", d.Seq, d.CallID, d.Field, d.Want, d.Got)
}

// ReplayReport is the result of replaying a call log.
type ReplayReport struct {
	Calls         int          `json:"calls"`
	Events        int          `json:"events"`
	Root          string       `json:"root"`
	PersistedRoot string       `json:"persisted_root"`
	Deterministic bool         `json:"deterministic"`
	Divergences   []Divergence `json:"divergences"`
}

// OK reports whether replay reproduced the persisted ledger exactly.
func (r *ReplayReport) OK() bool {
	return r.Deterministic && len(r.Divergences) == 0 && r.Root == r.PersistedRoot
}

// Replay re-executes the call log of s from empty state and reports every
// divergence. It never writes to s.
func Replay(ctx context.Context, s *store.Store) (*ReplayReport, error) {
	calls, err := s.ReadCalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	events, err := s.ReadEvents(ctx, store.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	persistedRoot, err := s.StateRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	byCall := make(map[string][]ir.StoredEvent)
	for _, ev := range events {
		byCall[ev.CallID] = append(byCall[ev.CallID], ev)
	}

	first, divergences, err := replayCalls(ctx, calls, byCall)
	if err != nil {
		return nil, err
	}
	second, _, err := replayCalls(ctx, calls, byCall)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{
		Calls:         len(calls),
		Events:        len(events),
		Root:          first.Root(),
		PersistedRoot: persistedRoot,
		Deterministic: first.Root() == second.Root(),
		Divergences:   divergences,
	}

	slog.Debug("replay finished",
		"calls", report.Calls,
		"events", report.Events,
		"divergences", len(report.Divergences),
		"root", report.Root,
	)
	return report, nil
}

// replayCalls applies calls in order to a fresh MemState.
func replayCalls(ctx context.Context, calls []ir.CallRecord, stored map[string][]ir.StoredEvent) (*accumulator.MemState, []Divergence, error) {
	st := accumulator.NewMemState()
	divergences := []Divergence{}

	for i, rec := range calls {
		call := rec.Call
		diverge := func(field, want, got string) {
			divergences = append(divergences, Divergence{
				Seq: call.Seq, CallID: call.ID, Field: field, Want: want, Got: got,
			})
		}

		if want := int64(i + 1); call.Seq != want {
			diverge("seq", fmt.Sprint(want), fmt.Sprint(call.Seq))
		}

		id, err := ir.CallID(call.Origin.Signer, call.Payload, call.Seq)
		if err != nil {
			return nil, nil, fmt.Errorf("replay seq %d: %w", call.Seq, err)
		}
		if id != call.ID {
			diverge("call_id", call.ID, id)
		}

		var events accumulator.EventSlice
		index, err := accumulator.Append(ctx, st, &events, call.Origin.Signer, call.Payload)
		code := accumulator.CodeOf(err)
		if err != nil && code == "" {
			return nil, nil, fmt.Errorf("replay seq %d: %w", call.Seq, err)
		}

		got := ir.Receipt{Outcome: ir.OutcomeOK, Index: index}
		if err != nil {
			got = ir.Receipt{Outcome: ir.OutcomeError, ErrorCode: string(code)}
		}
		want := rec.Receipt
		if got.Outcome != want.Outcome {
			diverge("outcome", want.Outcome, got.Outcome)
		} else if got.OK() && got.Index != want.Index {
			diverge("index", fmt.Sprint(want.Index), fmt.Sprint(got.Index))
		} else if !got.OK() && got.ErrorCode != want.ErrorCode {
			diverge("error_code", want.ErrorCode, got.ErrorCode)
		}

		compareEvents(stored[call.ID], events, diverge)
	}

	return st, divergences, nil
}

// compareEvents reports differences between persisted and replayed events.
func compareEvents(want []ir.StoredEvent, got []ir.Event, diverge func(field, want, got string)) {
	if len(want) != len(got) {
		diverge("events", fmt.Sprint(len(want)), fmt.Sprint(len(got)))
		return
	}
	for n := range want {
		w, g := want[n].Event, got[n]
		switch {
		case w.Kind != g.Kind:
			diverge(fmt.Sprintf("events[%d].kind", n), w.Kind, g.Kind)
		case w.Identity != g.Identity:
			diverge(fmt.Sprintf("events[%d].identity", n), string(w.Identity), string(g.Identity))
		case w.Count != g.Count:
			diverge(fmt.Sprintf("events[%d].count", n), fmt.Sprint(w.Count), fmt.Sprint(g.Count))
		case !bytes.Equal(w.Payload, g.Payload):
			diverge(fmt.Sprintf("events[%d].payload", n), ir.HexPayload(w.Payload), ir.HexPayload(g.Payload))
		}
	}
}
