package accumulator

import (
	"context"

	"github.com/roach88/accumulog/internal/ir"
)

// Reader is the read side of ledger state.
//
// AccumulatorCount reports ok=false for an identity that never appended.
// AccumulatorList reports ok=false for an absent slot.
type Reader interface {
	AccumulatorCount(ctx context.Context, id ir.Identity) (count uint64, ok bool, err error)
	AccumulatorList(ctx context.Context, id ir.Identity, index uint64) (payload []byte, ok bool, err error)
}

// State is a transactional view of ledger state.
type State interface {
	Reader
	PutAccumulator(ctx context.Context, id ir.Identity, index uint64, payload []byte) error
	PutCount(ctx context.Context, id ir.Identity, count uint64) error
}

// EventSink receives events deposited by a successful Append.
type EventSink interface {
	Deposit(ev ir.Event)
}

// EventSlice is an EventSink that collects events in deposit order.
type EventSlice []ir.Event

// Deposit appends ev.
func (s *EventSlice) Deposit(ev ir.Event) {
	*s = append(*s, ev)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ev ir.Event)

// Deposit calls f(ev).
func (f SinkFunc) Deposit(ev ir.Event) {
	f(ev)
}
