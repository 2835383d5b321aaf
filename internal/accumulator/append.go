package accumulator

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/roach88/accumulog/internal/ir"
)

// Append stores payload at the next free slot of id's log and returns that
// slot's index.
//
// id must already be authenticated; Append performs no origin checks and
// imposes no limits on payload. On success it writes the slot, advances the
// counter by one and deposits Updated(id, count, payload) into sink. On any
// error nothing is written and nothing is deposited.
func Append(ctx context.Context, st State, sink EventSink, id ir.Identity, payload []byte) (uint64, error) {
	counter, err := Count(ctx, st, id)
	if err != nil {
		return 0, err
	}

	next, carry := bits.Add64(counter, 1, 0)
	if carry != 0 {
		return 0, &Error{Code: CodeCounterOverflow, Identity: id, Counter: counter}
	}

	// Guard the slot about to be written, not the one after it.
	_, occupied, err := st.AccumulatorList(ctx, id, counter)
	if err != nil {
		return 0, fmt.Errorf("read accumulator %s/%d: %w", id, counter, err)
	}
	if occupied {
		return 0, &Error{Code: CodeInconsistentState, Identity: id, Counter: counter}
	}

	stored := clonePayload(payload)
	if err := st.PutAccumulator(ctx, id, counter, stored); err != nil {
		return 0, fmt.Errorf("write accumulator %s/%d: %w", id, counter, err)
	}
	if err := st.PutCount(ctx, id, next); err != nil {
		return 0, fmt.Errorf("write accumulator count %s: %w", id, err)
	}

	if sink != nil {
		sink.Deposit(ir.Updated(id, next, clonePayload(payload)))
	}
	return counter, nil
}

// clonePayload copies p so the caller's buffer is never aliased by state or
// events. A nil payload becomes an empty one.
func clonePayload(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
