package accumulator

import (
	"context"
	"fmt"

	"github.com/roach88/accumulog/internal/ir"
)

// Count returns id's accumulator count; an identity that never appended has 0.
func Count(ctx context.Context, r Reader, id ir.Identity) (uint64, error) {
	n, ok, err := r.AccumulatorCount(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("read accumulator count %s: %w", id, err)
	}
	if !ok {
		return 0, nil
	}
	return n, nil
}

// Get returns the accumulator stored at (id, index).
func Get(ctx context.Context, r Reader, id ir.Identity, index uint64) ([]byte, bool, error) {
	p, ok, err := r.AccumulatorList(ctx, id, index)
	if err != nil {
		return nil, false, fmt.Errorf("read accumulator %s/%d: %w", id, index, err)
	}
	return p, ok, nil
}

// Latest returns id's most recent accumulator and its index.
func Latest(ctx context.Context, r Reader, id ir.Identity) (payload []byte, index uint64, ok bool, err error) {
	n, err := Count(ctx, r, id)
	if err != nil || n == 0 {
		return nil, 0, false, err
	}
	p, found, err := Get(ctx, r, id, n-1)
	if err != nil {
		return nil, 0, false, err
	}
	if !found {
		return nil, 0, false, &Error{Code: CodeInconsistentState, Identity: id, Counter: n - 1}
	}
	return p, n - 1, true, nil
}

// History returns id's accumulators in append order.
// A missing slot below the counter is reported as InconsistentState.
func History(ctx context.Context, r Reader, id ir.Identity) ([][]byte, error) {
	n, err := Count(ctx, r, id)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, min(n, 1024))
	for i := uint64(0); i < n; i++ {
		p, ok, err := Get(ctx, r, id, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &Error{Code: CodeInconsistentState, Identity: id, Counter: i}
		}
		out = append(out, p)
	}
	return out, nil
}
