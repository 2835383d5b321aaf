package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/ir"
)

func TestTx_AppendCommits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, p := range [][]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}} {
		mustUpdate(t, s, func(tx *Tx) error {
			idx, err := accumulator.Append(ctx, tx, nil, "X", p)
			if err != nil {
				return err
			}
			assert.Equal(t, uint64(i), idx)
			return nil
		})
	}

	view := s.View()
	n, err := accumulator.Count(ctx, view, "X")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	h, err := accumulator.History(ctx, view, "X")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, h)

	_, ok, err := accumulator.Get(ctx, view, "X", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTx_RollbackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := s.Update(ctx, func(tx *Tx) error {
		if _, err := accumulator.Append(ctx, tx, nil, "X", []byte{1}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	n, err := accumulator.Count(ctx, s.View(), "X")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n, "rolled back append must not be visible")

	entries, err := s.StateEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTx_InconsistentStateLeavesStoreUnchanged(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpdate(t, s, func(tx *Tx) error {
		if err := tx.PutCount(ctx, "Z", 5); err != nil {
			return err
		}
		return tx.PutAccumulator(ctx, "Z", 5, []byte{0xaa})
	})
	before, err := s.StateRoot(ctx)
	require.NoError(t, err)

	err = s.Update(ctx, func(tx *Tx) error {
		_, err := accumulator.Append(ctx, tx, nil, "Z", []byte{1})
		return err
	})
	require.Error(t, err)
	assert.True(t, accumulator.IsInconsistentState(err))

	after, err := s.StateRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTx_EmptyPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpdate(t, s, func(tx *Tx) error {
		_, err := accumulator.Append(ctx, tx, nil, "Y", []byte{})
		return err
	})

	p, ok, err := accumulator.Get(ctx, s.View(), "Y", 0)
	require.NoError(t, err)
	assert.True(t, ok, "empty payload is present, not absent")
	assert.NotNil(t, p)
	assert.Empty(t, p)
}

func TestTx_FullRangeCounter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustUpdate(t, s, func(tx *Tx) error {
		return tx.PutCount(ctx, "O", math.MaxUint64-1)
	})
	mustUpdate(t, s, func(tx *Tx) error {
		idx, err := accumulator.Append(ctx, tx, nil, "O", []byte{1})
		assert.Equal(t, uint64(math.MaxUint64-1), idx)
		return err
	})

	n, err := accumulator.Count(ctx, s.View(), "O")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), n)

	err = s.Update(ctx, func(tx *Tx) error {
		_, err := accumulator.Append(ctx, tx, nil, "O", []byte{2})
		return err
	})
	assert.True(t, accumulator.IsCounterOverflow(err))
}

func TestStateRoot_MatchesMemState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mem := accumulator.NewMemState()

	ops := []struct {
		id      ir.Identity
		payload []byte
	}{
		{"X", []byte{1, 2, 3}},
		{"Y", []byte{}},
		{"X", []byte{4, 5, 6}},
		{"alice", []byte("revocation")},
	}
	for _, op := range ops {
		mustUpdate(t, s, func(tx *Tx) error {
			_, err := accumulator.Append(ctx, tx, nil, op.id, op.payload)
			return err
		})
		_, err := accumulator.Append(ctx, mem, nil, op.id, op.payload)
		require.NoError(t, err)
	}

	root, err := s.StateRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, mem.Root(), root)
}

func TestView_ReadsAreIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustUpdate(t, s, func(tx *Tx) error {
		_, err := accumulator.Append(ctx, tx, nil, "X", []byte{9})
		return err
	})

	view := s.View()
	for i := 0; i < 3; i++ {
		p, ok, err := accumulator.Get(ctx, view, "X", 0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte{9}, p)

		n, err := accumulator.Count(ctx, view, "X")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)
	}
}
