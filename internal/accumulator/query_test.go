package accumulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount_AbsentIsZero(t *testing.T) {
	n, err := Count(context.Background(), NewMemState(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestGet_ReadsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	_, err := Append(ctx, st, nil, "X", []byte{1, 2})
	require.NoError(t, err)

	first, ok1, err := Get(ctx, st, "X", 0)
	require.NoError(t, err)
	second, ok2, err := Get(ctx, st, "X", 0)
	require.NoError(t, err)

	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)

	// Mutating a returned slice does not reach stored state.
	first[0] = 42
	third, _, _ := Get(ctx, st, "X", 0)
	assert.Equal(t, []byte{1, 2}, third)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()

	_, _, ok, err := Latest(ctx, st, "X")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, p := range [][]byte{{1}, {2}, {3}} {
		_, err := Append(ctx, st, nil, "X", p)
		require.NoError(t, err)
	}

	p, idx, ok, err := Latest(ctx, st, "X")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), idx)
	assert.Equal(t, []byte{3}, p)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()

	h, err := History(ctx, st, "X")
	require.NoError(t, err)
	assert.Empty(t, h)

	for _, p := range [][]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}} {
		_, err := Append(ctx, st, nil, "X", p)
		require.NoError(t, err)
	}

	h, err = History(ctx, st, "X")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, h)
}

func TestHistory_GapIsInconsistent(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	require.NoError(t, st.PutCount(ctx, "Z", 2))
	require.NoError(t, st.PutAccumulator(ctx, "Z", 0, []byte{1}))

	_, err := History(ctx, st, "Z")
	require.Error(t, err)
	assert.True(t, IsInconsistentState(err))
}

func TestMemState_CloneIsIndependent(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	_, err := Append(ctx, st, nil, "X", []byte{1})
	require.NoError(t, err)

	c := st.Clone()
	assert.Equal(t, st.Root(), c.Root())

	_, err = Append(ctx, c, nil, "X", []byte{2})
	require.NoError(t, err)
	assert.NotEqual(t, st.Root(), c.Root())

	n, _ := Count(ctx, st, "X")
	assert.Equal(t, uint64(1), n)
}

func TestMemState_RootDeterministic(t *testing.T) {
	ctx := context.Background()
	a, b := NewMemState(), NewMemState()

	for _, st := range []*MemState{a, b} {
		_, err := Append(ctx, st, nil, "X", []byte{1})
		require.NoError(t, err)
		_, err = Append(ctx, st, nil, "Y", []byte{2})
		require.NoError(t, err)
	}

	assert.Equal(t, a.Root(), b.Root())
	assert.Len(t, a.Entries(), 4)
}

func TestError_Messages(t *testing.T) {
	err := &Error{Code: CodeCounterOverflow, Identity: "X", Counter: 7}
	assert.Contains(t, err.Error(), "CounterOverflow")
	assert.Contains(t, err.Error(), "identity=X")

	err = &Error{Code: CodeInconsistentState, Identity: "Z", Counter: 5}
	assert.Contains(t, err.Error(), "slot=5")
	assert.ErrorIs(t, err, ErrInconsistentState)
	assert.NotErrorIs(t, err, ErrCounterOverflow)
}
