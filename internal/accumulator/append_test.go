package accumulator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/accumulog/internal/ir"
)

func TestAppend_SequentialAppends(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	var events EventSlice

	payloads := [][]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	for i, p := range payloads {
		idx, err := Append(ctx, st, &events, "X", p)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), idx)
	}

	n, err := Count(ctx, st, "X")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	for i, want := range payloads {
		got, ok, err := Get(ctx, st, "X", uint64(i))
		require.NoError(t, err)
		require.True(t, ok, "slot %d", i)
		assert.Equal(t, want, got)
	}

	_, ok, err := Get(ctx, st, "X", 3)
	require.NoError(t, err)
	assert.False(t, ok, "slot 3 must be absent")

	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, ir.Updated("X", uint64(i+1), payloads[i]), ev)
	}
}

func TestAppend_EmptyPayloadDistinctIdentity(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()

	for _, p := range [][]byte{{1}, {2}} {
		_, err := Append(ctx, st, nil, "X", p)
		require.NoError(t, err)
	}

	idx, err := Append(ctx, st, nil, "Y", []byte{})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx)

	got, ok, err := Get(ctx, st, "Y", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	nY, _ := Count(ctx, st, "Y")
	nX, _ := Count(ctx, st, "X")
	assert.Equal(t, uint64(1), nY)
	assert.Equal(t, uint64(2), nX)
}

func TestAppend_NilPayloadStoredAsEmpty(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	var events EventSlice

	_, err := Append(ctx, st, &events, "X", nil)
	require.NoError(t, err)

	got, ok, err := Get(ctx, st, "X", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
	require.Len(t, events, 1)
	assert.NotNil(t, events[0].Payload)
}

func TestAppend_InconsistentState(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	require.NoError(t, st.PutCount(ctx, "Z", 5))
	require.NoError(t, st.PutAccumulator(ctx, "Z", 5, []byte{0xaa}))
	before := st.Root()

	var events EventSlice
	_, err := Append(ctx, st, &events, "Z", []byte{1})

	require.Error(t, err)
	assert.True(t, IsInconsistentState(err))
	assert.Equal(t, CodeInconsistentState, CodeOf(err))
	assert.Equal(t, before, st.Root(), "state must be unchanged")
	assert.Empty(t, events, "no event on failure")

	n, _ := Count(ctx, st, "Z")
	assert.Equal(t, uint64(5), n)
	got, _, _ := Get(ctx, st, "Z", 5)
	assert.Equal(t, []byte{0xaa}, got)
}

func TestAppend_GuardChecksCurrentSlotNotNext(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	require.NoError(t, st.PutCount(ctx, "Z", 2))
	require.NoError(t, st.PutAccumulator(ctx, "Z", 3, []byte{0xbb}))

	idx, err := Append(ctx, st, nil, "Z", []byte{1})
	require.NoError(t, err, "an occupied slot after the next one is not checked")
	assert.Equal(t, uint64(2), idx)
}

func TestAppend_CounterOverflow(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	require.NoError(t, st.PutCount(ctx, "O", math.MaxUint64))
	before := st.Root()

	var events EventSlice
	_, err := Append(ctx, st, &events, "O", []byte{1})

	require.Error(t, err)
	assert.True(t, IsCounterOverflow(err))
	assert.False(t, IsInconsistentState(err))
	assert.Equal(t, before, st.Root())
	assert.Empty(t, events)
}

func TestAppend_LastRepresentableSlot(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	require.NoError(t, st.PutCount(ctx, "O", math.MaxUint64-1))

	idx, err := Append(ctx, st, nil, "O", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-1), idx)

	n, _ := Count(ctx, st, "O")
	assert.Equal(t, uint64(math.MaxUint64), n)
}

func TestAppend_IsolationAcrossIdentities(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	_, err := Append(ctx, st, nil, "B", []byte{0xb0})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := Append(ctx, st, nil, "A", []byte{byte(i)})
		require.NoError(t, err)
	}

	nB, _ := Count(ctx, st, "B")
	assert.Equal(t, uint64(1), nB)
	hB, err := History(ctx, st, "B")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xb0}}, hB)
}

func TestAppend_DoesNotAliasCallerBuffer(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	var events EventSlice
	buf := []byte{1, 2, 3}

	_, err := Append(ctx, st, &events, "X", buf)
	require.NoError(t, err)
	buf[0] = 99

	got, _, _ := Get(ctx, st, "X", 0)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, []byte{1, 2, 3}, events[0].Payload)
}

func TestAppend_ReturnIndexIsNextMinusOne(t *testing.T) {
	ctx := context.Background()
	st := NewMemState()
	var events EventSlice

	for i := 0; i < 10; i++ {
		idx, err := Append(ctx, st, &events, "X", []byte{byte(i)})
		require.NoError(t, err)
		assert.Equal(t, events[i].Count-1, idx)
		assert.Equal(t, idx, events[i].Index())
	}
}

// failingState fails the configured write after delegating reads.
type failingState struct {
	*MemState
	failAccumulator bool
	failCount       bool
	failRead        bool
}

var errDisk = errors.New("disk unavailable")

func (f *failingState) AccumulatorCount(ctx context.Context, id ir.Identity) (uint64, bool, error) {
	if f.failRead {
		return 0, false, errDisk
	}
	return f.MemState.AccumulatorCount(ctx, id)
}

func (f *failingState) PutAccumulator(ctx context.Context, id ir.Identity, index uint64, payload []byte) error {
	if f.failAccumulator {
		return errDisk
	}
	return f.MemState.PutAccumulator(ctx, id, index, payload)
}

func (f *failingState) PutCount(ctx context.Context, id ir.Identity, count uint64) error {
	if f.failCount {
		return errDisk
	}
	return f.MemState.PutCount(ctx, id, count)
}

func TestAppend_StorageErrorsPropagate(t *testing.T) {
	tests := []struct {
		name  string
		state *failingState
	}{
		{"read", &failingState{MemState: NewMemState(), failRead: true}},
		{"write accumulator", &failingState{MemState: NewMemState(), failAccumulator: true}},
		{"write count", &failingState{MemState: NewMemState(), failCount: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events EventSlice
			_, err := Append(context.Background(), tt.state, &events, "X", []byte{1})

			require.Error(t, err)
			assert.ErrorIs(t, err, errDisk)
			assert.Equal(t, ErrorCode(""), CodeOf(err))
			assert.Empty(t, events, "no event when storage fails")
		})
	}
}

func TestAppend_SinkFunc(t *testing.T) {
	var got []ir.Event
	sink := SinkFunc(func(ev ir.Event) { got = append(got, ev) })

	_, err := Append(context.Background(), NewMemState(), sink, "X", []byte{7})
	require.NoError(t, err)
	assert.Equal(t, []ir.Event{ir.Updated("X", 1, []byte{7})}, got)
}
