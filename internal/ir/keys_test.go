package ir

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListKey_RoundTrip(t *testing.T) {
	key := ListKey("alice", 42)

	prefix, id, index, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, PrefixAccumulatorList, prefix)
	assert.Equal(t, Identity("alice"), id)
	assert.Equal(t, uint64(42), index)
}

func TestCountKey_RoundTrip(t *testing.T) {
	prefix, id, _, err := ParseKey(CountKey("bob"))
	require.NoError(t, err)
	assert.Equal(t, PrefixAccumulatorCount, prefix)
	assert.Equal(t, Identity("bob"), id)
}

func TestListKey_SortsInAppendOrder(t *testing.T) {
	k0 := ListKey("alice", 0)
	k1 := ListKey("alice", 1)
	k256 := ListKey("alice", 256)
	kMax := ListKey("alice", math.MaxUint64)

	assert.Negative(t, bytes.Compare(k0, k1))
	assert.Negative(t, bytes.Compare(k1, k256))
	assert.Negative(t, bytes.Compare(k256, kMax))
}

func TestKeys_IdentityPrefixesDoNotCollide(t *testing.T) {
	// Length-prefixing keeps "ab"+index distinct from "a"+"b..." shapes.
	assert.NotEqual(t, CountKey("ab"), CountKey("a"))
	assert.False(t, bytes.HasPrefix(ListKey("ab", 0), CountKey("a")))
}

func TestParseKey_Malformed(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
	}{
		{"empty", nil},
		{"unknown prefix", []byte{0x09, 0x00}},
		{"short identity", []byte{PrefixAccumulatorCount, 0x05, 'a'}},
		{"list without index", append([]byte{PrefixAccumulatorList, 0x01}, 'a')},
		{"count with trailing bytes", append(CountKey("a"), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParseKey(tt.key)
			assert.ErrorIs(t, err, ErrMalformedKey)
		})
	}
}

func TestCount_Encoding(t *testing.T) {
	n, err := DecodeCount(EncodeCount(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), n)

	_, err = DecodeCount([]byte{1, 2})
	assert.Error(t, err)
}

func TestStateRoot_OrderIndependent(t *testing.T) {
	a := []StateEntry{
		{Key: ListKey("alice", 0), Value: []byte{1}},
		{Key: CountKey("alice"), Value: EncodeCount(1)},
	}
	b := []StateEntry{a[1], a[0]}

	assert.Equal(t, StateRoot(a), StateRoot(b))
}

func TestStateRoot_DetectsDifference(t *testing.T) {
	a := []StateEntry{{Key: ListKey("alice", 0), Value: []byte{1}}}
	b := []StateEntry{{Key: ListKey("alice", 0), Value: []byte{2}}}

	assert.NotEqual(t, StateRoot(a), StateRoot(b))
	assert.NotEqual(t, StateRoot(nil), StateRoot(a))
}

func TestStateRoot_DoesNotMutateInput(t *testing.T) {
	entries := []StateEntry{
		{Key: CountKey("alice"), Value: EncodeCount(1)},
		{Key: ListKey("alice", 0), Value: []byte{1}},
	}
	first := entries[0].Key

	StateRoot(entries)
	assert.Equal(t, first, entries[0].Key)
}
