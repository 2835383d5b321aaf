package accumulator

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/accumulog/internal/ir"
)

type slotKey struct {
	id    ir.Identity
	index uint64
}

// MemState is an in-memory State. It backs replay verification and tests.
//
// MemState is not safe for concurrent use; like every State it is driven by a
// single writer.
type MemState struct {
	list  map[slotKey][]byte
	count map[ir.Identity]uint64
}

// NewMemState creates an empty in-memory state.
func NewMemState() *MemState {
	return &MemState{
		list:  make(map[slotKey][]byte),
		count: make(map[ir.Identity]uint64),
	}
}

// AccumulatorCount implements Reader.
func (m *MemState) AccumulatorCount(_ context.Context, id ir.Identity) (uint64, bool, error) {
	n, ok := m.count[id]
	return n, ok, nil
}

// AccumulatorList implements Reader.
func (m *MemState) AccumulatorList(_ context.Context, id ir.Identity, index uint64) ([]byte, bool, error) {
	p, ok := m.list[slotKey{id, index}]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(p), true, nil
}

// PutAccumulator implements State.
func (m *MemState) PutAccumulator(_ context.Context, id ir.Identity, index uint64, payload []byte) error {
	m.list[slotKey{id, index}] = slices.Clone(payload)
	return nil
}

// PutCount implements State.
func (m *MemState) PutCount(_ context.Context, id ir.Identity, count uint64) error {
	m.count[id] = count
	return nil
}

// Clone returns a deep copy of the state.
func (m *MemState) Clone() *MemState {
	c := NewMemState()
	for k, v := range m.list {
		c.list[k] = slices.Clone(v)
	}
	maps.Copy(c.count, m.count)
	return c
}

// Entries returns the state in canonical encoding, for ir.StateRoot.
func (m *MemState) Entries() []ir.StateEntry {
	entries := make([]ir.StateEntry, 0, len(m.list)+len(m.count))
	for k, v := range m.list {
		entries = append(entries, ir.StateEntry{Key: ir.ListKey(k.id, k.index), Value: slices.Clone(v)})
	}
	for id, n := range m.count {
		entries = append(entries, ir.StateEntry{Key: ir.CountKey(id), Value: ir.EncodeCount(n)})
	}
	return entries
}

// Root returns the state root of m.
func (m *MemState) Root() string {
	return ir.StateRoot(m.Entries())
}
