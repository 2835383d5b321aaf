package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/accumulog/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCall creates an included call with a content-addressed ID.
func createTestCall(signer ir.Identity, payload []byte, seq int64) ir.Call {
	return ir.Call{
		ID:      ir.MustCallID(signer, payload, seq),
		Token:   "test-token",
		Seq:     seq,
		Origin:  ir.SignedBy(signer),
		Payload: payload,
	}
}

// okReceipt builds a successful receipt for call.
func okReceipt(call ir.Call, index uint64) ir.Receipt {
	return ir.Receipt{
		CallID:   call.ID,
		Seq:      call.Seq,
		Identity: call.Origin.Signer,
		Outcome:  ir.OutcomeOK,
		Index:    index,
	}
}

// mustUpdate runs fn in a transaction and fails the test on error.
func mustUpdate(t *testing.T, s *Store, fn func(tx *Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
}
