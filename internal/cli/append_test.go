package cli

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/accumulog/internal/ir"
	"github.com/roach88/accumulog/internal/store"
)

// forge writes ledger state directly, bypassing append.
func forge(t *testing.T, db string, fn func(ctx context.Context, tx *store.Tx) error) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Update(ctx, func(tx *store.Tx) error { return fn(ctx, tx) }))
}

func TestAppendText(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, NewAppendCommand(&RootOptions{Format: "text"}), "--db", db, "--as", "alice", "0a0b")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ alice appended at index 0 (seq 1)")
	assert.Contains(t, out, "call ")

	out, err = execute(t, NewAppendCommand(&RootOptions{Format: "text"}), "--db", db, "--as", "alice", "0c")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ alice appended at index 1 (seq 2)")
}

func TestAppendJSON(t *testing.T) {
	db := tempDB(t)
	appendAs(t, db, "bob", "ff")

	out, err := execute(t, NewAppendCommand(&RootOptions{Format: "json"}), "--db", db, "--as", "alice", "010203")
	require.NoError(t, err)

	var view ReceiptView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "alice", view.Identity)
	assert.Equal(t, "ok", view.Outcome)
	assert.Equal(t, uint64(0), view.Index)
	assert.Equal(t, int64(2), view.Seq, "seq is global across identities")
	assert.Equal(t, ir.MustCallID("alice", []byte{1, 2, 3}, 2), view.CallID)
	assert.NotEmpty(t, view.Token)
	assert.Empty(t, view.ErrorCode)
}

func TestAppendUTF8(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, NewAppendCommand(&RootOptions{Format: "text"}), "--db", db, "--as", "alice", "--utf8", "hi")
	require.NoError(t, err)

	out, err := execute(t, NewGetCommand(&RootOptions{Format: "text"}), "--db", db, "alice", "0")
	require.NoError(t, err)
	assert.Equal(t, "6869\n", out)
}

func TestAppendEmptyPayload(t *testing.T) {
	db := tempDB(t)
	appendAs(t, db, "alice", "")

	out, err := execute(t, NewCountCommand(&RootOptions{Format: "text"}), "--db", db, "alice")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestAppendInvalidHex(t *testing.T) {
	_, err := execute(t, NewAppendCommand(&RootOptions{Format: "text"}), "--db", tempDB(t), "--as", "alice", "zz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid hex payload")
}

func TestAppendUnsignedOrigin(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, NewAppendCommand(&RootOptions{Format: "json"}), "--db", db, "0a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_ORIGIN", resp.Error.Code)

	// Rejected calls are never included.
	out, err = execute(t, NewStateRootCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)
	var root StateRootResult
	decodeResponse(t, out, &root)
	assert.Equal(t, int64(0), root.LastSeq)
}

func TestAppendInconsistentState(t *testing.T) {
	db := tempDB(t)
	forge(t, db, func(ctx context.Context, tx *store.Tx) error {
		return tx.PutAccumulator(ctx, "alice", 0, []byte{0xee})
	})

	out, err := execute(t, NewAppendCommand(&RootOptions{Format: "json"}), "--db", db, "--as", "alice", "0a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var view ReceiptView
	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "InconsistentState", resp.Error.Code)
	decodeDetails(t, resp, &view)
	assert.Equal(t, "error", view.Outcome)
	assert.Equal(t, "InconsistentState", view.ErrorCode)
	assert.Equal(t, int64(1), view.Seq, "failed calls are still included")

	out, err = execute(t, NewGetCommand(&RootOptions{Format: "text"}), "--db", db, "alice", "0")
	require.NoError(t, err)
	assert.Equal(t, "ee\n", out, "forged slot is untouched")
}

func TestAppendCounterOverflow(t *testing.T) {
	db := tempDB(t)
	forge(t, db, func(ctx context.Context, tx *store.Tx) error {
		return tx.PutCount(ctx, "alice", math.MaxUint64)
	})

	out, err := execute(t, NewAppendCommand(&RootOptions{Format: "text"}), "--db", db, "--as", "alice", "0a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [CounterOverflow]")

	out, err = execute(t, NewEventsCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No events found.")
}

func decodeDetails(t *testing.T, resp CLIResponse, v any) {
	t.Helper()
	require.NotNil(t, resp.Error)
	require.NotNil(t, resp.Error.Details)
	decodeResponse(t, mustJSON(t, CLIResponse{Status: "ok", Data: resp.Error.Details}), v)
}
