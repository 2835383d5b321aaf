package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/ir"
)

// querier is the subset of *sql.DB and *sql.Tx used for state access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// stateReader implements accumulator.Reader over either the database or an
// open transaction.
type stateReader struct {
	q querier
}

var _ accumulator.Reader = stateReader{}

// AccumulatorCount implements accumulator.Reader.
func (r stateReader) AccumulatorCount(ctx context.Context, id ir.Identity) (uint64, bool, error) {
	var blob []byte
	err := r.q.QueryRowContext(ctx, `
		SELECT count FROM accumulator_count WHERE identity = ?
	`, string(id)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query accumulator_count: %w", err)
	}

	n, err := unmarshalU64("count", blob)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// AccumulatorList implements accumulator.Reader.
func (r stateReader) AccumulatorList(ctx context.Context, id ir.Identity, index uint64) ([]byte, bool, error) {
	var payload []byte
	err := r.q.QueryRowContext(ctx, `
		SELECT payload FROM accumulator_list WHERE identity = ? AND idx = ?
	`, string(id), marshalU64(index)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query accumulator_list: %w", err)
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, true, nil
}

// Tx is an open ledger transaction. It implements accumulator.State; writes
// become visible to other readers only when Store.Update commits.
type Tx struct {
	stateReader
	tx *sql.Tx
}

var _ accumulator.State = (*Tx)(nil)

// PutAccumulator implements accumulator.State.
func (t *Tx) PutAccumulator(ctx context.Context, id ir.Identity, index uint64, payload []byte) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accumulator_list (identity, idx, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(identity, idx) DO UPDATE SET payload = excluded.payload
	`, string(id), marshalU64(index), marshalPayload(payload))
	if err != nil {
		return fmt.Errorf("write accumulator_list: %w", err)
	}
	return nil
}

// PutCount implements accumulator.State.
func (t *Tx) PutCount(ctx context.Context, id ir.Identity, count uint64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accumulator_count (identity, count)
		VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET count = excluded.count
	`, string(id), marshalU64(count))
	if err != nil {
		return fmt.Errorf("write accumulator_count: %w", err)
	}
	return nil
}
