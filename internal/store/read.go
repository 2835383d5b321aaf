package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/accumulog/internal/ir"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const callColumns = `id, seq, token, signer, payload, outcome, idx, error_code`

// ReadCalls returns the full call log in execution order.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no calls were included.
func (s *Store) ReadCalls(ctx context.Context) ([]ir.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+callColumns+`
		FROM calls
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	return collectCalls(rows)
}

// ReadCall retrieves a single call record by call ID.
// Returns ErrNotFound if the call was never included.
func (s *Store) ReadCall(ctx context.Context, id string) (ir.CallRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE id = ?
	`, id)

	rec, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.CallRecord{}, fmt.Errorf("call %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// EventFilter narrows ReadEvents. Zero values match everything.
type EventFilter struct {
	Identity ir.Identity
	CallID   string
	AfterSeq int64
}

// ReadEvents returns the event output log in emission order.
func (s *Store) ReadEvents(ctx context.Context, f EventFilter) ([]ir.StoredEvent, error) {
	query := `
		SELECT id, call_id, seq, kind, identity, count, payload
		FROM events
		WHERE seq > ?`
	args := []any{f.AfterSeq}
	if f.Identity != "" {
		query += ` AND identity = ?`
		args = append(args, string(f.Identity))
	}
	if f.CallID != "" {
		query += ` AND call_id = ?`
		args = append(args, f.CallID)
	}
	query += ` ORDER BY seq ASC, n ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.StoredEvent{}
	for rows.Next() {
		var (
			ev       ir.StoredEvent
			identity string
			count    []byte
		)
		if err := rows.Scan(&ev.ID, &ev.CallID, &ev.Seq, &ev.Kind, &identity, &count, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Identity = ir.Identity(identity)
		if ev.Count, err = unmarshalU64("count", count); err != nil {
			return nil, err
		}
		if ev.Payload == nil {
			ev.Payload = []byte{}
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// StateEntries returns all ledger state in canonical encoding.
// Order is unspecified; ir.StateRoot sorts.
func (s *Store) StateEntries(ctx context.Context) ([]ir.StateEntry, error) {
	entries := []ir.StateEntry{}

	rows, err := s.db.QueryContext(ctx, `SELECT identity, idx, payload FROM accumulator_list`)
	if err != nil {
		return nil, fmt.Errorf("query accumulator_list: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			identity     string
			idx, payload []byte
		)
		if err := rows.Scan(&identity, &idx, &payload); err != nil {
			return nil, fmt.Errorf("scan accumulator_list: %w", err)
		}
		index, err := unmarshalU64("idx", idx)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ir.StateEntry{Key: ir.ListKey(ir.Identity(identity), index), Value: marshalPayload(payload)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accumulator_list: %w", err)
	}

	countRows, err := s.db.QueryContext(ctx, `SELECT identity, count FROM accumulator_count`)
	if err != nil {
		return nil, fmt.Errorf("query accumulator_count: %w", err)
	}
	defer countRows.Close()
	for countRows.Next() {
		var (
			identity string
			count    []byte
		)
		if err := countRows.Scan(&identity, &count); err != nil {
			return nil, fmt.Errorf("scan accumulator_count: %w", err)
		}
		entries = append(entries, ir.StateEntry{Key: ir.CountKey(ir.Identity(identity)), Value: count})
	}
	if err := countRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accumulator_count: %w", err)
	}

	return entries, nil
}

// StateRoot returns the root hash of committed ledger state.
func (s *Store) StateRoot(ctx context.Context) (string, error) {
	entries, err := s.StateEntries(ctx)
	if err != nil {
		return "", err
	}
	return ir.StateRoot(entries), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCall scans a row selected with callColumns.
func scanCall(row rowScanner) (ir.CallRecord, error) {
	var (
		rec    ir.CallRecord
		signer string
		idx    []byte
	)
	if err := row.Scan(
		&rec.Call.ID, &rec.Call.Seq, &rec.Call.Token, &signer, &rec.Call.Payload,
		&rec.Receipt.Outcome, &idx, &rec.Receipt.ErrorCode,
	); err != nil {
		return ir.CallRecord{}, err
	}

	rec.Call.Origin = ir.SignedBy(ir.Identity(signer))
	if rec.Call.Payload == nil {
		rec.Call.Payload = []byte{}
	}
	rec.Receipt.CallID = rec.Call.ID
	rec.Receipt.Seq = rec.Call.Seq
	rec.Receipt.Identity = rec.Call.Origin.Signer
	if idx != nil {
		index, err := unmarshalU64("idx", idx)
		if err != nil {
			return ir.CallRecord{}, err
		}
		rec.Receipt.Index = index
	}
	return rec, nil
}

// collectCalls drains rows into call records and closes rows.
func collectCalls(rows *sql.Rows) ([]ir.CallRecord, error) {
	defer rows.Close()

	calls := []ir.CallRecord{}
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}
