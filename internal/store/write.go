package store

import (
	"context"
	"fmt"

	"github.com/roach88/accumulog/internal/ir"
)

// WriteCall appends an included call and its receipt to the call log.
// Seq and ID are unique; writing the same call twice is an error, because a
// second inclusion would replay differently.
func (t *Tx) WriteCall(ctx context.Context, call ir.Call, r ir.Receipt) error {
	var idx []byte
	if r.OK() {
		idx = marshalU64(r.Index)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO calls
		(id, seq, token, signer, payload, outcome, idx, error_code, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		call.ID,
		call.Seq,
		call.Token,
		string(call.Origin.Signer),
		marshalPayload(call.Payload),
		r.Outcome,
		idx,
		r.ErrorCode,
		ir.EngineVersion,
		ir.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}
	return nil
}

// WriteEvent appends the n-th event emitted by call to the output log and
// returns the stored record.
//
// Note: The call referenced by callID must already be written (foreign key constraint).
func (t *Tx) WriteEvent(ctx context.Context, callID string, seq int64, n int, ev ir.Event) (ir.StoredEvent, error) {
	id, err := ir.EventID(callID, n, ev)
	if err != nil {
		return ir.StoredEvent{}, fmt.Errorf("write event: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO events
		(id, call_id, n, seq, kind, identity, count, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		callID,
		n,
		seq,
		ev.Kind,
		string(ev.Identity),
		marshalU64(ev.Count),
		marshalPayload(ev.Payload),
	)
	if err != nil {
		return ir.StoredEvent{}, fmt.Errorf("write event: %w", err)
	}

	return ir.StoredEvent{ID: id, CallID: callID, Seq: seq, Event: ev}, nil
}
