package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/ir"
	"github.com/roach88/accumulog/internal/store"
)

// Engine is the single-writer dispatcher for update_accumulator calls.
//
// Every call passes through Dispatch, either directly or via the Enqueue/Run
// loop. Dispatch serializes on the engine's write lock, so calls are included
// in exactly one total order and each observes the committed effects of the
// calls before it.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine (serialized internally)
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Subscribe(): safe from any goroutine
//
// INVARIANTS:
//   - A call consumes a seq only if it is included (ok or error receipt)
//   - State, the call record and its events commit in one transaction
//   - Subscribers see events only after commit, in seq order
type Engine struct {
	store      *store.Store
	clock      *Clock
	tokens     TokenGenerator
	maxPayload int
	queue      *requestQueue

	mu          sync.Mutex // Write lock: held for the whole of each dispatch
	subscribers []func(ir.StoredEvent)
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock replaces the engine's logical clock.
// Used by Resume and by tests that need a specific starting seq.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTokenGenerator sets the correlation token source.
//
// Default: UUIDv7Generator.
// Use NewFixedGenerator in tests for byte-identical traces.
func WithTokenGenerator(g TokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithMaxPayloadBytes sets the runtime's transaction-size policy.
// Payloads longer than n bytes are rejected before inclusion.
//
// Default: 0 (unlimited).
func WithMaxPayloadBytes(n int) EngineOption {
	return func(e *Engine) {
		e.maxPayload = n
	}
}

// New creates an Engine over s with a clock starting at 0.
// Use Resume when s already holds a call log.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		queue:  newRequestQueue(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Resume creates an Engine whose clock continues from the last seq in the
// store's call log. Options are applied after the clock is positioned, so
// WithClock still wins.
func Resume(ctx context.Context, s *store.Store, opts ...EngineOption) (*Engine, error) {
	lastSeq, err := s.GetLastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume engine: %w", err)
	}

	all := append([]EngineOption{WithClock(NewClockAt(lastSeq))}, opts...)
	return New(s, all...), nil
}

// Store returns the engine's backing store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Subscribe registers fn to receive every committed event.
// fn runs on the dispatching goroutine while the write lock is held; it must
// not call back into the engine.
func (e *Engine) Subscribe(fn func(ir.StoredEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// Dispatch executes one update_accumulator call on behalf of origin.
//
// Rejections (unsigned origin, oversized payload) return a *RuntimeError and
// are never included. An included call always returns its receipt: on success
// the error is nil; on an append failure the receipt carries the error code
// and the returned error is the *accumulator.Error. Storage failures return a
// wrapped error and an empty receipt; the call is not included.
func (e *Engine) Dispatch(ctx context.Context, origin ir.Origin, payload []byte) (ir.Receipt, error) {
	if !origin.Signed() {
		slog.Warn("call rejected", "code", ErrCodeBadOrigin)
		return ir.Receipt{}, NewBadOriginError()
	}
	if e.maxPayload > 0 && len(payload) > e.maxPayload {
		slog.Warn("call rejected",
			"code", ErrCodePayloadTooLarge,
			"signer", origin.Signer,
			"size", len(payload),
			"limit", e.maxPayload,
		)
		return ir.Receipt{}, NewPayloadTooLargeError(len(payload), e.maxPayload)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.dispatchLocked(ctx, origin, payload)
}

// dispatchLocked runs an accepted call. Caller must hold e.mu.
func (e *Engine) dispatchLocked(ctx context.Context, origin ir.Origin, payload []byte) (ir.Receipt, error) {
	if payload == nil {
		payload = []byte{}
	}

	seq := e.clock.Peek()
	id, err := ir.CallID(origin.Signer, payload, seq)
	if err != nil {
		return ir.Receipt{}, fmt.Errorf("compute call id: %w", err)
	}

	call := ir.Call{
		ID:      id,
		Token:   e.tokens.Generate(),
		Seq:     seq,
		Origin:  origin,
		Payload: payload,
	}

	slog.Debug("dispatching call",
		"id", call.ID,
		"signer", origin.Signer,
		"token", call.Token,
		"seq", seq,
		"size", len(payload),
	)

	var (
		receipt   ir.Receipt
		stored    []ir.StoredEvent
		appendErr error
	)
	err = e.store.Update(ctx, func(tx *store.Tx) error {
		var events accumulator.EventSlice
		index, err := accumulator.Append(ctx, tx, &events, origin.Signer, payload)
		if err != nil {
			appendErr = err
			return err
		}

		receipt = ir.Receipt{
			CallID:   call.ID,
			Seq:      seq,
			Identity: origin.Signer,
			Outcome:  ir.OutcomeOK,
			Index:    index,
		}
		if err := tx.WriteCall(ctx, call, receipt); err != nil {
			return err
		}

		stored = make([]ir.StoredEvent, 0, len(events))
		for n, ev := range events {
			se, err := tx.WriteEvent(ctx, call.ID, seq, n, ev)
			if err != nil {
				return err
			}
			stored = append(stored, se)
		}
		return nil
	})

	code := accumulator.CodeOf(appendErr)
	switch {
	case err == nil:
		e.clock.Next()
		slog.Info("call included",
			"id", call.ID,
			"signer", origin.Signer,
			"seq", seq,
			"index", receipt.Index,
		)
		e.publish(stored)
		return receipt, nil

	case code != "" && errors.Is(err, appendErr):
		return e.recordFailure(ctx, call, code, appendErr)

	default:
		return ir.Receipt{}, fmt.Errorf("dispatch call %s: %w", call.ID, err)
	}
}

// recordFailure includes a call whose append failed: state was rolled back,
// so only the call and its error receipt are written. Caller must hold e.mu.
func (e *Engine) recordFailure(ctx context.Context, call ir.Call, code accumulator.ErrorCode, cause error) (ir.Receipt, error) {
	receipt := ir.Receipt{
		CallID:    call.ID,
		Seq:       call.Seq,
		Identity:  call.Origin.Signer,
		Outcome:   ir.OutcomeError,
		ErrorCode: string(code),
	}

	err := e.store.Update(ctx, func(tx *store.Tx) error {
		return tx.WriteCall(ctx, call, receipt)
	})
	if err != nil {
		return ir.Receipt{}, fmt.Errorf("record failed call %s: %w", call.ID, err)
	}

	e.clock.Next()
	slog.Warn("call failed",
		"id", call.ID,
		"signer", call.Origin.Signer,
		"seq", call.Seq,
		"code", code,
		"error", cause,
	)
	return receipt, cause
}

// publish delivers committed events to subscribers. Caller must hold e.mu.
func (e *Engine) publish(events []ir.StoredEvent) {
	for _, ev := range events {
		for _, fn := range e.subscribers {
			fn(ev)
		}
	}
}

// Enqueue submits a call for the Run loop and returns the channel its result
// is delivered on. Thread-safe: may be called from any goroutine.
//
// Returns an ENGINE_STOPPED error if the engine has been stopped.
func (e *Engine) Enqueue(origin ir.Origin, payload []byte) (<-chan Result, error) {
	req := request{
		origin:  origin,
		payload: payload,
		result:  make(chan Result, 1),
	}
	if !e.queue.Enqueue(req) {
		return nil, NewStoppedError()
	}
	return req.result, nil
}

// Run starts the submission loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// Each queued request is dispatched in FIFO order and its result delivered on
// the request's channel. A failed call does not stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "seq", e.clock.Current())

	for {
		req, ok := e.queue.TryDequeue()
		if ok {
			receipt, err := e.Dispatch(ctx, req.origin, req.payload)
			req.result <- Result{Receipt: receipt, Err: err}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.queue.Drain(NewStoppedError())
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Requests already queued are still dispatched before Run returns.
func (e *Engine) Stop() {
	e.queue.Close()
}
