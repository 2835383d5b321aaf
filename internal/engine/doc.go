// Package engine implements the accumulog dispatcher: the host-runtime side
// of the accumulator store.
//
// ARCHITECTURE:
//
// Single-Writer Dispatch:
// Calls are applied one at a time in a deterministic total order. Dispatch
// holds the engine's write lock for the whole call, and the Run loop feeds
// queued submissions through the same path. This ensures:
// - Every call sees the committed result of the previous one
// - The call log order is the execution order
// - Replay of the call log reproduces identical state
//
// Call Processing Flow:
// 1. Origin check: unsigned origins are rejected (never included)
// 2. Size policy: payloads over MaxPayloadBytes are rejected (never included)
// 3. The call is stamped with the next seq and a content-addressed ID
// 4. accumulator.Append runs inside one store transaction; on success the
//    call, its receipt and its events commit together
// 5. On an append failure the transaction rolls back and only the call with
//    an error receipt is recorded
// 6. Subscribers receive committed events in order
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// All calls are stamped with a monotonic seq from Clock. Seq is consumed only
// when a call is included, so the call log is dense.
//
// Deterministic Replay:
// Replay re-executes the call log from empty state and compares every
// receipt, every event and the final state root with what was persisted.
package engine
