// Package harness provides conformance testing for the accumulator ledger.
//
// The harness runs YAML scenarios through a real engine over a private
// in-memory SQLite ledger and validates receipts, events and final state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	token: "fixed-correlation-token"   # optional
//	max_payload_bytes: 64               # optional, 0 = unlimited
//	setup:                              # optional fault injection
//	  - force_count: { as: Z, count: 5 }
//	  - force_accumulator: { as: Z, index: 5, payload: "ee" }
//	steps:
//	  - append: { as: X, payload: "010203" }
//	    expect: { index: 0 }
//	  - append: { as: Z, payload: "ff" }
//	    expect: { error: InconsistentState }
//	assertions:
//	  - type: count
//	    as: X
//	    count: 1
//
// Payloads are lowercase hex; "" is the empty payload. An append with an
// empty "as" is an unsigned origin and is rejected with BAD_ORIGIN.
//
// # Assertion Types
//
//   - count: AccumulatorCount for an identity
//   - slot: one AccumulatorList slot holds a payload
//   - absent: one AccumulatorList slot is empty
//   - event_count: number of Updated events, optionally per identity
//   - unchanged: the steps left state exactly as setup wrote it
//   - replays: replaying the call log reproduces the ledger
//
// # Golden Traces
//
// RunWithGolden serializes the trace and final state root as canonical JSON
// and compares it with testdata/golden/<name>.golden.
package harness
