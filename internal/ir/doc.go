// Package ir provides the canonical record types shared by every accumulog
// package: identities, calls, receipts, events and the canonical state
// encoding.
//
// This package contains type definitions and pure encoding functions only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - counters and indices are uint64, seq is int64
//   - Logical clocks (seq) only, never wall-clock timestamps
//   - All JSON tags use snake_case
//   - Byte payloads are hex-encoded whenever they cross a text boundary
package ir
