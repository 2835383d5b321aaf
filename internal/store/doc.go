// Package store provides SQLite-backed durable ledger storage for accumulog.
//
// The store holds two kinds of data:
//   - Ledger state: the accumulator_list and accumulator_count tables, the two
//     maps the accumulator store reads and writes
//   - Logs: the ordered call log (with receipts) and the event output log
//
// # Critical Patterns
//
// Transactional state: every call is applied inside one SQLite transaction
// (Store.Update). A *Tx implements accumulator.State; if the append fails the
// transaction is rolled back and no partial write survives.
//
// Logical time: all ordering uses seq INTEGER, never timestamps. Log queries
// use ORDER BY seq ASC, id ASC COLLATE BINARY so results are identical across
// replays.
//
// Canonical values: indices and counts are stored as 8-byte big-endian BLOBs.
// SQLite integers are signed, and the driver refuses uint64 values with the
// high bit set; big-endian blobs keep the full range and sort numerically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
