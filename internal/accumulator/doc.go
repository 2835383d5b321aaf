// Package accumulator implements the accumulator store: per identity, an
// append-only, gapless log of opaque accumulator blobs plus its length
// counter.
//
// Two storage maps make up the state:
//
//	AccumulatorList:  (identity, index) => accumulator bytes
//	AccumulatorCount: identity => uint64 count (absent reads as 0)
//
// For every identity with count n, slots [0, n) are present and every slot
// >= n is absent. Append is the only write path; it either writes the slot at
// the old count and advances the count by one, or fails without writing.
//
// The package holds no state of its own. Every read and write goes through a
// State supplied by the caller, which must be transactional: the dispatcher
// commits it only when Append returns nil.
package accumulator
