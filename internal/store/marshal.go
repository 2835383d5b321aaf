package store

import (
	"fmt"

	"github.com/roach88/accumulog/internal/ir"
)

// marshalU64 encodes an index or count as an 8-byte big-endian BLOB.
func marshalU64(n uint64) []byte {
	return ir.EncodeCount(n)
}

// unmarshalU64 decodes a BLOB written by marshalU64.
func unmarshalU64(column string, b []byte) (uint64, error) {
	n, err := ir.DecodeCount(b)
	if err != nil {
		return 0, fmt.Errorf("unmarshal %s: %w", column, err)
	}
	return n, nil
}

// marshalPayload never returns nil: the driver binds a nil slice as NULL.
func marshalPayload(p []byte) []byte {
	if p == nil {
		return []byte{}
	}
	return p
}
