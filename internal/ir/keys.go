package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"slices"
)

// State key prefixes.
//
//	0x01/ (accumulator list)
//	  -> [identity][index] => accumulator bytes
//	0x02/ (accumulator count)
//	  -> [identity] => uint64 count
const (
	PrefixAccumulatorList  byte = 0x01
	PrefixAccumulatorCount byte = 0x02
)

// ErrMalformedKey is returned when a state key cannot be decoded.
var ErrMalformedKey = errors.New("malformed state key")

// StateEntry is one canonically encoded key/value pair of ledger state.
type StateEntry struct {
	Key   []byte
	Value []byte
}

func appendIdentity(b []byte, id Identity) []byte {
	b = binary.AppendUvarint(b, uint64(len(id)))
	return append(b, id...)
}

// ListKey encodes the AccumulatorList key for (id, index).
// The index is big-endian so one identity's slots sort in append order.
func ListKey(id Identity, index uint64) []byte {
	b := make([]byte, 0, 1+binary.MaxVarintLen64+len(id)+8)
	b = append(b, PrefixAccumulatorList)
	b = appendIdentity(b, id)
	return binary.BigEndian.AppendUint64(b, index)
}

// CountKey encodes the AccumulatorCount key for id.
func CountKey(id Identity) []byte {
	b := make([]byte, 0, 1+binary.MaxVarintLen64+len(id))
	b = append(b, PrefixAccumulatorCount)
	return appendIdentity(b, id)
}

// EncodeCount encodes a counter value.
func EncodeCount(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

// DecodeCount decodes a counter value written by EncodeCount.
func DecodeCount(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errors.New("counter value must be 8 bytes")
	}
	return binary.BigEndian.Uint64(b), nil
}

// ParseKey decodes a state key into its prefix, identity and (for list keys) index.
func ParseKey(key []byte) (prefix byte, id Identity, index uint64, err error) {
	if len(key) < 2 {
		return 0, "", 0, ErrMalformedKey
	}
	prefix = key[0]
	n, w := binary.Uvarint(key[1:])
	if w <= 0 || uint64(len(key)-1-w) < n {
		return 0, "", 0, ErrMalformedKey
	}
	rest := key[1+w:]
	id = Identity(rest[:n])
	rest = rest[n:]

	switch prefix {
	case PrefixAccumulatorList:
		if len(rest) != 8 {
			return 0, "", 0, ErrMalformedKey
		}
		index = binary.BigEndian.Uint64(rest)
	case PrefixAccumulatorCount:
		if len(rest) != 0 {
			return 0, "", 0, ErrMalformedKey
		}
	default:
		return 0, "", 0, ErrMalformedKey
	}
	return prefix, id, index, nil
}

// StateRoot hashes a full ledger state. Entries may be given in any order;
// they are hashed in ascending key order so equal states give equal roots.
func StateRoot(entries []StateEntry) string {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b StateEntry) int {
		return bytes.Compare(a.Key, b.Key)
	})

	h := sha256.New()
	h.Write([]byte(DomainState))
	h.Write([]byte{0x00})
	var lenBuf []byte
	for _, e := range sorted {
		lenBuf = binary.AppendUvarint(lenBuf[:0], uint64(len(e.Key)))
		h.Write(lenBuf)
		h.Write(e.Key)
		lenBuf = binary.AppendUvarint(lenBuf[:0], uint64(len(e.Value)))
		h.Write(lenBuf)
		h.Write(e.Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}
