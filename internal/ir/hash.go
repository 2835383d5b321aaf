package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainCall  = "accumulog/call/v1"
	DomainEvent = "accumulog/event/v1"
	DomainState = "accumulog/state/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CallID computes the content-addressed ID of an included call.
// The correlation token is excluded: it is tracing metadata, not ledger input,
// so replaying the same call log under new tokens yields identical IDs.
func CallID(signer Identity, payload []byte, seq int64) (string, error) {
	obj := map[string]any{
		"signer":  signer,
		"payload": HexPayload(payload),
		"seq":     seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CallID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainCall, canonical), nil
}

// EventID computes the content-addressed ID of the n-th event emitted by a call.
func EventID(callID string, n int, ev Event) (string, error) {
	obj := map[string]any{
		"call_id":  callID,
		"n":        n,
		"kind":     ev.Kind,
		"identity": ev.Identity,
		"count":    ev.Count,
		"payload":  HexPayload(ev.Payload),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEvent, canonical), nil
}

// MustCallID is like CallID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCallID(signer Identity, payload []byte, seq int64) string {
	id, err := CallID(signer, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}
