package ir

import "encoding/hex"

// Identity is an authenticated principal on whose behalf accumulators are
// stored. It is opaque beyond being a valid state key.
type Identity string

// Origin describes who submitted a call. An empty Signer is an unsigned
// origin and is rejected by the dispatcher before inclusion.
type Origin struct {
	Signer Identity `json:"signer"`
}

// Signed reports whether the origin carries a signer.
func (o Origin) Signed() bool {
	return o.Signer != ""
}

// SignedBy returns a signed origin for id.
func SignedBy(id Identity) Origin {
	return Origin{Signer: id}
}

// EventKindUpdated is the only event kind emitted by the accumulator store.
const EventKindUpdated = "Updated"

// Call is an included update_accumulator call.
type Call struct {
	ID      string `json:"id"`    // Content-addressed hash
	Token   string `json:"token"` // Correlation token, not part of state
	Seq     int64  `json:"seq"`   // Logical clock
	Origin  Origin `json:"origin"`
	Payload []byte `json:"payload"`
}

// Event is a notification pushed to the runtime's output log after a
// successful append. Count is the identity's new accumulator count.
type Event struct {
	Kind     string   `json:"kind"`
	Identity Identity `json:"identity"`
	Count    uint64   `json:"count"`
	Payload  []byte   `json:"payload"`
}

// Updated builds an Updated event.
func Updated(id Identity, count uint64, payload []byte) Event {
	return Event{
		Kind:     EventKindUpdated,
		Identity: id,
		Count:    count,
		Payload:  payload,
	}
}

// Index returns the slot the event's payload was stored at.
func (e Event) Index() uint64 {
	return e.Count - 1
}

// Outcome values recorded on receipts.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Receipt is the recorded result of an included call.
// Index is meaningful only when Outcome is OutcomeOK; ErrorCode only when
// Outcome is OutcomeError.
type Receipt struct {
	CallID    string   `json:"call_id"`
	Seq       int64    `json:"seq"`
	Identity  Identity `json:"identity"`
	Outcome   string   `json:"outcome"`
	Index     uint64   `json:"index"`
	ErrorCode string   `json:"error_code,omitempty"`
}

// OK reports whether the call succeeded.
func (r Receipt) OK() bool {
	return r.Outcome == OutcomeOK
}

// StoredEvent is an event as persisted in the output log.
type StoredEvent struct {
	ID     string `json:"id"`
	CallID string `json:"call_id"`
	Seq    int64  `json:"seq"`
	Event
}

// HexPayload returns the lowercase hex form used in text output.
func HexPayload(p []byte) string {
	return hex.EncodeToString(p)
}

// ParseHexPayload parses a hex payload; an empty string is an empty payload.
func ParseHexPayload(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	return hex.DecodeString(s)
}

// CallRecord is a row of the call log: the included call and its receipt.
type CallRecord struct {
	Call    Call    `json:"call"`
	Receipt Receipt `json:"receipt"`
}
