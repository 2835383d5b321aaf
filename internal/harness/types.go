package harness

import "github.com/roach88/accumulog/internal/ir"

// Trace event types.
const (
	TypeReceipt  = "receipt"
	TypeEvent    = "event"
	TypeRejected = "rejected"
)

// TraceEvent is one entry of a scenario trace: a receipt for an included
// call, an event it emitted, or a rejection of a call that was never included.
type TraceEvent struct {
	Type     string      `json:"type"`
	Step     int         `json:"step"`
	Seq      int64       `json:"seq,omitempty"`
	Identity ir.Identity `json:"as,omitempty"`
	Outcome  string      `json:"outcome,omitempty"`
	Index    uint64      `json:"index,omitempty"`
	Count    uint64      `json:"count,omitempty"`
	Payload  []byte      `json:"payload,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains receipts, events and rejections in dispatch order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// SetupRoot is the state root after setup, before any step ran.
	SetupRoot string `json:"setup_root"`

	// StateRoot is the final state root.
	StateRoot string `json:"state_root"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddReceiptTrace adds the receipt of an included call to the trace.
func (r *Result) AddReceiptTrace(step int, rec ir.Receipt) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     TypeReceipt,
		Step:     step,
		Seq:      rec.Seq,
		Identity: rec.Identity,
		Outcome:  rec.Outcome,
		Index:    rec.Index,
		Error:    rec.ErrorCode,
	})
}

// AddEventTrace adds an emitted event to the trace.
func (r *Result) AddEventTrace(step int, ev ir.StoredEvent) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     TypeEvent,
		Step:     step,
		Seq:      ev.Seq,
		Identity: ev.Identity,
		Count:    ev.Count,
		Payload:  ev.Payload,
	})
}

// AddRejectedTrace adds a call rejected before inclusion to the trace.
func (r *Result) AddRejectedTrace(step int, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  TypeRejected,
		Step:  step,
		Error: code,
	})
}

// Events returns the event entries of the trace.
func (r *Result) Events() []TraceEvent {
	var events []TraceEvent
	for _, te := range r.Trace {
		if te.Type == TypeEvent {
			events = append(events, te)
		}
	}
	return events
}
