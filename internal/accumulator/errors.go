package accumulator

import (
	"errors"
	"fmt"

	"github.com/roach88/accumulog/internal/ir"
)

// ErrorCode categorizes append failures.
type ErrorCode string

const (
	// CodeCounterOverflow indicates the identity's counter is already at the
	// maximum representable value.
	CodeCounterOverflow ErrorCode = "CounterOverflow"

	// CodeInconsistentState indicates the slot about to be written is already
	// occupied, so the counter and the list are out of sync.
	CodeInconsistentState ErrorCode = "InconsistentState"
)

// Sentinels for errors.Is matching. Only Code is compared.
var (
	ErrCounterOverflow   = &Error{Code: CodeCounterOverflow}
	ErrInconsistentState = &Error{Code: CodeInconsistentState}
)

// Error is a typed append failure. Both codes are terminal for the call: no
// state was written and no event was emitted.
type Error struct {
	Code     ErrorCode
	Identity ir.Identity
	Counter  uint64
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case CodeCounterOverflow:
		return fmt.Sprintf("%s: accumulator overflow (identity=%s, counter=%d)", e.Code, e.Identity, e.Counter)
	case CodeInconsistentState:
		return fmt.Sprintf("%s: inconsistent accumulator counter (identity=%s, slot=%d)", e.Code, e.Identity, e.Counter)
	default:
		return fmt.Sprintf("%s (identity=%s, counter=%d)", e.Code, e.Identity, e.Counter)
	}
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsCounterOverflow returns true if err is a CounterOverflow failure.
// Wrapped errors match.
func IsCounterOverflow(err error) bool {
	return errors.Is(err, ErrCounterOverflow)
}

// IsInconsistentState returns true if err is an InconsistentState failure.
func IsInconsistentState(err error) bool {
	return errors.Is(err, ErrInconsistentState)
}

// CodeOf returns the code of an accumulator error, or "" if err is not one.
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
