package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the ledger said no: rejected or failed append, absent slot, divergent replay, failed scenario
	ExitCommandError = 2 // the command could not run: bad arguments, missing database, unreadable config
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that carry no
// ExitError are failures.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitFailure
	}
}

// CLIResponse is the envelope of every JSON result.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failure in a JSON result. Code is an accumulator
// error code (CounterOverflow, InconsistentState), a rejection code
// (BAD_ORIGIN, PAYLOAD_TOO_LARGE) or a command code prefixed with E_.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool // text errors include details
}

// Success writes data. JSON output wraps it in a CLIResponse; text output
// calls text, or prints data with fmt when text is nil.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	switch {
	case f.Format == "json":
		return f.encode(CLIResponse{Status: "ok", Data: data})
	case text != nil:
		text(f.Writer)
	default:
		fmt.Fprintln(f.Writer, data)
	}
	return nil
}

// Error writes a coded failure.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %+v\n", details)
	}
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
