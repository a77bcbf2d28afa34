package judge

import "fmt"

// TransientError marks a judge call failure that is worth retrying: network
// faults, rate limiting, and upstream 5xx responses. A TransientError
// surfacing from a client means its internal retry budget is already spent.
type TransientError struct {
	Err error
}

// NewTransientError wraps err as retryable.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient judge failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedOutputError reports a judge response that could not be parsed into
// a valid verdict. Raw preserves a truncated snippet of the model output for
// the audit trail.
type MalformedOutputError struct {
	Raw string
	Err error
}

// NewMalformedOutputError wraps a parse or validation failure together with
// the offending model output.
func NewMalformedOutputError(raw string, err error) *MalformedOutputError {
	return &MalformedOutputError{Raw: raw, Err: err}
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed judge output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }
