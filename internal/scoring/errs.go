package scoring

import "fmt"

// DataError reports a structurally invalid input record, most commonly an
// unrecognized severity. It is warning grade: the offending record is skipped
// and evaluation continues for the rest of the project.
type DataError struct {
	Subject string
	Reason  string
}

// NewDataError builds a DataError for the given record.
func NewDataError(subject, reason string) *DataError {
	return &DataError{Subject: subject, Reason: reason}
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}
