package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the requested month is not published yet or
	// the source could not be reached. It is the expected steady state near
	// the current date.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrMalformedRecord means a source line did not yield a valid timestamp.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptySource means the source file contained no observation lines.
	ErrEmptySource = errors.New("source contains no observations")

	// ErrLedgerOrder means the ledger is not strictly increasing.
	ErrLedgerOrder = errors.New("ledger months out of order")

	// ErrEmptyLedger means there is no processed month to continue from.
	ErrEmptyLedger = errors.New("ledger is empty")
)

// MalformedRecordError reports the first source line that could not be
// sliced into the expected columns or whose timestamp did not parse.
type MalformedRecordError struct {
	Line int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at line %d: %v", e.Line, e.Err)
}

// Is lets callers match with errors.Is(err, ErrMalformedRecord).
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// PublishError wraps a version-control failure. Local files are already
// written when it is returned, so retrying only the publish is safe.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
