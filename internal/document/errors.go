package document

import (
	"errors"
	"fmt"
)

var (
	ErrInvalid         = errors.New("invalid document")
	ErrPointerNotFound = errors.New("pointer not found")
)

// InvalidError reports a document that cannot be read, cannot be parsed, or
// lacks the top-level structure a schema document needs.
type InvalidError struct {
	Location string
	Reason   string
	Err      error
}

func (e *InvalidError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid document %s: %s: %v", e.Location, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid document %s: %s", e.Location, e.Reason)
}

func (e *InvalidError) Unwrap() error { return e.Err }

func (e *InvalidError) Is(target error) bool { return target == ErrInvalid }

// PointerNotFoundError carries the full pointer and the first segment that
// could not be followed.
type PointerNotFoundError struct {
	Location string
	Pointer  string
	Segment  string
}

func (e *PointerNotFoundError) Error() string {
	return fmt.Sprintf("pointer not found: %s in %s (missing %q)", e.Pointer, e.Location, e.Segment)
}

func (e *PointerNotFoundError) Is(target error) bool { return target == ErrPointerNotFound }
