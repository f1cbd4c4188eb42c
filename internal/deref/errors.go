package deref

import (
	"errors"
	"fmt"
)

var ErrSchemaNotFound = errors.New("schema not found")

// SchemaNotFoundError reports a missing components.schemas entry.
type SchemaNotFoundError struct {
	Location string
	Name     string
	Err      error
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema not found in components.schemas of %s: %s", e.Location, e.Name)
}

func (e *SchemaNotFoundError) Unwrap() error { return e.Err }

func (e *SchemaNotFoundError) Is(target error) bool { return target == ErrSchemaNotFound }

// ChainError records which reference, in which document, led to Err. Nested
// ChainErrors spell out the whole reference chain.
type ChainError struct {
	Ref       string
	Referring string
	Err       error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%s: $ref %q: %v", e.Referring, e.Ref, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }
