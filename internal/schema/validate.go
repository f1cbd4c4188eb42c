package schema

import (
	"errors"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Result is the outcome of one validation. Non-conformance is a result, not
// an error.
type Result struct {
	Conformant bool        `json:"conformant"`
	Violations []Violation `json:"violations"`
}

// Validate collects every violation of instance, sorted by path. Conformant
// is true iff there are none.
func (s *Schema) Validate(instance any) Result {
	err := s.compiled.Validate(instance)
	if err == nil {
		return Result{Conformant: true, Violations: []Violation{}}
	}

	var vs []Violation
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		vs = collect(verr, nil)
	}
	if len(vs) == 0 {
		vs = []Violation{{Path: []string{}, Message: err.Error()}}
	}
	SortViolations(vs)
	return Result{Conformant: false, Violations: vs}
}

// Validate compiles resolved and validates instance against it.
func Validate(instance, resolved any, opts ...CompileOption) (Result, error) {
	s, err := Compile(resolved, opts...)
	if err != nil {
		return Result{}, err
	}
	return s.Validate(instance), nil
}

// collect keeps the leaves of the error tree. A failed anyOf or oneOf stays a
// single violation, the branch failures go into its message.
func collect(e *jsonschema.ValidationError, out []Violation) []Violation {
	switch e.ErrorKind.(type) {
	case *kind.AnyOf, *kind.OneOf:
		return append(out, Violation{
			Path:    pathOf(e),
			Message: compositeMessage(e),
		})
	}
	if len(e.Causes) == 0 {
		return append(out, Violation{
			Path:    pathOf(e),
			Message: e.ErrorKind.LocalizedString(printer),
		})
	}
	for _, cause := range e.Causes {
		out = collect(cause, out)
	}
	return out
}

func compositeMessage(e *jsonschema.ValidationError) string {
	msg := e.ErrorKind.LocalizedString(printer)
	var branches []string
	for _, cause := range e.Causes {
		for _, leaf := range collect(cause, nil) {
			if !slices.Contains(branches, leaf.Message) {
				branches = append(branches, leaf.Message)
			}
		}
	}
	if len(branches) == 0 {
		return msg
	}
	return msg + " (" + strings.Join(branches, "; ") + ")"
}

func pathOf(e *jsonschema.ValidationError) []string {
	return append([]string{}, e.InstanceLocation...)
}
