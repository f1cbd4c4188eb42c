// Package ref parses reference expressions of the form
// [<document-locator>]#<json-pointer> and resolves them against the location
// of the document they appear in.
package ref

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrMalformed = errors.New("malformed reference")

type MalformedError struct {
	Ref    string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed reference %q: %s", e.Ref, e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// Target identifies a node: a canonical document location plus a pointer
// inside it. It is comparable and used as a cache key.
type Target struct {
	Location string
	Pointer  string
}

func (t Target) String() string {
	return t.Location + "#" + t.Pointer
}

// Resolve splits expr on its first '#'. An empty locator targets the referring
// document; otherwise the locator is a path relative to the directory of the
// referring document.
func Resolve(expr, referring string) (Target, error) {
	locator, pointer, found := strings.Cut(expr, "#")
	if !found {
		return Target{}, &MalformedError{Ref: expr, Reason: "missing '#'"}
	}
	if pointer != "" && !strings.HasPrefix(pointer, "/") {
		return Target{}, &MalformedError{Ref: expr, Reason: "pointer must be empty or start with '/'"}
	}

	if locator == "" {
		return Target{Location: referring, Pointer: pointer}, nil
	}
	location := filepath.FromSlash(locator)
	if !filepath.IsAbs(location) {
		location = filepath.Join(filepath.Dir(referring), location)
	}
	return Target{Location: filepath.Clean(location), Pointer: pointer}, nil
}
