package schema

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/xdavidwu/openapi-conformance/internal/document"
)

// Violation is one failed constraint at Path, a sequence of object keys and
// array indexes from the instance root.
type Violation struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func (v Violation) PathString() string {
	if len(v.Path) == 0 {
		return "(root)"
	}
	var b strings.Builder
	for _, segment := range v.Path {
		b.WriteByte('/')
		b.WriteString(document.EscapeToken(segment))
	}
	return b.String()
}

func (v Violation) String() string {
	return v.PathString() + ": " + v.Message
}

// ComparePaths orders paths segment by segment, comparing array indexes
// numerically; a path sorts before its extensions.
func ComparePaths(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareSegments(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareSegments(a, b string) int {
	if isIndex(a) && isIndex(b) {
		a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func SortViolations(vs []Violation) {
	slices.SortStableFunc(vs, func(a, b Violation) int {
		if c := ComparePaths(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
}

// Report renders one line per violation. With max > 0 at most max lines are
// kept, followed by a line counting the rest.
func Report(vs []Violation, max int) []string {
	shown := vs
	if max > 0 && len(vs) > max {
		shown = vs[:max]
	}
	lines := make([]string, 0, len(shown)+1)
	for _, v := range shown {
		lines = append(lines, v.String())
	}
	if len(shown) < len(vs) {
		lines = append(lines, fmt.Sprintf("... and %d more", len(vs)-len(shown)))
	}
	return lines
}
