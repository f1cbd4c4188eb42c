package document

import (
	"strings"
)

var (
	tokenEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	tokenUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// EscapeToken encodes a single JSON pointer reference token.
func EscapeToken(s string) string {
	return tokenEscaper.Replace(s)
}

// UnescapeToken decodes a single JSON pointer reference token, ~1 before ~0.
func UnescapeToken(s string) string {
	return tokenUnescaper.Replace(s)
}

// SplitPointer returns the unescaped tokens of pointer. The empty pointer
// addresses the root and has no tokens.
func SplitPointer(pointer string) []string {
	if pointer == "" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i := range parts {
		parts[i] = UnescapeToken(parts[i])
	}
	return parts
}

// GetAtPointer descends doc one token at a time. Every intermediate node must
// be a mapping containing the token.
func GetAtPointer(doc *Document, pointer string) (any, error) {
	if pointer != "" && !strings.HasPrefix(pointer, "/") {
		return nil, &PointerNotFoundError{Location: doc.Location, Pointer: pointer, Segment: pointer}
	}

	var cur any = doc.Root
	for _, token := range SplitPointer(pointer) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &PointerNotFoundError{Location: doc.Location, Pointer: pointer, Segment: token}
		}
		next, ok := m[token]
		if !ok {
			return nil, &PointerNotFoundError{Location: doc.Location, Pointer: pointer, Segment: token}
		}
		cur = next
	}
	return cur, nil
}
