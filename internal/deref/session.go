// Package deref replaces every reference in a schema tree with the fully
// dereferenced node it points to, producing a self-contained schema.
package deref

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/ref"
)

const schemasPointer = "/components/schemas/"

type state int

const (
	resolving state = iota
	resolved
)

type entry struct {
	state state
	value any
}

type Stats struct {
	// Misses counts targets resolved from their document, Hits counts targets
	// served from the arena, Cycles counts placeholders handed out for targets
	// still being resolved.
	Misses int
	Hits   int
	Cycles int
}

// Session owns one Store and one arena of resolved targets. A reference to a
// target that is still being resolved yields an empty schema, so genuinely
// self-referential schemas lose their constraints at the cycle point.
//
// A Session is not safe for concurrent use and must not be shared between
// unrelated document sets.
type Session struct {
	store *document.Store
	log   logr.Logger
	arena map[ref.Target]*entry
	stats Stats
}

func NewSession(store *document.Store, log logr.Logger) *Session {
	return &Session{
		store: store,
		log:   log,
		arena: map[ref.Target]*entry{},
	}
}

func (s *Session) Store() *document.Store {
	return s.store
}

func (s *Session) Stats() Stats {
	return s.stats
}

// ResolveNamedSchema returns components.schemas.<name> of the document at
// location, fully dereferenced. Repeated calls return the same tree.
func (s *Session) ResolveNamedSchema(location, name string) (any, error) {
	doc, err := s.store.Load(location)
	if err != nil {
		return nil, err
	}
	pointer := schemasPointer + document.EscapeToken(name)
	if _, err := document.GetAtPointer(doc, pointer); err != nil {
		return nil, &SchemaNotFoundError{Location: doc.Location, Name: name, Err: err}
	}
	return s.Dereference(Reference{Ref: "#" + pointer}, doc.Location)
}

// Dereference resolves node, which appears in the document at location.
func (s *Session) Dereference(node Node, location string) (any, error) {
	switch n := node.(type) {
	case Reference:
		return s.follow(n.Ref, location)
	case Composite:
		out := make(map[string]any, len(n.Keys))
		for _, k := range n.Keys {
			v, err := s.Dereference(n.Values[k], location)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return NormalizeNullable(out), nil
	case Sequence:
		out := make([]any, len(n))
		for i, child := range n {
			v, err := s.Dereference(child, location)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case Scalar:
		return n.Value, nil
	default:
		return nil, fmt.Errorf("unknown schema node %T", node)
	}
}

func (s *Session) follow(expr, referring string) (any, error) {
	target, err := ref.Resolve(expr, referring)
	if err != nil {
		return nil, &ChainError{Ref: expr, Referring: referring, Err: err}
	}
	target.Location = s.store.Canonical(target.Location)

	if e, ok := s.arena[target]; ok {
		if e.state == resolving {
			s.stats.Cycles++
			s.log.V(1).Info("reference cycle, substituting empty schema", "target", target.String())
			return map[string]any{}, nil
		}
		s.stats.Hits++
		return e.value, nil
	}

	s.stats.Misses++
	s.arena[target] = &entry{state: resolving}
	value, err := s.resolve(target)
	if err != nil {
		delete(s.arena, target)
		return nil, &ChainError{Ref: expr, Referring: referring, Err: err}
	}
	s.arena[target] = &entry{state: resolved, value: value}
	return value, nil
}

func (s *Session) resolve(target ref.Target) (any, error) {
	doc, err := s.store.Load(target.Location)
	if err != nil {
		return nil, err
	}
	raw, err := document.GetAtPointer(doc, target.Pointer)
	if err != nil {
		if name, ok := schemaName(target.Pointer); ok && errors.Is(err, document.ErrPointerNotFound) {
			return nil, &SchemaNotFoundError{Location: doc.Location, Name: name, Err: err}
		}
		return nil, err
	}
	return s.Dereference(Interpret(raw), doc.Location)
}

func schemaName(pointer string) (string, bool) {
	tokens := document.SplitPointer(pointer)
	if len(tokens) == 3 && tokens[0] == "components" && tokens[1] == "schemas" {
		return tokens[2], true
	}
	return "", false
}
