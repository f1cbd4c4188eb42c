package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-logr/logr"
)

// Document is one parsed schema-bearing document. It is not modified after
// Load returns it.
type Document struct {
	Location string
	Root     map[string]any
}

// Reader supplies parsed trees for canonical locations.
type Reader interface {
	Read(location string) (any, error)
}

// DefaultRequiredFields are the top-level keys an OpenAPI document must carry.
var DefaultRequiredFields = []string{"openapi", "components"}

type Stats struct {
	// Reads counts calls into the Reader, Hits counts loads served from cache.
	Reads int
	Hits  int
}

type Option func(*Store)

func WithRequiredFields(fields ...string) Option {
	return func(s *Store) {
		s.required = fields
	}
}

func WithLogger(log logr.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Store memoizes documents by canonical location for one session. A Store is
// not safe for concurrent use.
type Store struct {
	reader   Reader
	required []string
	log      logr.Logger
	docs     map[string]*Document
	canon    map[string]string
	stats    Stats
}

func NewStore(reader Reader, opts ...Option) *Store {
	s := &Store{
		reader:   reader,
		required: DefaultRequiredFields,
		log:      logr.Discard(),
		docs:     map[string]*Document{},
		canon:    map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Canonical returns the cache key for location: absolute, cleaned, and with
// symlinks evaluated when the path exists.
func Canonical(location string) string {
	abs, err := filepath.Abs(location)
	if err != nil {
		return filepath.Clean(location)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// Canonical is the memoized form of the package-level Canonical.
func (s *Store) Canonical(location string) string {
	if c, ok := s.canon[location]; ok {
		return c
	}
	c := Canonical(location)
	s.canon[location] = c
	return c
}

func (s *Store) Load(location string) (*Document, error) {
	loc := s.Canonical(location)
	if doc, ok := s.docs[loc]; ok {
		s.stats.Hits++
		return doc, nil
	}

	s.stats.Reads++
	raw, err := s.reader.Read(loc)
	if err != nil {
		var invalid *InvalidError
		if errors.As(err, &invalid) {
			return nil, err
		}
		return nil, &InvalidError{Location: loc, Reason: "cannot read", Err: err}
	}

	root, ok := raw.(map[string]any)
	if !ok {
		return nil, &InvalidError{Location: loc, Reason: fmt.Sprintf("root is %s, not a mapping", kindOf(raw))}
	}
	for _, field := range s.required {
		if _, ok := root[field]; !ok {
			return nil, &InvalidError{Location: loc, Reason: fmt.Sprintf("missing top-level field %q", field)}
		}
	}

	doc := &Document{Location: loc, Root: root}
	s.docs[loc] = doc
	s.log.V(1).Info("loaded document", "location", loc)
	return doc, nil
}

// Locations lists the canonical locations loaded so far, sorted.
func (s *Store) Locations() []string {
	locations := make([]string, 0, len(s.docs))
	for loc := range s.docs {
		locations = append(locations, loc)
	}
	sort.Strings(locations)
	return locations
}

func (s *Store) Stats() Stats {
	return s.stats
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "empty"
	case []any:
		return "a sequence"
	case map[string]any:
		return "a mapping"
	default:
		return "a scalar"
	}
}
