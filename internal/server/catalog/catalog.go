// Package catalog serves validation against every named schema of a
// manifest's documents, resolved and compiled up front.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/xdavidwu/openapi-conformance/internal/conformance"
	"github.com/xdavidwu/openapi-conformance/internal/deref"
	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/metrics"
	"github.com/xdavidwu/openapi-conformance/internal/schema"
)

var ErrNotFound = errors.New("not found")

type entry struct {
	resolved any
	compiled *schema.Schema
	err      error
}

// Catalog is read-only once built and safe for concurrent use.
type Catalog struct {
	documents map[string]map[string]*entry
	docErrs   map[string]error
	watched   map[string]bool
	err       error
}

// Build resolves every components.schemas entry of every manifest document
// in a single session. Failures are kept per document or schema and also
// returned combined; the catalog is usable either way.
func Build(m *conformance.Manifest, reader document.Reader, log logr.Logger) (*Catalog, error) {
	store := document.NewStore(reader, append(m.StoreOptions(), document.WithLogger(log))...)
	session := deref.NewSession(store, log)
	c := &Catalog{
		documents: map[string]map[string]*entry{},
		docErrs:   map[string]error{},
		watched:   map[string]bool{},
	}

	for _, key := range m.DocumentKeys() {
		path := m.DocumentPath(key)
		doc, err := store.Load(path)
		if err != nil {
			c.docErrs[key] = err
			c.watched[store.Canonical(path)] = true
			c.err = multierr.Append(c.err, fmt.Errorf("document %s: %w", key, err))
			continue
		}

		entries := map[string]*entry{}
		for _, name := range schemaNames(doc) {
			e := &entry{}
			e.resolved, e.err = session.ResolveNamedSchema(path, name)
			if e.err == nil {
				e.compiled, e.err = schema.Compile(e.resolved, m.CompileOptions()...)
			}
			if e.err != nil {
				c.err = multierr.Append(c.err, fmt.Errorf("%s:%s: %w", key, name, e.err))
			}
			entries[name] = e
		}
		c.documents[key] = entries
		log.Info("cataloged document", "document", key, "schemas", len(entries))
	}

	for _, loc := range store.Locations() {
		c.watched[loc] = true
	}
	metrics.ObserveSession(store.Stats(), session.Stats())
	return c, c.err
}

func schemaNames(doc *document.Document) []string {
	components, _ := doc.Root["components"].(map[string]any)
	schemas, _ := components["schemas"].(map[string]any)
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) lookup(documentKey, name string) (*entry, error) {
	if err, ok := c.docErrs[documentKey]; ok {
		return nil, err
	}
	entries, ok := c.documents[documentKey]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", documentKey, ErrNotFound)
	}
	e, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("schema %q in document %q: %w", name, documentKey, ErrNotFound)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e, nil
}

func (c *Catalog) Validate(documentKey, name string, instance any) (schema.Result, error) {
	e, err := c.lookup(documentKey, name)
	if err != nil {
		return schema.Result{}, err
	}
	return e.compiled.Validate(instance), nil
}

// Resolved returns the dereferenced schema tree.
func (c *Catalog) Resolved(documentKey, name string) (any, error) {
	e, err := c.lookup(documentKey, name)
	if err != nil {
		return nil, err
	}
	return e.resolved, nil
}

// Locations lists the documents the catalog was built from, including the
// ones reached only through references.
func (c *Catalog) Locations() []string {
	locations := make([]string, 0, len(c.watched))
	for loc := range c.watched {
		locations = append(locations, loc)
	}
	sort.Strings(locations)
	return locations
}

func (c *Catalog) Uses(location string) bool {
	return c.watched[location]
}

func (c *Catalog) Err() error {
	return c.err
}
