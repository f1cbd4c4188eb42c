// Package conformance checks example payloads against the named schemas a
// manifest maps them to.
package conformance

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/xdavidwu/openapi-conformance/internal/document"
	"github.com/xdavidwu/openapi-conformance/internal/schema"
)

const DefaultMaxViolations = 20

// Manifest maps example files to (document, schema) pairs. Relative paths are
// relative to the manifest's directory.
type Manifest struct {
	Documents map[string]string `yaml:"documents"`
	Examples  []Example         `yaml:"examples"`

	// RequiredFields overrides the top-level fields every document must have.
	RequiredFields []string `yaml:"required_fields,omitempty"`
	AssertFormat   bool     `yaml:"assert_format,omitempty"`
	// Draft is the JSON Schema draft resolved schemas are compiled under,
	// "7" when empty.
	Draft         string `yaml:"draft,omitempty"`
	MaxViolations int    `yaml:"max_violations,omitempty"`

	dir string
}

type Example struct {
	File     string `yaml:"file"`
	Document string `yaml:"document"`
	Schema   string `yaml:"schema"`
}

func (e Example) Check() string {
	return e.Document + ":" + e.Schema
}

func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot locate manifest: %w", err)
	}
	return ParseManifest(b, dir)
}

func ParseManifest(b []byte, dir string) (*Manifest, error) {
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("cannot parse manifest: %w", err)
	}
	m.dir = dir
	if m.MaxViolations == 0 {
		m.MaxViolations = DefaultMaxViolations
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every problem in the manifest at once.
func (m *Manifest) Validate() error {
	var err error
	if len(m.Documents) == 0 {
		err = multierr.Append(err, errors.New("manifest lists no documents"))
	}
	for _, key := range m.DocumentKeys() {
		if m.Documents[key] == "" {
			err = multierr.Append(err, fmt.Errorf("document %q has no path", key))
		}
	}
	for i, e := range m.Examples {
		if e.File == "" {
			err = multierr.Append(err, fmt.Errorf("examples[%d]: missing file", i))
		}
		if e.Schema == "" {
			err = multierr.Append(err, fmt.Errorf("examples[%d]: missing schema", i))
		}
		if _, ok := m.Documents[e.Document]; !ok {
			err = multierr.Append(err, fmt.Errorf("examples[%d]: unknown document %q", i, e.Document))
		}
	}
	if m.Draft != "" {
		if _, ok := schema.Drafts[m.Draft]; !ok {
			err = multierr.Append(err, fmt.Errorf("unknown draft %q", m.Draft))
		}
	}
	if m.MaxViolations < 0 {
		err = multierr.Append(err, fmt.Errorf("max_violations must not be negative, got %d", m.MaxViolations))
	}
	return err
}

func (m *Manifest) StoreOptions() []document.Option {
	if m.RequiredFields == nil {
		return nil
	}
	return []document.Option{document.WithRequiredFields(m.RequiredFields...)}
}

func (m *Manifest) CompileOptions() []schema.CompileOption {
	var opts []schema.CompileOption
	if m.Draft != "" {
		// checked by Validate
		if draft, err := schema.WithDraft(m.Draft); err == nil {
			opts = append(opts, draft)
		}
	}
	if m.AssertFormat {
		opts = append(opts, schema.WithAssertFormat())
	}
	return opts
}

func (m *Manifest) DocumentKeys() []string {
	keys := make([]string, 0, len(m.Documents))
	for k := range m.Documents {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Manifest) DocumentPath(key string) string {
	return m.resolve(m.Documents[key])
}

func (m *Manifest) ExamplePath(e Example) string {
	return m.resolve(e.File)
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}
