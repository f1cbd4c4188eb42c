// Package schema validates instances against fully dereferenced schemas.
package schema

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	SchemaFileUrl = "file:///resolved.schema.json"
)

type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("cannot compile resolved schema: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Drafts maps the names accepted by WithDraft.
var Drafts = map[string]*jsonschema.Draft{
	"4":       jsonschema.Draft4,
	"6":       jsonschema.Draft6,
	"7":       jsonschema.Draft7,
	"2019-09": jsonschema.Draft2019,
	"2020-12": jsonschema.Draft2020,
}

// builtinFormats are the formats the validator knows. Before draft 2019 it
// asserts them unconditionally.
var builtinFormats = []string{
	"regex", "ipv4", "ipv6", "hostname", "idn-hostname", "email", "idn-email",
	"date", "time", "date-time", "duration", "period", "json-pointer",
	"relative-json-pointer", "uuid", "uri", "iri", "uri-reference",
	"iri-reference", "uri-template", "semver",
}

type compileConfig struct {
	draft        *jsonschema.Draft
	assertFormat bool
}

type CompileOption func(*compileConfig)

// WithDraft sets the draft used for schemas without $schema, one of the keys
// of Drafts. Draft 7 by default.
func WithDraft(name string) (CompileOption, error) {
	d, ok := Drafts[name]
	if !ok {
		return nil, fmt.Errorf("unknown draft %q", name)
	}
	return func(c *compileConfig) {
		c.draft = d
	}, nil
}

// WithAssertFormat makes "format" an assertion instead of an annotation.
func WithAssertFormat() CompileOption {
	return func(c *compileConfig) {
		c.assertFormat = true
	}
}

type Schema struct {
	compiled *jsonschema.Schema
}

// Compile compiles a self-contained schema tree. The tree must not contain
// references to other resources.
func Compile(resolved any, opts ...CompileOption) (*Schema, error) {
	cfg := compileConfig{draft: jsonschema.Draft7}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(cfg.draft)
	if cfg.assertFormat {
		c.AssertFormat()
		for _, f := range openapiFormats {
			c.RegisterFormat(f)
		}
	} else {
		for _, name := range builtinFormats {
			c.RegisterFormat(annotation(name))
		}
		for _, f := range openapiFormats {
			c.RegisterFormat(annotation(f.Name))
		}
	}

	if err := c.AddResource(SchemaFileUrl, resolved); err != nil {
		return nil, &CompileError{Err: err}
	}
	compiled, err := c.Compile(SchemaFileUrl)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return &Schema{compiled: compiled}, nil
}

func annotation(name string) *jsonschema.Format {
	return &jsonschema.Format{
		Name:     name,
		Validate: func(any) error { return nil },
	}
}

// openapiFormats are the data type formats OpenAPI adds on top of JSON
// Schema.
var openapiFormats = []*jsonschema.Format{
	{Name: "int32", Validate: integerBits(32)},
	{Name: "int64", Validate: integerBits(64)},
	{Name: "byte", Validate: base64String},
	{Name: "float", Validate: func(any) error { return nil }},
	{Name: "double", Validate: func(any) error { return nil }},
	{Name: "binary", Validate: func(any) error { return nil }},
	{Name: "password", Validate: func(any) error { return nil }},
}

func integerBits(bits int) func(any) error {
	return func(v any) error {
		n, ok := v.(interface{ String() string })
		if !ok {
			return nil
		}
		if _, err := strconv.ParseInt(n.String(), 10, bits); errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("out of range for a %d-bit integer", bits)
		}
		return nil
	}
}

func base64String(v any) error {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return errors.New("not base64 encoded")
	}
	return nil
}

// DecodeInstance reads one JSON value, keeping numbers exact.
func DecodeInstance(r io.Reader) (any, error) {
	return jsonschema.UnmarshalJSON(r)
}
