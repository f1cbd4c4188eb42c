package document

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"sigs.k8s.io/yaml"
)

// FileReader reads JSON or YAML documents from the local filesystem.
type FileReader struct{}

func (FileReader) Read(location string) (any, error) {
	b, err := os.ReadFile(location)
	if err != nil {
		return nil, &InvalidError{Location: location, Reason: "cannot read", Err: err}
	}
	return Parse(location, b)
}

// Parse decodes JSON or YAML into the JSON data model, keeping numbers as
// json.Number so the validator sees them exactly.
func Parse(location string, b []byte) (any, error) {
	j, err := yaml.YAMLToJSON(b)
	if err != nil {
		return nil, &InvalidError{Location: location, Reason: "cannot parse", Err: err}
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(j))
	if err != nil {
		return nil, &InvalidError{Location: location, Reason: "cannot parse", Err: err}
	}
	return v, nil
}

// MapReader serves already-parsed trees keyed by canonical location.
type MapReader map[string]any

func (m MapReader) Read(location string) (any, error) {
	v, ok := m[location]
	if !ok {
		return nil, fmt.Errorf("%s: %w", location, fs.ErrNotExist)
	}
	return v, nil
}
