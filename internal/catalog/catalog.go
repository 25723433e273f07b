// Package catalog loads the mapping of monitored tables, views and alert families.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rbpanama/idbhealth/internal/contract"
	"gopkg.in/yaml.v3"
)

// Source reads mapping files from disk and supplies the built-in mapping.
type Source struct{}

var _ contract.MappingSource = Source{} // Compile-time check

// Load implements the MappingSource interface.
func (Source) Load(path string) (*contract.MappingRaw, error) {
	return LoadFile(path)
}

// Default implements the MappingSource interface.
func (Source) Default() *contract.MappingRaw {
	return DefaultMapping()
}

// LoadFile reads a YAML mapping file. Unknown keys are rejected so that a typo
// such as "colum" fails loudly instead of leaving a table unmapped.
func LoadFile(path string) (*contract.MappingRaw, error) {
	if path == "" {
		return nil, errors.New("mapping path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a YAML mapping document.
func Parse(data []byte) (*contract.MappingRaw, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m contract.MappingRaw
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("mapping is empty")
		}
		return nil, err
	}
	if m.Empty() {
		return nil, errors.New("mapping declares no tables, views or families")
	}
	return &m, nil
}

// Marshal renders a mapping as YAML, used to print the built-in mapping as a starting point.
func Marshal(m *contract.MappingRaw) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
