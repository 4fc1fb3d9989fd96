package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a task file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension. Anything other than
// .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads a task file and decodes its records.
func LoadFile(path string, opts DecodeOptions) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	specs, err := Parse(data, FormatForPath(path), opts)
	if err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", path, err)
	}
	return specs, nil
}

// Parse decodes task records from data.
func Parse(data []byte, format Format, opts DecodeOptions) ([]Spec, error) {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, err
	}

	records, err := ExtractRecords(doc)
	if err != nil {
		return nil, err
	}

	if errs := ValidateRecords(records); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return DecodeRecords(records, opts)
}

func decodeDocument(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ValidationError{Err: fmt.Errorf("decode yaml: %w", err)}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, &ValidationError{Err: fmt.Errorf("decode json: %w", err)}
		}
	}
	return doc, nil
}

// SaveFile writes specs to path in the format implied by its extension.
// JSON output uses 2-space indentation and a trailing newline.
func SaveFile(path string, specs []Spec) error {
	out := make([]Spec, len(specs))
	for i, s := range specs {
		out[i] = s.Clone()
		if out[i].DependsOn == nil {
			out[i].DependsOn = []string{}
		}
	}

	var (
		data []byte
		err  error
	)
	switch FormatForPath(path) {
	case FormatYAML:
		data, err = yaml.Marshal(out)
	default:
		data, err = json.MarshalIndent(out, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal task file: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	return nil
}
