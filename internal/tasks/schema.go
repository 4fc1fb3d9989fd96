package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/taskcal/internal/utils"
)

const schemaURL = "taskcal://schemas/tasks.schema.json"

// Schema is the JSON Schema for a list of task records. It mirrors the
// aliases DecodeRecords accepts.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "taskcal://schemas/tasks.schema.json",
  "title": "taskcal task records",
  "type": "array",
  "items": {"$ref": "#/$defs/task"},
  "$defs": {
    "name": {"type": ["string", "null"]},
    "amount": {"type": ["number", "string", "null"]},
    "dependencies": {
      "type": ["array", "string", "integer", "null"],
      "items": {"type": ["string", "integer", "null"]}
    },
    "task": {
      "type": "object",
      "anyOf": [
        {"required": ["task"]},
        {"required": ["name"]},
        {"required": ["title"]},
        {"required": ["description"]}
      ],
      "properties": {
        "task": {"$ref": "#/$defs/name"},
        "name": {"$ref": "#/$defs/name"},
        "title": {"$ref": "#/$defs/name"},
        "description": {"$ref": "#/$defs/name"},
        "duration": {"$ref": "#/$defs/amount"},
        "estimate": {"$ref": "#/$defs/amount"},
        "duration_hours": {"$ref": "#/$defs/amount"},
        "hours": {"$ref": "#/$defs/amount"},
        "duration_minutes": {"$ref": "#/$defs/amount"},
        "minutes": {"$ref": "#/$defs/amount"},
        "depends_on": {"$ref": "#/$defs/dependencies"},
        "depends": {"$ref": "#/$defs/dependencies"},
        "dependencies": {"$ref": "#/$defs/dependencies"},
        "dependency": {"$ref": "#/$defs/dependencies"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func recordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, strings.NewReader(Schema)); err != nil {
			schemaErr = fmt.Errorf("load task schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateRecords checks decoded records against Schema. Values are
// round-tripped through JSON first so YAML-decoded input validates the same
// way as JSON input.
func ValidateRecords(records []any) []error {
	schema, err := recordSchema()
	if err != nil {
		return []error{err}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return []error{&ValidationError{Path: "tasks", Err: fmt.Errorf("failed to marshal records for validation: %w", err)}}
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []error{&ValidationError{Path: "tasks", Err: fmt.Errorf("failed to unmarshal records for validation: %w", err)}}
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return []error{err}
		}
		return collectSchemaErrors(nil, ve)
	}
	return nil
}

func collectSchemaErrors(errs []error, err *jsonschema.ValidationError) []error {
	if err == nil {
		return errs
	}

	if len(err.Causes) == 0 {
		path := "tasks"
		if p := utils.JSONPointerToPath(err.InstanceLocation); p != "" {
			if strings.HasPrefix(p, "[") {
				path += p
			} else {
				path += "." + p
			}
		}
		return append(errs, &ValidationError{Path: path, Err: errors.New(err.Message)})
	}

	for _, cause := range err.Causes {
		errs = collectSchemaErrors(errs, cause)
	}
	return errs
}
