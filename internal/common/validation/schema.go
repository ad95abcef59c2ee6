// Package validation checks request payloads against JSON schemas.
package validation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult collects every schema violation found in a document.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages flattens the result into "field: message" strings.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return messages
}

// HasErrors reports whether field has at least one violation.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, e := range vr.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Schema names accepted by Validate.
const (
	SchemaCandidateInput = "candidate-input"
	SchemaCandidatePatch = "candidate-patch"
	SchemaStageUpdate    = "stage-update"
	SchemaScore          = "score"
	SchemaNote           = "note"
)

var schemaSources = map[string]string{
	SchemaCandidateInput: `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name":            {"type": "string", "minLength": 1, "maxLength": 200, "pattern": "\\S"},
			"emails":          {"type": ["array", "null"], "items": {"type": "string", "format": "email"}},
			"phones":          {"type": ["array", "null"], "items": {"type": "string", "pattern": "^\\+?[0-9 ()-]{5,20}$"}},
			"positionApplied": {"type": ["string", "null"]},
			"source":          {"type": "string", "maxLength": 100},
			"tags":            {"type": ["array", "null"], "items": {"type": "string", "maxLength": 50}},
			"priority":        {"type": "boolean"},
			"isTalentPool":    {"type": "boolean"},
			"linkedin":        {"type": "string"},
			"ratings":         {"type": "integer", "minimum": 0, "maximum": 5}
		}
	}`,
	SchemaCandidatePatch: `{
		"type": "object",
		"not": {"anyOf": [
			{"required": ["stage"]},
			{"required": ["scores"]},
			{"required": ["finalScore"]},
			{"required": ["timeline"]},
			{"required": ["notes"]},
			{"required": ["orgId"]},
			{"required": ["version"]}
		]},
		"properties": {
			"name":    {"type": "string", "minLength": 1, "maxLength": 200, "pattern": "\\S"},
			"emails":  {"type": "array", "items": {"type": "string", "format": "email"}},
			"phones":  {"type": "array", "items": {"type": "string", "pattern": "^\\+?[0-9 ()-]{5,20}$"}},
			"tags":    {"type": "array", "items": {"type": "string", "maxLength": 50}},
			"ratings": {"type": "integer", "minimum": 0, "maximum": 5}
		}
	}`,
	SchemaStageUpdate: `{
		"type": "object",
		"required": ["stage"],
		"properties": {
			"stage": {"type": "string", "minLength": 1}
		}
	}`,
	SchemaScore: `{
		"type": "object",
		"required": ["rubricId", "finalScore"],
		"properties": {
			"rubricId":   {"type": "string", "minLength": 1},
			"values":     {"type": ["object", "null"]},
			"finalScore": {"type": "number", "minimum": 0},
			"comments":   {"type": "string", "maxLength": 5000}
		}
	}`,
	SchemaNote: `{
		"type": "object",
		"required": ["text"],
		"properties": {
			"text": {"type": "string", "maxLength": 10000}
		}
	}`,
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema, len(schemaSources))
		for name, src := range schemaSources {
			s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Validate checks document against the named schema. document may be a Go
// value (marshalled through encoding/json) or raw JSON bytes.
func Validate(schemaName string, document interface{}) (*ValidationResult, error) {
	all, err := schemas()
	if err != nil {
		return nil, err
	}
	schema, ok := all[schemaName]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schemaName)
	}

	var loader gojsonschema.JSONLoader
	if raw, isBytes := document.([]byte); isBytes {
		loader = gojsonschema.NewBytesLoader(raw)
	} else {
		loader = gojsonschema.NewGoLoader(document)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", schemaName, err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	sort.Slice(out.Errors, func(i, j int) bool {
		if out.Errors[i].Field == out.Errors[j].Field {
			return out.Errors[i].Code < out.Errors[j].Code
		}
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out, nil
}
