// SPDX-License-Identifier: AGPL-3.0-only
package argo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
)

// ToolDescriptor is a tool definition as the registry reports it: a stable
// name, a human-readable description, and a JSON-schema-like parameter
// object.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// FunctionSchema is the function-calling shape the chat backend expects.
type FunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ConvertedToolSchema wraps a FunctionSchema in the envelope the chat
// backend's tools array requires.
type ConvertedToolSchema struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// DefaultInternalParams are parameter names supplied by the hosting process
// at invocation time rather than by the model. They are stripped from every
// schema exposed to the backend.
var DefaultInternalParams = []string{
	"database",
	"templates",
	"media_store",
	"model_store",
}

// SchemaConverter translates registry tool descriptors into the backend's
// function-calling dialect, filtering out internal parameters.
type SchemaConverter struct {
	internal map[string]bool
	logger   *logging.Logger
}

// NewSchemaConverter creates a converter that strips the given internal
// parameter names. A nil slice uses DefaultInternalParams.
func NewSchemaConverter(internalParams []string, logger *logging.Logger) *SchemaConverter {
	if internalParams == nil {
		internalParams = DefaultInternalParams
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	internal := make(map[string]bool, len(internalParams))
	for _, p := range internalParams {
		internal[p] = true
	}
	return &SchemaConverter{internal: internal, logger: logger}
}

// Convert produces a ConvertedToolSchema for one descriptor. Missing optional
// fields fall back instead of failing: an absent description becomes
// "Execute {name}", an absent parameter schema becomes an empty object
// schema. Only an empty tool name is an error.
func (c *SchemaConverter) Convert(name string, desc ToolDescriptor) (ConvertedToolSchema, error) {
	if name == "" {
		return ConvertedToolSchema{}, fmt.Errorf("tool name must not be empty")
	}

	description := desc.Description
	if description == "" {
		description = fmt.Sprintf("Execute %s", name)
	} else if idx := strings.IndexByte(description, '\n'); idx >= 0 {
		// Only the first line of a multi-line description is sent.
		description = strings.TrimSpace(description[:idx])
		if description == "" {
			description = fmt.Sprintf("Execute %s", name)
		}
	}

	params := c.filterParameters(desc.InputSchema)

	return ConvertedToolSchema{
		Type: "function",
		Function: FunctionSchema{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}, nil
}

// filterParameters copies the input schema, dropping internal parameter names
// from the top-level properties and required list. Nested schema fields are
// copied recursively so enums, descriptions and nested shapes survive intact;
// internal-name filtering applies only at the top level where those names can
// appear.
func (c *SchemaConverter) filterParameters(schema map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
		"required":   []string{},
	}
	if schema == nil {
		return out
	}

	if t, ok := schema["type"].(string); ok && t != "" {
		out["type"] = t
	}

	props := map[string]interface{}{}
	if rawProps, ok := schema["properties"].(map[string]interface{}); ok {
		for name, value := range rawProps {
			if c.internal[name] {
				continue
			}
			props[name] = copySchemaValue(value)
		}
	}
	out["properties"] = props

	required := []string{}
	switch raw := schema["required"].(type) {
	case []string:
		for _, name := range raw {
			if !c.internal[name] {
				required = append(required, name)
			}
		}
	case []interface{}:
		for _, v := range raw {
			if name, ok := v.(string); ok && !c.internal[name] {
				required = append(required, name)
			}
		}
	}
	out["required"] = required

	return out
}

// copySchemaValue deep-copies a schema fragment (maps and slices copied,
// scalars shared).
func copySchemaValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = copySchemaValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = copySchemaValue(inner)
		}
		return out
	default:
		return v
	}
}

// ConvertAll converts every descriptor in the registry, sorted by name for
// deterministic output. A descriptor that fails conversion is logged and
// skipped so one malformed tool does not block the rest of the registry.
func (c *SchemaConverter) ConvertAll(descriptors map[string]ToolDescriptor) []ConvertedToolSchema {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ConvertedToolSchema, 0, len(descriptors))
	for _, name := range names {
		schema, err := c.Convert(name, descriptors[name])
		if err != nil {
			c.logger.Warnf("Skipping tool %q: %v", name, err)
			continue
		}
		out = append(out, schema)
	}
	return out
}

// Validate checks every converted schema for the shape the backend requires:
// the function envelope, an object-typed parameter schema with properties and
// required present, and every required name existing in properties. It
// returns false on any violation; the caller treats false as a fatal startup
// condition.
func (c *SchemaConverter) Validate(schemas []ConvertedToolSchema) bool {
	for _, s := range schemas {
		if s.Type != "function" {
			c.logger.Errorf("Schema validation: tool %q has type %q, want function", s.Function.Name, s.Type)
			return false
		}
		if s.Function.Name == "" {
			c.logger.Errorf("Schema validation: tool with empty name")
			return false
		}
		params := s.Function.Parameters
		if params == nil {
			c.logger.Errorf("Schema validation: tool %q has no parameters object", s.Function.Name)
			return false
		}
		if t, _ := params["type"].(string); t != "object" {
			c.logger.Errorf("Schema validation: tool %q parameters type is %v, want object", s.Function.Name, params["type"])
			return false
		}
		props, ok := params["properties"].(map[string]interface{})
		if !ok {
			c.logger.Errorf("Schema validation: tool %q has no properties map", s.Function.Name)
			return false
		}
		required, ok := requiredNames(params["required"])
		if !ok {
			c.logger.Errorf("Schema validation: tool %q has no required list", s.Function.Name)
			return false
		}
		for _, name := range required {
			if _, exists := props[name]; !exists {
				c.logger.Errorf("Schema validation: tool %q requires %q which is not in properties", s.Function.Name, name)
				return false
			}
		}
	}
	return true
}

// requiredNames normalizes a schema's required field to a string slice. The
// second return is false when the field is absent or not a list of strings.
func requiredNames(raw interface{}) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, name)
		}
		return out, true
	default:
		return nil, false
	}
}
