// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"reflect"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition represents a tool that can be registered with the MCP server
type ToolDefinition struct {
	// Name is the name of the tool
	Name string

	// Description is a brief description of what the tool does
	Description string

	// Handler is the function that will be called when the tool is invoked
	Handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

	// Parameters is the parameter schema for the tool (can be a struct)
	Parameters interface{}
}

// registerToolsDeclarative sets up all the MCP tools using a more declarative approach
func (s *MCPServer) registerToolsDeclarative() {
	// Define all the tools in one place
	tools := []ToolDefinition{
		{
			Name:        "get_compound_info",
			Description: "Gets the full record (name, formula, charge, aliases) for a ModelSEED compound ID",
			Handler:     s.handleGetCompoundInfo,
			Parameters:  CompoundIDParams{},
		},
		{
			Name:        "get_compound_name",
			Description: "Resolves a ModelSEED compound ID to its primary name",
			Handler:     s.handleGetCompoundName,
			Parameters:  CompoundIDParams{},
		},
		{
			Name:        "get_reaction_info",
			Description: "Gets the full record (name, equation, reversibility) for a ModelSEED reaction ID",
			Handler:     s.handleGetReactionInfo,
			Parameters:  ReactionIDParams{},
		},
		{
			Name:        "get_reaction_name",
			Description: "Resolves a ModelSEED reaction ID to its primary name",
			Handler:     s.handleGetReactionName,
			Parameters:  ReactionIDParams{},
		},
		{
			Name:        "search_compounds",
			Description: "Searches compounds by name or alias substring. Requires 'query'; 'limit' caps the result count.",
			Handler:     s.handleSearchCompounds,
			Parameters:  SearchParams{},
		},
		{
			Name:        "search_reactions",
			Description: "Searches reactions by name substring. Requires 'query'; 'limit' caps the result count.",
			Handler:     s.handleSearchReactions,
			Parameters:  SearchParams{},
		},
		{
			Name:        "build_media",
			Description: "Builds a growth media from ModelSEED compound IDs with default uptake bounds. Requires 'id' and 'compounds'.",
			Handler:     s.handleBuildMedia,
			Parameters:  BuildMediaParams{},
		},
		{
			Name:        "get_media",
			Description: "Gets a stored media by ID, including its compounds and uptake bounds",
			Handler:     s.handleGetMedia,
			Parameters:  MediaIDParams{},
		},
		{
			Name:        "list_media",
			Description: "Lists the IDs of all stored media",
			Handler:     s.handleListMedia,
			Parameters:  struct{}{},
		},
		{
			Name:        "delete_media",
			Description: "Permanently removes a stored media by ID",
			Handler:     s.handleDeleteMedia,
			Parameters:  MediaIDParams{},
		},
		{
			Name:        "build_model",
			Description: "Reconstructs a draft metabolic model for a genome from a template. Requires 'genome_id'; 'template' defaults to gram_negative.",
			Handler:     s.handleBuildModel,
			Parameters:  BuildModelParams{},
		},
		{
			Name:        "get_model_info",
			Description: "Gets a stored metabolic model by ID, including its reactions and gapfill status",
			Handler:     s.handleGetModelInfo,
			Parameters:  ModelIDParams{},
		},
		{
			Name:        "list_models",
			Description: "Lists the IDs of all stored metabolic models",
			Handler:     s.handleListModels,
			Parameters:  struct{}{},
		},
		{
			Name:        "delete_model",
			Description: "Permanently removes a stored metabolic model by ID",
			Handler:     s.handleDeleteModel,
			Parameters:  ModelIDParams{},
		},
		{
			Name:        "gapfill_model",
			Description: "Gapfills a stored model so it can grow on a stored media, adding missing transport reactions. Requires 'model_id' and 'media_id'.",
			Handler:     s.handleGapfillModel,
			Parameters:  GapfillParams{},
		},
		{
			Name:        "run_fba",
			Description: "Runs flux balance analysis for a stored model on a stored media and reports the objective value, growth status and fluxes. Requires 'model_id' and 'media_id'.",
			Handler:     s.handleRunFBA,
			Parameters:  RunFBAParams{},
		},
	}

	// Register all the tools
	for _, tool := range tools {
		registerToolWithError(s.server, tool)
	}
}

// registerToolWithError registers a tool with the MCP server
func registerToolWithError(srv *mcp.Server, def ToolDefinition) {
	schema := buildSchema(def.Parameters)
	tool := &mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema,
	}
	srv.AddTool(tool, def.Handler)
}

// buildSchema converts a Go struct with json and description tags into a JSON Schema object
func buildSchema(params interface{}) map[string]interface{} {
	t := reflect.TypeOf(params)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := map[string]interface{}{}
	var required []string

	collectFields(t, properties, &required)

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// collectFields extracts JSON schema properties from struct fields,
// recursing into embedded (anonymous) structs.
func collectFields(t reflect.Type, properties map[string]interface{}, required *[]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Recurse into embedded structs
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, properties, required)
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}

		// Parse json tag to get field name and options
		parts := strings.Split(jsonTag, ",")
		fieldName := parts[0]
		omitempty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitempty = true
			}
		}

		prop := map[string]interface{}{
			"type": goTypeToJSONType(field.Type),
		}
		if field.Type.Kind() == reflect.Slice {
			prop["items"] = map[string]interface{}{
				"type": goTypeToJSONType(field.Type.Elem()),
			}
		}

		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}

		properties[fieldName] = prop

		if !omitempty {
			*required = append(*required, fieldName)
		}
	}
}

// goTypeToJSONType maps Go types to JSON Schema types
func goTypeToJSONType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "string"
	}
}
