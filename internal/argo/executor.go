// SPDX-License-Identifier: AGPL-3.0-only
package argo

import (
	"context"
	"fmt"
)

// UnknownToolError reports a tool name that is not in the loaded registry;
// typically the backend hallucinated or used a stale name.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// ToolExecutor resolves tool names against the loaded registry and invokes
// them. Whether the underlying tool blocks or runs asynchronously on the
// server side is hidden behind the registry's single context-aware call.
type ToolExecutor struct {
	registry ToolRegistry
	known    map[string]bool
}

// NewToolExecutor creates an executor limited to the given known tool names.
func NewToolExecutor(registry ToolRegistry, known []string) *ToolExecutor {
	names := make(map[string]bool, len(known))
	for _, n := range known {
		names[n] = true
	}
	return &ToolExecutor{registry: registry, known: names}
}

// Execute invokes a tool with the model-supplied arguments. An unregistered
// name returns *UnknownToolError; any other failure is the tool's own error.
func (e *ToolExecutor) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	if !e.known[name] {
		return nil, &UnknownToolError{Name: name}
	}
	return e.registry.CallTool(ctx, name, args)
}
