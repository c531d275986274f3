// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"encoding/json"
	"fmt"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/errors"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// extractParams extracts parameters from a tool request
func extractParams(request *mcp.CallToolRequest, params interface{}) error {
	if len(request.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(request.Params.Arguments, params); err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid parameters: %v", err))
	}
	return nil
}

// extractCompoundIDParam extracts the compound ID parameter from a request
func extractCompoundIDParam(request *mcp.CallToolRequest) (string, error) {
	var params CompoundIDParams
	if err := extractParams(request, &params); err != nil {
		return "", err
	}

	if params.ID == "" {
		return "", errors.InvalidInput("compound ID is required")
	}

	return params.ID, nil
}

// extractReactionIDParam extracts the reaction ID parameter from a request
func extractReactionIDParam(request *mcp.CallToolRequest) (string, error) {
	var params ReactionIDParams
	if err := extractParams(request, &params); err != nil {
		return "", err
	}

	if params.ID == "" {
		return "", errors.InvalidInput("reaction ID is required")
	}

	return params.ID, nil
}

// extractMediaIDParam extracts the media ID parameter from a request
func extractMediaIDParam(request *mcp.CallToolRequest) (string, error) {
	var params MediaIDParams
	if err := extractParams(request, &params); err != nil {
		return "", err
	}

	if params.ID == "" {
		return "", errors.InvalidInput("media ID is required")
	}

	return params.ID, nil
}

// extractModelIDParam extracts the model ID parameter from a request
func extractModelIDParam(request *mcp.CallToolRequest) (string, error) {
	var params ModelIDParams
	if err := extractParams(request, &params); err != nil {
		return "", err
	}

	if params.ID == "" {
		return "", errors.InvalidInput("model ID is required")
	}

	return params.ID, nil
}

// createSuccessResponse creates a success response
func createSuccessResponse(message string) (*mcp.CallToolResult, error) {
	return createJSONResponse(map[string]interface{}{
		"success": true,
		"message": message,
	})
}

// createErrorResponse creates an error response
func createErrorResponse(err error) (*mcp.CallToolResult, error) {
	// Always return the original error as the second return value
	// This ensures MCP protocol error handling works correctly
	return nil, err
}

// createJSONResponse marshals any value into a text-content tool result
func createJSONResponse(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to marshal response: %w", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: string(data),
			},
		},
	}, nil
}

// createSolutionResponse creates a response for an FBA solution, annotated
// with the derived growth verdict.
func createSolutionResponse(sol *model.FBASolution) (*mcp.CallToolResult, error) {
	return createJSONResponse(struct {
		*model.FBASolution
		Growing bool `json:"growing"`
	}{sol, sol.Growing()})
}
