// SPDX-License-Identifier: AGPL-3.0-only
package argo

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolRegistry abstracts where tools live and how they are invoked. The
// production implementation talks to the gem-flux MCP server; tests use an
// in-memory fake.
type ToolRegistry interface {
	// GetTools returns the descriptors of every registered tool, keyed by
	// name.
	GetTools(ctx context.Context) (map[string]ToolDescriptor, error)
	// CallTool invokes a tool by name with keyword arguments and returns
	// its JSON-serializable result.
	CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
	// Close releases the connection to the tool host.
	Close() error
}

// MCPRegistry is a ToolRegistry backed by an MCP client session.
type MCPRegistry struct {
	session *mcp.ClientSession
	logger  *logging.Logger
}

const clientName = "argo-chat"

// ConnectCommand spawns the given server command and connects to it over
// stdio.
func ConnectCommand(ctx context.Context, command string, args []string, logger *logging.Logger) (*MCPRegistry, error) {
	tp := &mcp.CommandTransport{Command: exec.Command(command, args...)}
	return connect(ctx, tp, logger)
}

// ConnectSSE connects to a running server over SSE at the given endpoint.
func ConnectSSE(ctx context.Context, url string, logger *logging.Logger) (*MCPRegistry, error) {
	tp := &mcp.SSEClientTransport{Endpoint: url}
	return connect(ctx, tp, logger)
}

// ConnectTransport connects over an arbitrary transport. Used by tests with
// in-memory transports.
func ConnectTransport(ctx context.Context, tp mcp.Transport, logger *logging.Logger) (*MCPRegistry, error) {
	return connect(ctx, tp, logger)
}

func connect(ctx context.Context, tp mcp.Transport, logger *logging.Logger) (*MCPRegistry, error) {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	cli := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: "1.0.0"}, nil)
	session, err := cli.Connect(ctx, tp, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to tool server: %w", err)
	}
	return &MCPRegistry{session: session, logger: logger}, nil
}

// GetTools lists the server's tools and converts each input schema into the
// descriptor map form. A tool whose schema cannot be decoded is logged and
// skipped.
func (r *MCPRegistry) GetTools(ctx context.Context) (map[string]ToolDescriptor, error) {
	resp, err := r.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	out := make(map[string]ToolDescriptor, len(resp.Tools))
	for _, tl := range resp.Tools {
		var schema map[string]interface{}
		if tl.InputSchema != nil {
			raw, err := json.Marshal(tl.InputSchema)
			if err != nil {
				r.logger.Warnf("Failed to marshal input schema for tool %s: %v", tl.Name, err)
				continue
			}
			if err := json.Unmarshal(raw, &schema); err != nil {
				r.logger.Warnf("Failed to decode input schema for tool %s: %v", tl.Name, err)
				continue
			}
		}
		out[tl.Name] = ToolDescriptor{
			Name:        tl.Name,
			Description: tl.Description,
			InputSchema: schema,
		}
	}
	return out, nil
}

// CallTool invokes a tool on the server and flattens the response content to
// a single JSON string.
func (r *MCPRegistry) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	res, err := r.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("tool %s failed: %s", name, flattenContent(res.Content))
	}
	return flattenContent(res.Content), nil
}

// Close disconnects the client session.
func (r *MCPRegistry) Close() error {
	return r.session.Close()
}

func flattenContent(content []mcp.Content) string {
	if len(content) == 1 {
		if text, ok := content[0].(*mcp.TextContent); ok {
			return text.Text
		}
	}
	out, _ := json.Marshal(content)
	return string(out)
}
