// SPDX-License-Identifier: AGPL-3.0-only
package argo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/config"
	"github.com/jplfaria/gem-flux-mcp-sub000/internal/logging"
)

// ErrNotInitialized is returned by Chat when Initialize has not been called.
var ErrNotInitialized = errors.New("argo client not initialized: call Initialize first")

// ErrInvalidToolSchemas aborts Initialize when the converted tool schemas
// fail validation; serving broken schemas would make every subsequent chat
// request fail opaquely at the backend.
var ErrInvalidToolSchemas = errors.New("converted tool schemas failed validation")

// budgetExhaustedMessage is returned when the round budget runs out before
// the backend produces a tool-call-free turn.
const budgetExhaustedMessage = "I reached the maximum number of tool calls for this request. " +
	"Please break your request into smaller steps and try again."

// Client drives the bounded multi-round tool-calling protocol for a single
// logical conversation: it narrows the tool set per user turn, sends the
// conversation plus the selected tool schemas to the chat backend, executes
// any requested tool calls, and loops until the backend answers in plain text
// or the round budget runs out.
//
// A Client owns its conversation history exclusively. Concurrent Chat calls
// on the same instance are out of contract; use one Client per conversation.
type Client struct {
	cfg       config.ArgoConfig
	provider  ChatProvider
	registry  ToolRegistry
	converter *SchemaConverter
	selector  *ToolSelector
	executor  *ToolExecutor
	logger    *logging.Logger

	schemas     map[string]ConvertedToolSchema
	toolNames   []string
	history     []Message
	initialized bool
}

// NewClient creates a client over the given provider and registry. Call
// Initialize before Chat.
func NewClient(cfg config.ArgoConfig, provider ChatProvider, registry ToolRegistry, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Client{
		cfg:       cfg,
		provider:  provider,
		registry:  registry,
		converter: NewSchemaConverter(nil, logger),
		selector:  NewToolSelector(cfg.MaxTools, nil),
		logger:    logger,
	}
}

// Initialize loads the tool registry, converts every descriptor to the
// backend's schema dialect, and validates the batch. A validation failure is
// fatal: the client stays unusable until the registry is fixed.
func (c *Client) Initialize(ctx context.Context) error {
	descriptors, err := c.registry.GetTools(ctx)
	if err != nil {
		return fmt.Errorf("load tool registry: %w", err)
	}

	converted := c.converter.ConvertAll(descriptors)
	if !c.converter.Validate(converted) {
		return ErrInvalidToolSchemas
	}

	c.schemas = make(map[string]ConvertedToolSchema, len(converted))
	c.toolNames = make([]string, 0, len(converted))
	for _, s := range converted {
		c.schemas[s.Function.Name] = s
		c.toolNames = append(c.toolNames, s.Function.Name)
	}
	sort.Strings(c.toolNames)

	c.executor = NewToolExecutor(c.registry, c.toolNames)
	c.initialized = true

	c.logger.Infof("Argo client initialized with %d tools", len(c.toolNames))
	return nil
}

// Chat sends one user message and runs the tool-calling loop until the
// backend answers without tool calls or the round budget is exhausted.
//
// systemPrompt seeds the conversation when the history is empty; an empty
// string uses the default prompt. resetHistory discards prior turns first.
//
// Tool-execution failures never surface as errors here: they are converted
// to structured error payloads and fed back to the backend so it can adapt.
// Returned errors indicate backend transport failures or the uninitialized
// precondition.
func (c *Client) Chat(ctx context.Context, message, systemPrompt string, resetHistory bool) (string, error) {
	if !c.initialized {
		return "", ErrNotInitialized
	}

	if resetHistory {
		c.history = nil
	}
	if len(c.history) == 0 {
		prompt := systemPrompt
		if prompt == "" {
			prompt = c.defaultSystemPrompt()
		}
		c.history = append(c.history, Message{Role: "system", Content: prompt})
	}
	c.history = append(c.history, Message{Role: "user", Content: message})

	// Relevance is evaluated once against the original incoming message, not
	// the accumulated history, keeping selection stable across the rounds
	// this one user turn triggers.
	available := make(map[string]bool, len(c.toolNames))
	for _, name := range c.toolNames {
		available[name] = true
	}
	selected := c.selector.Select(message, available)
	tools := make([]ConvertedToolSchema, 0, len(selected))
	for _, name := range selected {
		tools = append(tools, c.schemas[name])
	}
	c.logger.Debugf("Selected %d of %d tools: %v", len(selected), len(c.toolNames), selected)

	// Every backend round trip consumes one unit of the budget, so a chat
	// call issues at most MaxToolCalls requests.
	for round := 0; round < c.cfg.MaxToolCalls; round++ {
		req := &CompletionRequest{
			Model:       c.cfg.Model,
			Messages:    c.history,
			Tools:       tools,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
			TopP:        c.cfg.TopP,
		}

		resp, err := c.provider.CreateCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("chat completion failed on round %d: %w", round+1, err)
		}

		c.history = append(c.history, *resp)

		if len(resp.ToolCalls) == 0 {
			c.logger.Debugf("Chat converged after %d rounds", round+1)
			return resp.Content, nil
		}

		// Execute the requested tool calls sequentially, in backend order.
		// Later calls in a round may depend on the effects of earlier ones.
		for _, call := range resp.ToolCalls {
			payload := c.executeToolCall(ctx, call)
			c.history = append(c.history, Message{
				Role:       "tool",
				Content:    payload,
				ToolCallID: call.ID,
			})
		}
	}

	c.logger.Warnf("Chat exhausted the round budget (%d)", c.cfg.MaxToolCalls)
	return budgetExhaustedMessage, nil
}

// executeToolCall runs one requested tool invocation and always produces a
// payload: a success result or a structured {"error": ...} object. Failures
// become visible feedback for the backend instead of aborting the
// conversation.
func (c *Client) executeToolCall(ctx context.Context, call ToolCall) string {
	c.logger.Debugf("Executing tool call %s: %s", call.ID, call.Name)

	var args map[string]interface{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errorPayload(fmt.Sprintf("failed to parse arguments: %v", err))
		}
	}

	result, err := c.executor.Execute(ctx, call.Name, args)
	if err != nil {
		c.logger.Warnf("Tool call %s (%s) failed: %v", call.ID, call.Name, err)
		return errorPayload(err.Error())
	}

	switch v := result.(type) {
	case string:
		return v
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return errorPayload(fmt.Sprintf("failed to encode result: %v", err))
		}
		return string(out)
	}
}

func errorPayload(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return string(out)
}

// defaultSystemPrompt enumerates the available tools and states the operating
// rules for the assistant.
func (c *Client) defaultSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a metabolic modeling assistant. ")
	b.WriteString("You must use the provided tools to look up biochemistry data, build media and models, and run analyses. ")
	b.WriteString("Never answer from memory when a tool can provide the answer.\n\n")
	b.WriteString("Available tools: ")
	b.WriteString(strings.Join(c.toolNames, ", "))
	return b.String()
}

// ResetConversation clears the conversation history unconditionally.
func (c *Client) ResetConversation() {
	c.history = nil
}

// ConversationHistory returns a copy of the conversation so far; mutating the
// returned slice does not affect the client's state.
func (c *Client) ConversationHistory() []Message {
	out := make([]Message, len(c.history))
	for i, m := range c.history {
		out[i] = m
		if len(m.ToolCalls) > 0 {
			out[i].ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		}
	}
	return out
}

// AvailableTools returns the sorted names of the loaded tools.
func (c *Client) AvailableTools() []string {
	return append([]string(nil), c.toolNames...)
}
