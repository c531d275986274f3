// SPDX-License-Identifier: AGPL-3.0-only
package argo

import "context"

// ToolCall represents a single tool invocation requested by the model. The
// Arguments field carries the raw JSON-encoded argument object exactly as the
// backend produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is a provider-agnostic chat message. The conversation history owned
// by the Client is an ordered sequence of these.
type Message struct {
	Role       string     // "system", "user", "assistant" or "tool"
	Content    string     // text content
	ToolCalls  []ToolCall // tool calls requested by the assistant
	ToolCallID string     // set when Role == "tool" to correlate with a ToolCall
}

// CompletionRequest is one outbound chat request. Exactly one of Temperature
// or TopP must be set; the Argo gateway rejects requests carrying both.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Tools       []ConvertedToolSchema
	MaxTokens   int
	Temperature *float64
	TopP        *float64
}

// ChatProvider abstracts a chat-completion backend so the orchestration loop
// can work with any LLM provider.
type ChatProvider interface {
	// CreateCompletion sends one chat completion request and returns the
	// assistant's response message.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*Message, error)
}
