// SPDX-License-Identifier: AGPL-3.0-only
package argo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jplfaria/gem-flux-mcp-sub000/internal/config"
)

// scriptedProvider replays a fixed sequence of responses and records every
// request it receives.
type scriptedProvider struct {
	responses []*Message
	requests  []*CompletionRequest
	err       error
}

func (p *scriptedProvider) CreateCompletion(_ context.Context, req *CompletionRequest) (*Message, error) {
	// Snapshot the messages; the client mutates its history between rounds.
	snapshot := *req
	snapshot.Messages = append([]Message(nil), req.Messages...)
	p.requests = append(p.requests, &snapshot)

	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &Message{Role: "assistant", Content: "no script left"}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

// loopingProvider always requests the same tool call, never converging.
type loopingProvider struct {
	rounds int
}

func (p *loopingProvider) CreateCompletion(_ context.Context, _ *CompletionRequest) (*Message, error) {
	p.rounds++
	return &Message{
		Role: "assistant",
		ToolCalls: []ToolCall{
			{ID: fmt.Sprintf("call_%d", p.rounds), Name: "get_compound_name", Arguments: `{"id":"cpd00027"}`},
		},
	}, nil
}

func testDescriptors() map[string]ToolDescriptor {
	simple := func(name string) ToolDescriptor {
		return ToolDescriptor{
			Name:        name,
			Description: "Tool " + name,
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"id"},
			},
		}
	}
	out := map[string]ToolDescriptor{}
	for _, name := range []string{
		"get_compound_name", "get_reaction_name", "search_compounds", "search_reactions",
		"build_media", "list_media", "build_model", "run_fba", "gapfill_model", "flaky_tool",
	} {
		out[name] = simple(name)
	}
	return out
}

func testArgoConfig() config.ArgoConfig {
	cfg := config.DefaultConfig().Argo
	cfg.Model = "gpt-4o"
	return cfg
}

func newTestClient(t *testing.T, provider ChatProvider, reg ToolRegistry, cfg config.ArgoConfig) *Client {
	t.Helper()
	c := NewClient(cfg, provider, reg, nil)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func TestChatBeforeInitialize(t *testing.T) {
	c := NewClient(testArgoConfig(), &scriptedProvider{}, &fakeRegistry{descriptors: testDescriptors()}, nil)

	_, err := c.Chat(context.Background(), "hello", "", false)
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestInitializeFailsOnRegistryError(t *testing.T) {
	reg := &fakeRegistry{getToolsErr: fmt.Errorf("connection refused")}
	c := NewClient(testArgoConfig(), &scriptedProvider{}, reg, nil)

	if err := c.Initialize(context.Background()); err == nil {
		t.Fatal("expected error when registry load fails, got nil")
	}
}

func TestChatSimpleAnswer(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{
			{Role: "assistant", Content: "Glucose is cpd00027."},
		},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())

	answer, err := c.Chat(context.Background(), "what is the id of glucose?", "", false)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "Glucose is cpd00027." {
		t.Errorf("answer = %q", answer)
	}

	history := c.ConversationHistory()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3 (system, user, assistant)", len(history))
	}
	if history[0].Role != "system" {
		t.Errorf("history[0].Role = %q, want system", history[0].Role)
	}
	if history[1].Role != "user" || history[1].Content != "what is the id of glucose?" {
		t.Errorf("history[1] = %+v", history[1])
	}
}

func TestChatDefaultSystemPromptListsTools(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{{Role: "assistant", Content: "ok"}},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())

	if _, err := c.Chat(context.Background(), "hi", "", false); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	system := c.ConversationHistory()[0].Content
	if !strings.Contains(system, "run_fba") || !strings.Contains(system, "build_media") {
		t.Errorf("default system prompt should enumerate tool names, got %q", system)
	}
}

func TestChatExecutesToolCallsInOrder(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{
			{
				Role: "assistant",
				ToolCalls: []ToolCall{
					{ID: "call_1", Name: "build_media", Arguments: `{"id":"glc"}`},
					{ID: "call_2", Name: "run_fba", Arguments: `{"id":"model_1"}`},
				},
			},
			{Role: "assistant", Content: "Built media and ran FBA."},
		},
	}
	reg := &fakeRegistry{descriptors: testDescriptors()}
	c := newTestClient(t, provider, reg, testArgoConfig())

	answer, err := c.Chat(context.Background(), "build glucose media then run fba", "", false)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "Built media and ran FBA." {
		t.Errorf("answer = %q", answer)
	}

	// Registry must be called in backend order, no reordering.
	if len(reg.calls) != 2 || reg.calls[0] != "build_media" || reg.calls[1] != "run_fba" {
		t.Errorf("calls = %v, want [build_media run_fba]", reg.calls)
	}

	// Tool results appended in request order, correlated by call ID.
	history := c.ConversationHistory()
	var toolTurns []Message
	for _, m := range history {
		if m.Role == "tool" {
			toolTurns = append(toolTurns, m)
		}
	}
	if len(toolTurns) != 2 {
		t.Fatalf("got %d tool turns, want 2", len(toolTurns))
	}
	if toolTurns[0].ToolCallID != "call_1" || toolTurns[1].ToolCallID != "call_2" {
		t.Errorf("tool turn correlation: %q, %q", toolTurns[0].ToolCallID, toolTurns[1].ToolCallID)
	}
}

func TestChatBudgetExhausted(t *testing.T) {
	cfg := testArgoConfig()
	cfg.MaxToolCalls = 2

	provider := &loopingProvider{}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, cfg)

	answer, err := c.Chat(context.Background(), "anything", "", false)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != budgetExhaustedMessage {
		t.Errorf("answer = %q, want the budget-exhausted message", answer)
	}
	if provider.rounds != 2 {
		t.Errorf("backend called %d times, want exactly 2", provider.rounds)
	}

	// History: system + user + (assistant + tool) per round.
	history := c.ConversationHistory()
	var assistants, tools int
	for _, m := range history {
		switch m.Role {
		case "assistant":
			assistants++
		case "tool":
			tools++
		}
	}
	if assistants != 2 || tools != 2 {
		t.Errorf("history has %d assistant and %d tool turns, want 2 and 2", assistants, tools)
	}
	if len(history) != 6 {
		t.Errorf("history length = %d, want 6", len(history))
	}
}

func TestChatRecoversFromToolFailure(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{
			{
				Role: "assistant",
				ToolCalls: []ToolCall{
					{ID: "call_1", Name: "flaky_tool", Arguments: `{"id":"x"}`},
				},
			},
			{Role: "assistant", Content: "done"},
		},
	}
	reg := &fakeRegistry{
		descriptors: testDescriptors(),
		callFn: func(name string, _ map[string]interface{}) (interface{}, error) {
			return nil, fmt.Errorf("boom")
		},
	}
	c := newTestClient(t, provider, reg, testArgoConfig())

	answer, err := c.Chat(context.Background(), "try the flaky tool", "", false)
	if err != nil {
		t.Fatalf("Chat should not fail on tool errors: %v", err)
	}
	if answer != "done" {
		t.Errorf("answer = %q, want done", answer)
	}

	history := c.ConversationHistory()
	var toolTurn *Message
	for i := range history {
		if history[i].Role == "tool" {
			toolTurn = &history[i]
		}
	}
	if toolTurn == nil {
		t.Fatal("no tool turn in history")
	}
	if toolTurn.ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q, want call_1", toolTurn.ToolCallID)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(toolTurn.Content), &payload); err != nil {
		t.Fatalf("tool payload is not JSON: %v", err)
	}
	if payload["error"] != "boom" {
		t.Errorf(`payload = %v, want {"error":"boom"}`, payload)
	}
}

func TestChatRecoversFromUnknownToolRequest(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{
			{
				Role: "assistant",
				ToolCalls: []ToolCall{
					{ID: "call_1", Name: "summon_unicorn", Arguments: `{}`},
				},
			},
			{Role: "assistant", Content: "sorry, no such tool"},
		},
	}
	reg := &fakeRegistry{descriptors: testDescriptors()}
	c := newTestClient(t, provider, reg, testArgoConfig())

	answer, err := c.Chat(context.Background(), "do magic", "", false)
	if err != nil {
		t.Fatalf("Chat should not fail on hallucinated tool names: %v", err)
	}
	if answer != "sorry, no such tool" {
		t.Errorf("answer = %q", answer)
	}
	if len(reg.calls) != 0 {
		t.Errorf("unknown tool must not reach the registry, got %v", reg.calls)
	}

	history := c.ConversationHistory()
	found := false
	for _, m := range history {
		if m.Role == "tool" && strings.Contains(m.Content, "unknown tool") {
			found = true
		}
	}
	if !found {
		t.Error("expected an error payload mentioning the unknown tool")
	}
}

func TestChatMalformedArgumentsBecomeErrorPayload(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{
			{
				Role: "assistant",
				ToolCalls: []ToolCall{
					{ID: "call_1", Name: "run_fba", Arguments: `{not json`},
				},
			},
			{Role: "assistant", Content: "recovered"},
		},
	}
	reg := &fakeRegistry{descriptors: testDescriptors()}
	c := newTestClient(t, provider, reg, testArgoConfig())

	answer, err := c.Chat(context.Background(), "run fba", "", false)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}
	if len(reg.calls) != 0 {
		t.Errorf("unparseable arguments must not reach the registry, got %v", reg.calls)
	}
}

func TestChatResetHistory(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{
			{Role: "assistant", Content: "first"},
			{Role: "assistant", Content: "second"},
		},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())

	if _, err := c.Chat(context.Background(), "first question", "", false); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if _, err := c.Chat(context.Background(), "second question", "", true); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	// The second request must carry exactly one system and one user turn.
	req := provider.requests[1]
	if len(req.Messages) != 2 {
		t.Fatalf("request carried %d messages, want 2 (system + user)", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("roles = %q, %q; want system, user", req.Messages[0].Role, req.Messages[1].Role)
	}
	if req.Messages[1].Content != "second question" {
		t.Errorf("user content = %q", req.Messages[1].Content)
	}
}

func TestChatHistoryGrowsAcrossCalls(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{
			{Role: "assistant", Content: "first"},
			{Role: "assistant", Content: "second"},
		},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())

	_, _ = c.Chat(context.Background(), "q1", "", false)
	_, _ = c.Chat(context.Background(), "q2", "", false)

	history := c.ConversationHistory()
	// system + (user+assistant) x2
	if len(history) != 5 {
		t.Errorf("history length = %d, want 5", len(history))
	}

	c.ResetConversation()
	if len(c.ConversationHistory()) != 0 {
		t.Error("ResetConversation should clear the history")
	}
}

func TestConversationHistoryIsACopy(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{{Role: "assistant", Content: "hi"}},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())
	_, _ = c.Chat(context.Background(), "hello", "", false)

	history := c.ConversationHistory()
	history[0].Content = "tampered"

	if c.ConversationHistory()[0].Content == "tampered" {
		t.Error("mutating the returned history must not affect the client")
	}
}

func TestChatSelectionRespectsBudgetPerRequest(t *testing.T) {
	cfg := testArgoConfig()
	cfg.MaxTools = 4

	provider := &scriptedProvider{
		responses: []*Message{{Role: "assistant", Content: "ok"}},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, cfg)

	if _, err := c.Chat(context.Background(), "build media and run fba on the model", "", false); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(provider.requests))
	}
	if n := len(provider.requests[0].Tools); n > 4 {
		t.Errorf("request carried %d tool schemas, want at most 4", n)
	}
}

func TestChatPassesThroughSamplingConfig(t *testing.T) {
	cfg := testArgoConfig()
	topP := 0.9
	cfg.Temperature = nil
	cfg.TopP = &topP
	cfg.MaxTokens = 512

	provider := &scriptedProvider{
		responses: []*Message{{Role: "assistant", Content: "ok"}},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, cfg)

	if _, err := c.Chat(context.Background(), "hello", "", false); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	req := provider.requests[0]
	if req.Temperature != nil {
		t.Error("temperature should not be set when top_p is configured")
	}
	if req.TopP == nil || *req.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", req.TopP)
	}
	if req.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", req.MaxTokens)
	}
}

func TestChatPropagatesBackendError(t *testing.T) {
	provider := &scriptedProvider{err: fmt.Errorf("gateway timeout")}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())

	_, err := c.Chat(context.Background(), "hello", "", false)
	if err == nil || !strings.Contains(err.Error(), "gateway timeout") {
		t.Fatalf("err = %v, want gateway timeout", err)
	}
}

func TestChatCustomSystemPrompt(t *testing.T) {
	provider := &scriptedProvider{
		responses: []*Message{{Role: "assistant", Content: "ok"}},
	}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())

	if _, err := c.Chat(context.Background(), "hi", "You are a pirate.", false); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got := c.ConversationHistory()[0].Content; got != "You are a pirate." {
		t.Errorf("system prompt = %q", got)
	}
}

func TestAvailableToolsSorted(t *testing.T) {
	provider := &scriptedProvider{}
	c := newTestClient(t, provider, &fakeRegistry{descriptors: testDescriptors()}, testArgoConfig())

	names := c.AvailableTools()
	if len(names) != len(testDescriptors()) {
		t.Fatalf("got %d tools, want %d", len(names), len(testDescriptors()))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("tool names not sorted: %v", names)
		}
	}
}

func TestInitializeRejectsInvalidSchemas(t *testing.T) {
	// A registry descriptor whose required list references a property that
	// filtering removed entirely and that never existed.
	reg := &fakeRegistry{
		descriptors: map[string]ToolDescriptor{
			"broken": {
				Name: "broken",
				InputSchema: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
					// Converted required keeps "ghost" since it is not an
					// internal param, but properties lacks it.
					"required": []interface{}{"ghost"},
				},
			},
		},
	}
	c := NewClient(testArgoConfig(), &scriptedProvider{}, reg, nil)

	err := c.Initialize(context.Background())
	if !errors.Is(err, ErrInvalidToolSchemas) {
		t.Fatalf("err = %v, want ErrInvalidToolSchemas", err)
	}

	// The client must stay unusable.
	if _, err := c.Chat(context.Background(), "hi", "", false); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Chat after failed Initialize: err = %v, want ErrNotInitialized", err)
	}
}
