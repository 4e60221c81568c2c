package agents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	apperrors "polymarket-trader/internal/errors"
)

type anthropicWireRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type      string          `json:"type"`
			Text      string          `json:"text"`
			ID        string          `json:"id"`
			Name      string          `json:"name"`
			Input     json.RawMessage `json:"input"`
			ToolUseID string          `json:"tool_use_id"`
			Content   string          `json:"content"`
		} `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"input_schema"`
	} `json:"tools"`
}

func anthropicTextResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]interface{}{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
	}
}

func TestAnthropicTranslatesConversation(t *testing.T) {
	var captured anthropicWireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicTextResponse("done"))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "test-key", "claude-3-5-sonnet-20241022", 4096, zerolog.Nop())
	conv := []Message{
		SystemMessage("policy line one"),
		SystemMessage("policy line two"),
		UserMessage("go"),
		AssistantMessage("checking the balance", []ToolCall{
			{ID: "toolu_1", Name: "get_available_funds", Arguments: json.RawMessage(`{}`)},
		}),
		ToolResultMessage("toolu_1", `{"balance_usd": 50}`),
	}

	resp, err := p.Chat(context.Background(), conv, testSpecs())
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Text != "done" || resp.Termination != TerminationStop {
		t.Errorf("resp = %+v", resp)
	}

	// System turns ride in the top-level field, not the message list.
	if captured.System != "policy line one\n\npolicy line two" {
		t.Errorf("system = %q", captured.System)
	}
	if len(captured.Messages) != 3 {
		t.Fatalf("wire messages = %d, want 3 (system hoisted out)", len(captured.Messages))
	}

	user := captured.Messages[0]
	if user.Role != "user" || user.Content[0].Type != "text" || user.Content[0].Text != "go" {
		t.Errorf("user message = %+v", user)
	}

	assistant := captured.Messages[1]
	if assistant.Role != "assistant" {
		t.Errorf("assistant role = %s", assistant.Role)
	}
	if len(assistant.Content) != 2 {
		t.Fatalf("assistant blocks = %d, want text + tool_use", len(assistant.Content))
	}
	if assistant.Content[0].Type != "text" || assistant.Content[0].Text != "checking the balance" {
		t.Errorf("assistant text block = %+v", assistant.Content[0])
	}
	toolUse := assistant.Content[1]
	if toolUse.Type != "tool_use" || toolUse.ID != "toolu_1" || toolUse.Name != "get_available_funds" {
		t.Errorf("tool_use block = %+v", toolUse)
	}

	// Tool results come back as a user-role tool_result block.
	result := captured.Messages[2]
	if result.Role != "user" {
		t.Errorf("tool result role = %s, want user", result.Role)
	}
	if result.Content[0].Type != "tool_result" || result.Content[0].ToolUseID != "toolu_1" {
		t.Errorf("tool_result block = %+v", result.Content[0])
	}
	if result.Content[0].Content != `{"balance_usd": 50}` {
		t.Errorf("tool_result content = %q", result.Content[0].Content)
	}

	if len(captured.Tools) != 1 || captured.Tools[0].Name != "get_available_funds" {
		t.Errorf("wire tools = %+v", captured.Tools)
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(captured.Tools[0].InputSchema, &schema); err != nil {
		t.Fatalf("input_schema is not JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("input_schema type = %v", schema["type"])
	}
}

func TestAnthropicParsesToolUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":   "msg_2",
			"type": "message",
			"role": "assistant",
			"content": []map[string]interface{}{
				{"type": "text", "text": "Let me look at the leaderboard."},
				{"type": "tool_use", "id": "toolu_2", "name": "get_top_traders", "input": map[string]interface{}{"n": 5}},
			},
			"stop_reason": "tool_use",
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "test-key", "", 0, zerolog.Nop())

	resp, err := p.Chat(context.Background(), []Message{UserMessage("go")}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Text != "Let me look at the leaderboard." {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Termination != TerminationToolCalls {
		t.Errorf("termination = %s, want tool_calls", resp.Termination)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "toolu_2" || call.Name != "get_top_traders" {
		t.Errorf("call = %+v", call)
	}
	var args map[string]interface{}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		t.Fatalf("arguments are not JSON: %v", err)
	}
	if args["n"] != 5.0 {
		t.Errorf("arguments n = %v, want 5", args["n"])
	}
}

func TestAnthropicForcesToolCallTermination(t *testing.T) {
	// Some stop reasons claim the turn is over even when tool_use
	// blocks are present. The loop must still dispatch them.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "tool_use", "id": "toolu_3", "name": "get_available_funds", "input": map[string]interface{}{}},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "test-key", "", 0, zerolog.Nop())

	resp, err := p.Chat(context.Background(), []Message{UserMessage("go")}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Termination != TerminationToolCalls {
		t.Errorf("termination = %s, want tool_calls despite end_turn", resp.Termination)
	}
}

func TestAnthropicConcatenatesTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": "First part. "},
				{"type": "text", "text": "Second part."},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "test-key", "", 0, zerolog.Nop())

	resp, err := p.Chat(context.Background(), []Message{UserMessage("go")}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Text != "First part. Second part." {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Termination != TerminationStop {
		t.Errorf("termination = %s, want stop", resp.Termination)
	}
}

func TestAnthropicErrorMapping(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"type":  "error",
			"error": map[string]interface{}{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "bad-key", "", 0, zerolog.Nop())

	_, err := p.Chat(context.Background(), []Message{UserMessage("go")}, nil)
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (no retry on auth errors)", calls)
	}

	var provErr *apperrors.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %T, want *ProviderError", err)
	}
	if provErr.Provider != "anthropic" {
		t.Errorf("provider = %s", provErr.Provider)
	}
	if provErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", provErr.StatusCode)
	}
	if provErr.Message != "invalid x-api-key" {
		t.Errorf("message = %q, want the API error message", provErr.Message)
	}
}

func TestAnthropicRetriesOverloaded(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type":  "error",
				"error": map[string]interface{}{"type": "overloaded_error", "message": "overloaded"},
			})
			return
		}
		json.NewEncoder(w).Encode(anthropicTextResponse("recovered"))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(srv.URL, "test-key", "", 0, zerolog.Nop())

	resp, err := p.Chat(context.Background(), []Message{UserMessage("go")}, nil)
	if err != nil {
		t.Fatalf("Chat should succeed after the retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
	if resp.Text != "recovered" {
		t.Errorf("text = %q", resp.Text)
	}
}
