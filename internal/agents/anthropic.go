package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/pkg/utils"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	anthropicVersion        = "2023-06-01"
	anthropicTimeout        = 2 * time.Minute
)

// AnthropicProvider backs the session loop with the Anthropic messages
// API. The wire format differs enough from the conversation model that
// both directions go through an explicit translation.
type AnthropicProvider struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
	logger    zerolog.Logger
}

// NewAnthropicProvider creates an Anthropic provider. An empty baseURL
// selects the public API endpoint.
func NewAnthropicProvider(baseURL, apiKey, model string, maxTokens int, logger zerolog.Logger) *AnthropicProvider {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		http:      &http.Client{Timeout: anthropicTimeout},
		logger:    logger.With().Str("component", "anthropic").Logger(),
	}
}

// Name identifies the backend.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

// anthropicBlock is a content block of any of the kinds the loop uses:
// text, tool_use and tool_result.
type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends the conversation and returns the model's next turn,
// retrying transient failures.
func (p *AnthropicProvider) Chat(ctx context.Context, conv []Message, specs []ToolSpec) (*ModelResponse, error) {
	body, err := json.Marshal(p.buildRequest(conv, specs))
	if err != nil {
		return nil, fmt.Errorf("encode messages request: %w", err)
	}

	return utils.RetryWithResult(ctx, chatRetryConfig(), func() (*ModelResponse, error) {
		return p.chatOnce(ctx, body)
	})
}

func (p *AnthropicProvider) buildRequest(conv []Message, specs []ToolSpec) anthropicRequest {
	req := anthropicRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
	}

	var system []string
	for _, m := range conv {
		switch m.Role {
		case RoleSystem:
			// The messages API takes system text as a top-level field.
			system = append(system, m.Text)
		case RoleUser:
			req.Messages = append(req.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicBlock{{Type: "text", Text: m.Text}},
			})
		case RoleAssistant:
			var blocks []anthropicBlock
			if m.Text != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: m.Text})
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropicBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Arguments,
				})
			}
			req.Messages = append(req.Messages, anthropicMessage{Role: "assistant", Content: blocks})
		case RoleToolResult:
			// Tool results ride in a user-role message.
			req.Messages = append(req.Messages, anthropicMessage{
				Role: "user",
				Content: []anthropicBlock{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Text,
				}},
			})
		}
	}
	req.System = strings.Join(system, "\n\n")

	for _, s := range specs {
		req.Tools = append(req.Tools, anthropicTool{
			Name:        s.Name,
			Description: s.Description,
			InputSchema: s.Parameters,
		})
	}

	return req
}

func (p *AnthropicProvider) chatOnce(ctx context.Context, body []byte) (*ModelResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewProviderError("anthropic", 0, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError("anthropic", 0, "messages request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError("anthropic", 0, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		var eb anthropicErrorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error.Message != "" {
			msg = eb.Error.Message
		}
		return nil, apperrors.NewProviderError("anthropic", resp.StatusCode, msg, nil)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperrors.NewProviderError("anthropic", 0, "decode response", err)
	}

	out := &ModelResponse{Termination: TerminationStop}
	var text strings.Builder
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	out.Text = text.String()

	// The backend's stated stop reason is ignored whenever tool calls
	// are present; the loop must dispatch them.
	if len(out.ToolCalls) > 0 {
		out.Termination = TerminationToolCalls
	}

	p.logger.Debug().
		Str("model", p.model).
		Str("stop_reason", parsed.StopReason).
		Int("tool_calls", len(out.ToolCalls)).
		Dur("duration", time.Since(start)).
		Msg("messages completion")

	return out, nil
}
