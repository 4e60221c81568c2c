package agents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/pkg/utils"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIProvider backs the session loop with OpenAI chat completions.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    zerolog.Logger
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens int, logger zerolog.Logger) *OpenAIProvider {
	return NewOpenAIProviderAt("", apiKey, model, maxTokens, logger)
}

// NewOpenAIProviderAt creates a provider against a custom API base URL.
// Tests point this at a local server.
func NewOpenAIProviderAt(baseURL, apiKey, model string, maxTokens int, logger zerolog.Logger) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With().Str("component", "openai").Logger(),
	}
}

// Name identifies the backend.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Chat sends the conversation and returns the model's next turn,
// retrying transient failures.
func (p *OpenAIProvider) Chat(ctx context.Context, conv []Message, specs []ToolSpec) (*ModelResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  toOpenAIMessages(conv),
		Tools:     toOpenAITools(specs),
		MaxTokens: p.maxTokens,
	}

	return utils.RetryWithResult(ctx, chatRetryConfig(), func() (*ModelResponse, error) {
		return p.chatOnce(ctx, req)
	})
}

func (p *OpenAIProvider) chatOnce(ctx context.Context, req openai.ChatCompletionRequest) (*ModelResponse, error) {
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, apperrors.NewProviderError("openai", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return nil, apperrors.NewProviderError("openai", 0, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewProviderError("openai", 0, "empty choice list", nil)
	}

	choice := resp.Choices[0]
	out := &ModelResponse{
		Text:        choice.Message.Content,
		Termination: TerminationStop,
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	if len(out.ToolCalls) > 0 {
		out.Termination = TerminationToolCalls
	}

	p.logger.Debug().
		Str("model", p.model).
		Int("tool_calls", len(out.ToolCalls)).
		Dur("duration", time.Since(start)).
		Msg("chat completion")

	return out, nil
}

func toOpenAIMessages(conv []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Text})
		case RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Text})
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Text}
			for _, call := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
			out = append(out, msg)
		case RoleToolResult:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Text,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

func toOpenAITools(specs []ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return tools
}
