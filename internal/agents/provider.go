package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/pkg/utils"
)

// Termination is the reason a backend finished its turn.
type Termination string

const (
	// TerminationStop means the model produced a final answer.
	TerminationStop Termination = "stop"
	// TerminationToolCalls means the model requested tool executions.
	TerminationToolCalls Termination = "tool_calls"
)

// ModelResponse is one backend turn.
type ModelResponse struct {
	Text        string
	ToolCalls   []ToolCall
	Termination Termination
}

// Provider is a chat backend able to drive the tool-calling loop.
type Provider interface {
	// Name identifies the backend in logs and errors.
	Name() string
	// Chat sends the full conversation and the advertised tool surface
	// and returns the model's next turn.
	Chat(ctx context.Context, conv []Message, specs []ToolSpec) (*ModelResponse, error)
}

const providerMaxAttempts = 5

// chatRetryConfig doubles the delay each attempt: 1s, 2s, 4s, 8s.
func chatRetryConfig() utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:   providerMaxAttempts,
		InitialDelay:  time.Second,
		MaxDelay:      16 * time.Second,
		BackoffFactor: 2.0,
		ShouldRetry:   retryableProviderError,
	}
}

// retryableProviderError retries rate limits, server errors and
// transport failures; everything else is permanent.
func retryableProviderError(err error) bool {
	var pe *apperrors.ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// NewProvider builds the backend selected in the agent config.
func NewProvider(cfg *config.Config, logger zerolog.Logger) (Provider, error) {
	apiKey, err := cfg.ProviderAPIKey()
	if err != nil {
		return nil, err
	}

	switch cfg.Agents.Provider {
	case "openai":
		return NewOpenAIProvider(apiKey, cfg.Agents.Model, cfg.Agents.MaxTokens, logger), nil
	case "anthropic":
		return NewAnthropicProvider("", apiKey, cfg.Agents.Model, cfg.Agents.MaxTokens, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", cfg.Agents.Provider, apperrors.ErrConfigInvalid)
	}
}
