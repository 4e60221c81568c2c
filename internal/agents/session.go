package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	"polymarket-trader/internal/logging"
)

// SessionState is the loop state of a trading session.
type SessionState string

const (
	StateInit          SessionState = "INIT"
	StateAwaitModel    SessionState = "AWAIT_MODEL"
	StateDispatchTools SessionState = "DISPATCH_TOOLS"
	StateDone          SessionState = "DONE"
	StateAborted       SessionState = "ABORTED"
)

// Dispatcher executes tool calls and describes the available tools.
type Dispatcher interface {
	Specs() []ToolSpec
	Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Session drives one model-guided trading run. The loop alternates
// between asking the model for its next move and dispatching the tool
// calls it requested, until the model stops on its own or the
// iteration budget runs out.
type Session struct {
	provider Provider
	tools    Dispatcher
	cfg      *config.Config
	logger   zerolog.Logger
	delay    time.Duration

	mu    sync.RWMutex
	state SessionState
}

// SessionSummary reports what one session run did. Transcript holds
// the full conversation for journaling and display.
type SessionSummary struct {
	ID         string
	State      SessionState
	Iterations int
	ToolCalls  int
	FinalText  string
	Transcript []Message
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewSession creates a session over a provider and a tool dispatcher.
func NewSession(provider Provider, tools Dispatcher, cfg *config.Config, logger zerolog.Logger) *Session {
	return &Session{
		provider: provider,
		tools:    tools,
		cfg:      cfg,
		logger:   logging.WithAgent(logger, "session"),
		delay:    time.Second,
		state:    StateInit,
	}
}

// State returns the current loop state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes the session loop. Budget exhaustion is a normal ending,
// not an error; only a provider giving up for good aborts the session.
func (s *Session) Run(ctx context.Context) (*SessionSummary, error) {
	summary := &SessionSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	conv := []Message{
		SystemMessage(systemPrompt(time.Now())),
		UserMessage(kickoffMessage),
	}
	specs := s.tools.Specs()
	maxIterations := s.cfg.Agents.MaxIterations

	s.logger.Info().
		Str("session_id", summary.ID).
		Str("provider", s.provider.Name()).
		Int("max_iterations", maxIterations).
		Bool("dry_run", s.cfg.IsDryRun()).
		Msg("Trading session started")

	defer func() {
		summary.State = s.State()
		summary.Transcript = conv
		summary.FinishedAt = time.Now()
	}()

	for {
		if summary.Iterations >= maxIterations {
			s.setState(StateDone)
			summary.FinalText = lastAssistantText(conv)
			s.logger.Info().
				Int("iterations", summary.Iterations).
				Int("tool_calls", summary.ToolCalls).
				Msg("Iteration budget reached")
			return summary, nil
		}
		summary.Iterations++

		s.setState(StateAwaitModel)
		resp, err := s.provider.Chat(ctx, conv, specs)
		if err != nil {
			s.setState(StateAborted)
			s.logger.Error().
				Err(err).
				Int("iteration", summary.Iterations).
				Msg("Provider failed")
			return summary, fmt.Errorf("provider %s: %w", s.provider.Name(), err)
		}

		conv = append(conv, AssistantMessage(resp.Text, resp.ToolCalls))

		if resp.Termination == TerminationStop {
			s.setState(StateDone)
			summary.FinalText = resp.Text
			s.logger.Info().
				Int("iterations", summary.Iterations).
				Int("tool_calls", summary.ToolCalls).
				Msg("Session complete")
			return summary, nil
		}

		s.setState(StateDispatchTools)
		for _, call := range resp.ToolCalls {
			start := time.Now()
			payload, dispatchErr := s.tools.Dispatch(ctx, call.Name, call.Arguments)
			logging.LogToolCall(s.logger, call.Name, time.Since(start), dispatchErr)
			conv = append(conv, ToolResultMessage(call.ID, payload))
			summary.ToolCalls++
		}

		if err := s.pause(ctx); err != nil {
			s.setState(StateAborted)
			return summary, err
		}
	}
}

// pause separates iterations so the loop cannot hammer the venue or
// the model backend.
func (s *Session) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
		return nil
	}
}

func lastAssistantText(conv []Message) string {
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == RoleAssistant && conv[i].Text != "" {
			return conv[i].Text
		}
	}
	return ""
}
