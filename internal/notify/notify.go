// Package notify pushes session events to configured channels:
// webhook, Telegram, email and the terminal.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"polymarket-trader/internal/config"
	"polymarket-trader/internal/models"
	"polymarket-trader/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendBet(ctx context.Context, pos *models.Position) error
	SendSessionSummary(ctx context.Context, report *SessionReport) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel is one delivery target.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification is one message, rendered per channel.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType classifies a notification for level filtering.
type NotificationType string

const (
	NotificationTrade   NotificationType = "trade"
	NotificationError   NotificationType = "error"
	NotificationSummary NotificationType = "summary"
	NotificationInfo    NotificationType = "info"
)

// NotificationLevel filters which notification types get delivered.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// SessionReport is the end-of-session digest pushed through the
// notifier after the decision loop finishes.
type SessionReport struct {
	SessionID   string
	Mode        string // DRY_RUN or LIVE
	State       string // DONE or ABORTED
	Iterations  int
	ToolCalls   int
	TradeCount  int
	TotalStaked float64
	Balance     float64
	Duration    time.Duration
	FinalText   string
}

// MultiNotifier fans one notification out to every enabled channel.
type MultiNotifier struct {
	mu       sync.RWMutex
	channels []NotificationChannel
	level    NotificationLevel
}

// NewMultiNotifier wires up the channels the configuration enables.
// With notifications disabled no channels are attached and every send
// is a no-op.
func NewMultiNotifier(cfg *config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{level: NotificationLevel(cfg.Level)}
	if mn.level == "" {
		mn.level = LevelAll
	}
	if !cfg.Enabled {
		return mn
	}

	if cfg.Webhook.Enabled {
		mn.AddChannel(NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.AddChannel(NewTelegramNotifier(cfg.Telegram))
	}
	if cfg.Email.Enabled {
		mn.AddChannel(NewEmailNotifier(cfg.Email))
	}
	return mn
}

// AddChannel attaches another delivery target.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	mn.channels = append(mn.channels, ch)
	mn.mu.Unlock()
}

// passes reports whether the level filter lets a type through.
func (mn *MultiNotifier) passes(t NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return t == NotificationTrade
	case LevelErrorsOnly:
		return t == NotificationError
	}
	return true
}

// Send delivers n to every enabled channel. Failures are collected
// per channel so one broken webhook does not hide a Telegram delivery.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.passes(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := append([]NotificationChannel(nil), mn.channels...)
	mn.mu.RUnlock()

	var errs []error
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// SendBet announces a placed bet, simulated or live.
func (mn *MultiNotifier) SendBet(ctx context.Context, pos *models.Position) error {
	mode := "LIVE"
	if pos.DryRun {
		mode = "DRY RUN"
	}

	message := fmt.Sprintf(
		"Market: %s\nOutcome: %s\nAmount: %s\nPrice: %.4f\nShares: %s",
		pos.MarketTitle,
		pos.Outcome,
		utils.FormatUSD(pos.AmountUSD),
		pos.Price,
		utils.FormatShares(pos.Shares),
	)
	if pos.Reasoning != "" {
		message += fmt.Sprintf("\n\nReasoning: %s", pos.Reasoning)
	}

	data := map[string]interface{}{
		"market_slug": pos.MarketSlug,
		"outcome":     pos.Outcome,
		"amount_usd":  pos.AmountUSD,
		"price":       pos.Price,
		"shares":      pos.Shares,
		"dry_run":     pos.DryRun,
	}
	if pos.OrderID != "" {
		data["order_id"] = pos.OrderID
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   fmt.Sprintf("🔔 Bet Placed [%s]: %s", mode, pos.MarketSlug),
		Message: message,
		Data:    data,
	})
}

// SendSessionSummary sends the end-of-session digest.
func (mn *MultiNotifier) SendSessionSummary(ctx context.Context, report *SessionReport) error {
	emoji := "📊"
	if report.TradeCount > 0 {
		emoji = "💰"
	}
	if report.State == "ABORTED" {
		emoji = "⚠️"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n", report.SessionID)
	fmt.Fprintf(&sb, "Iterations: %d | Tool calls: %d\n", report.Iterations, report.ToolCalls)
	fmt.Fprintf(&sb, "Bets placed: %d\n", report.TradeCount)
	fmt.Fprintf(&sb, "Total staked: %s\n", utils.FormatUSD(report.TotalStaked))
	fmt.Fprintf(&sb, "Final balance: %s\n", utils.FormatUSD(report.Balance))
	fmt.Fprintf(&sb, "Duration: %s", report.Duration.Round(time.Second))

	if report.FinalText != "" {
		sb.WriteString("\n\nFinal analysis:\n")
		sb.WriteString(truncateText(report.FinalText, 600))
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationSummary,
		Title:   fmt.Sprintf("%s Session %s [%s]", emoji, report.State, report.Mode),
		Message: sb.String(),
		Data: map[string]interface{}{
			"session_id":   report.SessionID,
			"mode":         report.Mode,
			"state":        report.State,
			"iterations":   report.Iterations,
			"tool_calls":   report.ToolCalls,
			"trade_count":  report.TradeCount,
			"total_staked": report.TotalStaked,
			"balance":      report.Balance,
		},
	})
}

// SendError reports a session failure.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "❌ Error Occurred",
		Message: fmt.Sprintf("Context: %s\nError: %v", errContext, err),
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// truncateText shortens long model output for message bodies without
// splitting a rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}
