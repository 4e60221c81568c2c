package security

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditEventType identifies what kind of action an audit entry records.
type AuditEventType string

const (
	AuditBetPlaced       AuditEventType = "BET_PLACED"
	AuditBetRejected     AuditEventType = "BET_REJECTED"
	AuditTradeBlocked    AuditEventType = "TRADE_BLOCKED"
	AuditSessionStarted  AuditEventType = "SESSION_STARTED"
	AuditSessionFinished AuditEventType = "SESSION_FINISHED"
)

// AuditEvent is a single entry in the audit trail.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	Market    string                 `json:"market,omitempty"`
	OrderID   string                 `json:"order_id,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// AuditLogger writes one JSON line per event to a rotated file. Audit
// files are kept for a year, so every string that passes through is
// redacted before it is written.
type AuditLogger struct {
	writer    *lumberjack.Logger
	mu        sync.Mutex
	sessionID string
}

// AuditConfig sets where the trail goes and how it rotates.
type AuditConfig struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultAuditConfig returns the default audit configuration. The one
// year retention matches how long disputes over live fills stay open.
func DefaultAuditConfig() AuditConfig {
	home, _ := os.UserHomeDir()
	return AuditConfig{
		LogDir:     filepath.Join(home, ".config", "polymarket-trader", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// NewAuditLogger creates an audit logger. Each logger carries a random
// session ID so entries from one process run can be correlated.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	return &AuditLogger{
		writer: &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "audit.log"),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		},
		sessionID: newAuditSessionID(),
	}, nil
}

// Log writes an event. Error text and string details are redacted
// because upstream errors can echo request headers back verbatim.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	al.mu.Lock()
	defer al.mu.Unlock()

	event.Timestamp = time.Now().UTC()
	event.SessionID = al.sessionID
	if event.ErrorMsg != "" {
		event.ErrorMsg = Redact(event.ErrorMsg)
	}
	for k, v := range event.Details {
		if s, ok := v.(string); ok && ContainsSecret(s) {
			event.Details[k] = Redact(s)
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := al.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// LogBetPlaced records a placement attempt. Failed attempts are logged
// as rejections with the reason.
func (al *AuditLogger) LogBetPlaced(ctx context.Context, orderID, market, outcome string, amountUSD, price, shares float64, dryRun, success bool, errorMsg string) error {
	eventType := AuditBetPlaced
	if !success {
		eventType = AuditBetRejected
	}

	return al.Log(ctx, AuditEvent{
		EventType: eventType,
		OrderID:   orderID,
		Market:    market,
		Action:    "BUY",
		Success:   success,
		ErrorMsg:  errorMsg,
		Details: map[string]interface{}{
			"outcome":    outcome,
			"amount_usd": amountUSD,
			"price":      price,
			"shares":     shares,
			"dry_run":    dryRun,
		},
	})
}

// LogTradeBlocked records a state-changing operation stopped by
// read-only mode.
func (al *AuditLogger) LogTradeBlocked(ctx context.Context, operation string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditTradeBlocked,
		Action:    operation,
		Success:   false,
		ErrorMsg:  "blocked: read-only mode is enabled",
	})
}

// LogSessionStarted records the start of a decision-loop session.
func (al *AuditLogger) LogSessionStarted(ctx context.Context, mode, model string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditSessionStarted,
		Success:   true,
		Details: map[string]interface{}{
			"mode":  mode,
			"model": model,
		},
	})
}

// LogSessionFinished records how a session ended.
func (al *AuditLogger) LogSessionFinished(ctx context.Context, state string, iterations, trades int) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditSessionFinished,
		Success:   true,
		Details: map[string]interface{}{
			"state":      state,
			"iterations": iterations,
			"trades":     trades,
		},
	})
}

// Close closes the underlying log file.
func (al *AuditLogger) Close() error {
	return al.writer.Close()
}

func newAuditSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
