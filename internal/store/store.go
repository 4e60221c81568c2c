// Package store journals agent sessions to SQLite. Every run writes one
// session row plus the decision trail and the bets that came out of it.
// The trading path only ever writes here; nothing reads the journal back
// into session state.
package store

import (
	"context"
	"time"

	"polymarket-trader/internal/models"
)

// Journal persists completed session runs.
type Journal interface {
	// Sessions
	SaveSession(ctx context.Context, rec *SessionRecord) error
	Sessions(ctx context.Context, filter SessionFilter) ([]SessionRecord, error)

	// Decisions
	LogDecision(d Decision) error
	Decisions(ctx context.Context, sessionID string) ([]Decision, error)

	// Bets
	SaveBets(ctx context.Context, sessionID string, bets []models.SessionTrade) error
	Bets(ctx context.Context, filter BetFilter) ([]models.SessionTrade, error)

	// Flush writes any buffered decisions out.
	Flush() error

	// Close flushes and closes the underlying database.
	Close() error
}

// SessionRecord is one journaled agent run.
type SessionRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Mode         string
	Model        string
	State        string
	Iterations   int
	ToolCalls    int
	TradeCount   int
	TotalStaked  float64
	FinalBalance float64
	FinalText    string
}

// Decision is one tool invocation the model issued during a run. Seq is
// the zero-based call order within the session.
type Decision struct {
	SessionID string
	Seq       int
	Tool      string
	Arguments string
}

// SessionFilter represents filters for querying sessions.
type SessionFilter struct {
	Mode      string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// BetFilter represents filters for querying journaled bets.
type BetFilter struct {
	SessionID  string
	MarketSlug string
	DryRun     *bool
	Limit      int
}
