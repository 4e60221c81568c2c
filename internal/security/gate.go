package security

import (
	"context"
	"fmt"
)

// ReadOnlyError is returned when a state-changing operation is
// attempted while read-only mode is enabled.
type ReadOnlyError struct {
	Operation string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%s blocked: read-only mode is enabled", e.Operation)
}

// TradeGate sits in front of every state-changing venue operation.
// The read-only switch comes from configuration and does not change
// for the life of the process, so the gate carries no lock.
type TradeGate struct {
	readOnly bool
	audit    *AuditLogger
}

// NewTradeGate creates a gate. audit may be nil, in which case blocked
// attempts are not recorded.
func NewTradeGate(readOnly bool, audit *AuditLogger) *TradeGate {
	return &TradeGate{readOnly: readOnly, audit: audit}
}

// ReadOnly reports whether the gate blocks state-changing operations.
func (g *TradeGate) ReadOnly() bool {
	return g.readOnly
}

// Allow returns nil when the operation may proceed. Blocked attempts
// land in the audit trail before the error is returned.
func (g *TradeGate) Allow(ctx context.Context, operation string) error {
	if !g.readOnly {
		return nil
	}
	if g.audit != nil {
		g.audit.LogTradeBlocked(ctx, operation)
	}
	return &ReadOnlyError{Operation: operation}
}
