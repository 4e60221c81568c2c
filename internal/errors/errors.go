// Package errors defines the sentinel values and typed errors shared by
// the trading engine, the Polymarket clients and the model providers.
package errors

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is at package boundaries.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrMarketClosed       = errors.New("market is closed")
	ErrOutcomeNotFound    = errors.New("outcome not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrRateLimited        = errors.New("rate limited")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDataNotFound       = errors.New("data not found")
)

// VenueError is a failure reported by one of the Polymarket APIs. Code
// carries the venue's own error code when the response includes one.
type VenueError struct {
	Code    string
	Message string
	Err     error
}

func (e *VenueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("venue error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("venue error [%s]: %s", e.Code, e.Message)
}

func (e *VenueError) Unwrap() error {
	return e.Err
}

// NewVenueError builds a VenueError from a venue response.
func NewVenueError(code, message string, err error) *VenueError {
	return &VenueError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// OrderError describes an order the venue refused or failed to process.
type OrderError struct {
	OrderID string
	Market  string
	Action  string
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", e.OrderID, e.Action, e.Market, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", e.OrderID, e.Action, e.Market, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError builds an OrderError carrying the venue's reject reason.
func NewOrderError(orderID, market, action, reason string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Market:  market,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// ProviderError is a failed call to a model provider. StatusCode is
// zero for transport-level failures.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error [%s] status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error [%s]: %s: %v", e.Provider, e.Message, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may succeed on a later attempt:
// rate limits, server-side failures, and transport errors qualify.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// NewProviderError builds a ProviderError for one provider call.
func NewProviderError(provider string, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// RiskError is a stake the risk rules refused. Current is the value
// that tripped the rule, Limit the configured ceiling.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk limit [%s]: %s (%.2f exceeds %.2f)", e.Rule, e.Message, e.Current, e.Limit)
}

// NewRiskError builds a RiskError for a tripped rule.
func NewRiskError(rule string, current, limit float64, message string) *RiskError {
	return &RiskError{
		Rule:    rule,
		Current: current,
		Limit:   limit,
		Message: message,
	}
}
