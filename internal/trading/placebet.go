package trading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/logging"
	"polymarket-trader/internal/models"
)

// PlaceBet resolves the market, prices the outcome and commits the
// stake. The outcome name is matched case-insensitively against the
// market's outcome list; the recorded position carries the market's
// canonical spelling.
func (e *Engine) PlaceBet(ctx context.Context, slug, outcome string, amountUSD float64, reasoning string) (*models.Position, error) {
	if err := e.gate.Allow(ctx, "place_bet"); err != nil {
		return nil, err
	}
	if amountUSD <= 0 {
		return nil, fmt.Errorf("bet amount must be positive, got %.2f", amountUSD)
	}

	funds, err := e.AvailableFunds(ctx)
	if err != nil {
		return nil, err
	}
	if amountUSD > funds.Available {
		e.auditBet(ctx, "", slug, outcome, amountUSD, 0, 0, false, "insufficient funds")
		return nil, fmt.Errorf("%w: bet $%.2f exceeds available $%.2f", apperrors.ErrInsufficientFunds, amountUSD, funds.Available)
	}

	m, err := e.markets.BySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve market %s: %w", slug, err)
	}
	if !m.Tradeable() {
		e.auditBet(ctx, "", slug, outcome, amountUSD, 0, 0, false, "market not accepting orders")
		return nil, fmt.Errorf("%w: %s is not accepting orders", apperrors.ErrMarketClosed, slug)
	}

	idx := outcomeIndex(m.Outcomes, outcome)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q is not one of: %s", apperrors.ErrOutcomeNotFound, outcome, strings.Join(m.Outcomes, ", "))
	}
	if idx >= len(m.TokenIDs) {
		return nil, fmt.Errorf("market %s has no outcome token for %q", slug, m.Outcomes[idx])
	}
	tokenID := m.TokenIDs[idx]

	price := e.quotePrice(ctx, tokenID)
	shares := amountUSD / price

	e.logger.Info().
		Str("market", slug).
		Str("outcome", m.Outcomes[idx]).
		Float64("amount_usd", amountUSD).
		Float64("price", price).
		Bool("dry_run", e.dryRun).
		Msg("Placing bet")

	orderID := ""
	if !e.dryRun {
		orderID, err = e.submitLive(ctx, slug, m.Outcomes[idx], tokenID, amountUSD, price, shares)
		if err != nil {
			return nil, err
		}
	}

	pos := e.record(slug, m.Question, m.Outcomes[idx], amountUSD, price, shares, orderID, reasoning)
	logging.LogBet(e.logger, slug, pos.Outcome, amountUSD, price, e.dryRun)
	e.auditBet(ctx, pos.OrderID, slug, pos.Outcome, amountUSD, price, shares, true, "")
	return pos, nil
}

// submitLive signs and posts a GTC buy for the outcome token.
func (e *Engine) submitLive(ctx context.Context, slug, outcome, tokenID string, amountUSD, price, shares float64) (string, error) {
	if e.venue == nil {
		return "", fmt.Errorf("live order for %s: %w", slug, apperrors.ErrInvalidCredentials)
	}

	receipt, err := e.venue.SubmitOrder(ctx, tokenID, models.SideBuy, decimal.NewFromFloat(price), decimal.NewFromFloat(shares))
	if err != nil {
		e.auditBet(ctx, "", slug, outcome, amountUSD, price, shares, false, err.Error())
		return "", fmt.Errorf("submit order for %s: %w", slug, err)
	}
	if !receipt.Success {
		reason := receipt.Error
		if reason == "" {
			reason = "order rejected"
		}
		e.auditBet(ctx, receipt.OrderID, slug, outcome, amountUSD, price, shares, false, reason)
		return "", apperrors.NewOrderError(receipt.OrderID, slug, "submit", reason, nil)
	}
	return receipt.OrderID, nil
}

// record commits the fill to the session state. Simulated orders get a
// sequential sim-N identifier so the transcript can refer to them.
func (e *Engine) record(slug, title, outcome string, amountUSD, price, shares float64, orderID, reasoning string) *models.Position {
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if orderID == "" && e.dryRun {
		orderID = fmt.Sprintf("sim-%d", len(e.trades)+1)
	}
	e.balance -= amountUSD

	pos := models.Position{
		MarketSlug:  slug,
		MarketTitle: title,
		Outcome:     outcome,
		AmountUSD:   amountUSD,
		Shares:      shares,
		Price:       price,
		OrderID:     orderID,
		DryRun:      e.dryRun,
		Reasoning:   reasoning,
		PlacedAt:    now,
	}
	e.positions = append(e.positions, pos)
	e.trades = append(e.trades, models.SessionTrade{
		MarketSlug: slug,
		Outcome:    outcome,
		Side:       models.SideBuy,
		AmountUSD:  amountUSD,
		Price:      price,
		Shares:     shares,
		OrderID:    orderID,
		DryRun:     e.dryRun,
		Reasoning:  reasoning,
		Timestamp:  now,
	})
	return &pos
}

// quotePrice asks the book what a buyer would pay right now. The sell
// side is quoted because a market buy crosses the resting asks.
func (e *Engine) quotePrice(ctx context.Context, tokenID string) float64 {
	price := fallbackPrice
	if e.venue != nil {
		quoted, err := e.venue.Price(ctx, tokenID, models.SideSell)
		if err != nil {
			e.logger.Warn().Err(err).Str("token_id", tokenID).Msg("Could not fetch quote, assuming even odds")
		} else {
			price = quoted
		}
	}
	return clampPrice(price)
}

func clampPrice(p float64) float64 {
	if p < minOrderPrice {
		return minOrderPrice
	}
	if p > maxOrderPrice {
		return maxOrderPrice
	}
	return p
}

// outcomeIndex matches an outcome name against the market's list,
// ignoring case.
func outcomeIndex(outcomes []string, name string) int {
	for i, o := range outcomes {
		if strings.EqualFold(o, name) {
			return i
		}
	}
	return -1
}

// auditBet writes the placement attempt to the audit trail when one is
// configured. Audit failures never block trading.
func (e *Engine) auditBet(ctx context.Context, orderID, slug, outcome string, amount, price, shares float64, success bool, errMsg string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.LogBetPlaced(ctx, orderID, slug, outcome, amount, price, shares, e.dryRun, success, errMsg); err != nil {
		e.logger.Warn().Err(err).Msg("Audit write failed")
	}
}
