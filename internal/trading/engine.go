package trading

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	"polymarket-trader/internal/models"
	"polymarket-trader/internal/security"
)

// Engine is the session's trading core. It owns the bankroll view and
// the per-session position list and trade log; the tool layer reads
// and mutates state only through it.
type Engine struct {
	markets MarketSource
	venue   OrderVenue
	chain   BalanceSource
	audit   *security.AuditLogger
	gate    *security.TradeGate
	logger  zerolog.Logger

	dryRun bool
	wallet string

	mu        sync.RWMutex
	balance   float64
	positions []models.Position
	trades    []models.SessionTrade
}

// NewEngine creates a trading engine. venue, chain and audit may be
// nil: without a venue live orders fail and dry-run fills fall back to
// even odds, without a chain client the live balance stays at its
// fallback, and without an audit logger placements are not audited.
// Read-only mode blocks placement in both live and dry-run mode.
func NewEngine(cfg *config.Config, markets MarketSource, venue OrderVenue, chain BalanceSource, audit *security.AuditLogger, logger zerolog.Logger) *Engine {
	e := &Engine{
		markets: markets,
		venue:   venue,
		chain:   chain,
		audit:   audit,
		gate:    security.NewTradeGate(cfg.Security.ReadOnlyMode, audit),
		logger:  logger.With().Str("component", "trading").Logger(),
		dryRun:  cfg.IsDryRun(),
		wallet:  cfg.Credentials.Polymarket.WalletAddress,
	}
	if e.dryRun {
		e.balance = DryRunStartingBalance
	} else {
		e.balance = fallbackLiveBalance
	}
	return e
}

// AvailableFunds returns the spendable-balance view of the wallet. In
// live mode the balance is re-read from the chain and the notional
// resting in LIVE open orders is subtracted; in dry-run mode nothing
// is ever locked.
func (e *Engine) AvailableFunds(ctx context.Context) (models.FundsStatus, error) {
	if e.dryRun {
		e.mu.RLock()
		balance := e.balance
		e.mu.RUnlock()
		return models.FundsStatus{
			Balance:   balance,
			Available: balance,
			DryRun:    true,
		}, nil
	}

	e.refreshBalance(ctx)
	locked := e.lockedFunds(ctx)

	e.mu.RLock()
	balance := e.balance
	e.mu.RUnlock()

	return models.FundsStatus{
		Balance:   balance,
		Locked:    locked,
		Available: balance - locked,
	}, nil
}

// refreshBalance overwrites the tracked balance with the chain's view.
// Failures keep the last known value so a flaky RPC node does not
// stall the session.
func (e *Engine) refreshBalance(ctx context.Context) {
	if e.chain == nil || e.wallet == "" {
		return
	}
	balance, err := e.chain.USDCBalance(ctx, e.wallet)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Could not refresh balance, keeping last known value")
		return
	}
	e.mu.Lock()
	e.balance = balance
	e.mu.Unlock()
}

// lockedFunds sums the unmatched notional of resting LIVE orders.
// Failures are treated as nothing locked, matching the optimistic
// reading the decision loop expects.
func (e *Engine) lockedFunds(ctx context.Context) float64 {
	if e.venue == nil {
		return 0
	}
	orders, err := e.venue.OpenOrders(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Could not fetch open orders, assuming nothing locked")
		return 0
	}
	locked := 0.0
	for _, o := range orders {
		if o.Status != "LIVE" {
			continue
		}
		locked += o.LockedValue()
	}
	return locked
}

// Positions returns a copy of the session's open positions.
func (e *Engine) Positions() []models.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Position, len(e.positions))
	copy(out, e.positions)
	return out
}

// TradeHistory returns the most recent trades in chronological order.
// A non-positive limit returns the full log.
func (e *Engine) TradeHistory(limit int) []models.SessionTrade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	trades := e.trades
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	out := make([]models.SessionTrade, len(trades))
	copy(out, trades)
	return out
}

// Portfolio combines the funds view with the session's positions.
func (e *Engine) Portfolio(ctx context.Context) (*models.PortfolioSummary, error) {
	funds, err := e.AvailableFunds(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	positions := make([]models.Position, len(e.positions))
	copy(positions, e.positions)

	staked := 0.0
	for _, p := range positions {
		staked += p.AmountUSD
	}

	return &models.PortfolioSummary{
		Funds:       funds,
		Positions:   positions,
		TotalStaked: staked,
		TradeCount:  len(e.trades),
	}, nil
}
