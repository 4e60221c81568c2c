// Package trading executes the session's bets and tracks the balance,
// positions and trade log that result. In dry-run mode fills are
// simulated against live quotes; in live mode orders are signed and
// posted to the CLOB.
package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"polymarket-trader/internal/market"
	"polymarket-trader/internal/models"
)

const (
	// DryRunStartingBalance is the fixed simulated bankroll.
	DryRunStartingBalance = 50.0

	// fallbackLiveBalance is assumed when the chain balance cannot be
	// fetched in live mode.
	fallbackLiveBalance = 100.0

	// Order prices are clamped inside the venue's accepted band.
	minOrderPrice = 0.001
	maxOrderPrice = 0.998

	// fallbackPrice stands in when no quote is available. An even-odds
	// fill keeps simulated share counts plausible.
	fallbackPrice = 0.5
)

// MarketSource resolves market records for order placement.
type MarketSource interface {
	BySlug(ctx context.Context, slug string) (*market.Market, error)
}

// OrderVenue is the CLOB surface the engine trades against.
type OrderVenue interface {
	Price(ctx context.Context, tokenID string, side models.Side) (float64, error)
	OpenOrders(ctx context.Context) ([]models.OpenOrder, error)
	SubmitOrder(ctx context.Context, tokenID string, side models.Side, price, size decimal.Decimal) (*models.OrderReceipt, error)
}

// BalanceSource reads the wallet's collateral balance from the chain.
type BalanceSource interface {
	USDCBalance(ctx context.Context, wallet string) (float64, error)
}
