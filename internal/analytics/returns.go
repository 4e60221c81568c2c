// Package analytics implements the trading analytics engine: realized
// return reconstruction from raw trade feeds, risk statistics over the
// reconstructed series, and cross-trader consensus detection.
package analytics

import (
	"polymarket-trader/internal/models"
)

// pairKey identifies one tracked (market, outcome) position.
type pairKey struct {
	market  string
	outcome string
}

// positionState is the running average-cost state for one pair.
type positionState struct {
	size      float64
	cost      float64
	lastPrice float64
}

func (p *positionState) avgCost() float64 {
	return p.cost / p.size
}

// ReturnsReconstructor rebuilds the realized P&L sequence from a raw
// trade feed using average-cost accounting.
//
// Feeds arrive newest-first from the data API; reconstruction replays
// them in chronological order with one open position per (market,
// outcome) pair. A SELL realizes size*(price - avgCost) against the
// pair's open position. A SELL with no tracked open position is
// ignored, so exits whose entries fall outside the fetched window
// cannot fabricate profit.
type ReturnsReconstructor struct {
	// SettleResolved, when set, treats terminal prices as market
	// resolution for positions still open at the end of the feed: a
	// pair whose last trade price exceeded 0.95 settles at 1.0 per
	// share, and a pair below 0.05 settles at 0.0 when a sibling
	// outcome of the same market crossed 0.95. Unresolved open
	// positions emit nothing.
	SettleResolved bool
}

// Reconstruct returns realized returns in the order they occurred.
// Trades missing a market or outcome and trades with unparseable size
// or price are skipped individually. An empty or fully skipped feed
// yields a single 0.0 so downstream statistics always have input.
func (r ReturnsReconstructor) Reconstruct(feed []models.TradeEvent) []float64 {
	returns := make([]float64, 0, len(feed))
	positions := make(map[pairKey]*positionState)
	var seen []pairKey

	// The feed is newest-first; walk it backwards.
	for i := len(feed) - 1; i >= 0; i-- {
		t := feed[i]
		if t.Market == "" || t.Outcome == "" {
			continue
		}
		size, ok := t.Size.Float64()
		if !ok {
			continue
		}
		price, ok := t.Price.Float64()
		if !ok {
			continue
		}

		key := pairKey{market: t.Market, outcome: t.Outcome}
		pos := positions[key]
		if pos == nil {
			pos = &positionState{}
			positions[key] = pos
			seen = append(seen, key)
		}
		pos.lastPrice = price

		switch t.Side {
		case models.SideBuy:
			pos.cost += size * price
			pos.size += size
		case models.SideSell:
			if pos.size > 0 {
				avg := pos.avgCost()
				returns = append(returns, size*(price-avg))
				pos.size -= size
				pos.cost -= size * avg
			}
		}
	}

	if r.SettleResolved {
		returns = append(returns, settleOpenPositions(positions, seen)...)
	}

	if len(returns) == 0 {
		return []float64{0.0}
	}
	return returns
}

// settleOpenPositions emits settlement P&L for open positions whose
// terminal prices indicate the market resolved. Pairs are visited in
// first-seen order to keep output deterministic.
func settleOpenPositions(positions map[pairKey]*positionState, seen []pairKey) []float64 {
	var settled []float64
	for _, key := range seen {
		pos := positions[key]
		if pos.size <= 0 {
			continue
		}

		var settle float64
		switch {
		case pos.lastPrice > 0.95:
			settle = 1.0
		case pos.lastPrice < 0.05 && siblingResolved(positions, key):
			settle = 0.0
		default:
			continue
		}

		settled = append(settled, pos.size*(settle-pos.avgCost()))
	}
	return settled
}

// siblingResolved reports whether another outcome of the same market
// finished above the resolution threshold.
func siblingResolved(positions map[pairKey]*positionState, key pairKey) bool {
	for other, pos := range positions {
		if other.market != key.market || other.outcome == key.outcome {
			continue
		}
		if pos.lastPrice > 0.95 {
			return true
		}
	}
	return false
}
