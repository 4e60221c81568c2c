// Package models provides domain models for the trading application.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Side represents the side of a trade or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Numeric is a JSON scalar that may arrive as a number or a quoted number.
// Polymarket endpoints mix both encodings, so parsing is deferred to the
// consumer: Float64 reports whether the value held a usable number.
type Numeric string

// UnmarshalJSON accepts both `0.42` and `"0.42"` (and null, as empty).
func (n *Numeric) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		*n = Numeric(unquoted)
		return nil
	}
	*n = Numeric(s)
	return nil
}

// Float64 parses the scalar. ok is false for empty or non-numeric values.
func (n Numeric) Float64() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Int64 parses the scalar as an integer, truncating fractional parts.
func (n Numeric) Int64() (int64, bool) {
	v, ok := n.Float64()
	if !ok {
		return 0, false
	}
	return int64(v), true
}

// TradeEvent is one record of a participant's raw trade feed, newest-first
// as delivered by the data API. Size and Price stay unparsed so that a
// malformed record can be dropped during reconstruction instead of failing
// the whole feed.
type TradeEvent struct {
	Market    string  `json:"conditionId"`
	Outcome   string  `json:"outcome"`
	Side      Side    `json:"side"`
	Size      Numeric `json:"size"`
	Price     Numeric `json:"price"`
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Timestamp Numeric `json:"timestamp"`
}

// Notional returns size*price when both fields parse.
func (t TradeEvent) Notional() (float64, bool) {
	size, ok := t.Size.Float64()
	if !ok {
		return 0, false
	}
	price, ok := t.Price.Float64()
	if !ok {
		return 0, false
	}
	return size * price, true
}

// LeaderboardEntry is one row of the venue's volume leaderboard.
type LeaderboardEntry struct {
	Wallet   string  `json:"proxyWallet"`
	Username string  `json:"userName"`
	Volume   Numeric `json:"vol"`
	PnL      Numeric `json:"pnl"`
}

// ParticipantMetrics holds the per-trader risk metrics computed from one
// analysis pass. Immutable once built. Rank is the position after ordering
// by Sharpe ratio; LeaderboardRank is the trader's position on the venue's
// own volume leaderboard.
type ParticipantMetrics struct {
	Wallet            string
	Username          string
	Rank              int
	LeaderboardRank   int
	LeaderboardVolume float64
	LeaderboardPnL    float64
	TotalTrades       int
	SharpeRatio       float64
	MeanReturn        float64
	Volatility        float64
	WinRate           float64 // percent of raw trades closed in the money
	MaxDrawdown       float64 // percent, <= 0
}

// TradeInfo is a display-oriented view of one trade, used for top-volume
// trade listings.
type TradeInfo struct {
	MarketTitle string
	MarketSlug  string
	Outcome     string
	Side        Side
	Size        float64
	Price       float64
	Value       float64
	Timestamp   int64
}

// ConsensusBet is a (market, outcome) pair backed by two or more analyzed
// participants through BUY-side activity.
type ConsensusBet struct {
	Market      string
	MarketTitle string
	Outcome     string
	Traders     int
	AvgVolume   float64
	TotalVolume float64
}

// OutcomeQuote is the priced view of a single market outcome.
type OutcomeQuote struct {
	Outcome            string
	TokenID            string
	Price              float64
	ImpliedProbability float64
	PotentialReturn    float64 // percent gain if the outcome resolves in favor
	PayoutIfWins       float64 // per share
}

// MarketFees holds the maker/taker fee rates reported by the venue.
type MarketFees struct {
	Maker float64
	Taker float64
}

// MarketDetails is the enriched market view surfaced to the model.
type MarketDetails struct {
	Slug            string
	ConditionID     string
	Title           string
	Description     string
	Category        string
	Active          bool
	Closed          bool
	AcceptingOrders bool
	Tradeable       bool
	EndDate         string
	CreatedAt       string
	Outcomes        []string
	TokenIDs        []string
	Volume          float64
	Liquidity       float64
	Fees            MarketFees
	Quotes          []OutcomeQuote
	Warnings        []string
}

// Position is one open position held for the lifetime of a session.
type Position struct {
	MarketSlug  string
	MarketTitle string
	Outcome     string
	AmountUSD   float64
	Shares      float64
	Price       float64
	OrderID     string
	DryRun      bool
	Reasoning   string
	PlacedAt    time.Time
}

// SessionTrade is one entry of the session's trade log.
type SessionTrade struct {
	MarketSlug string
	Outcome    string
	Side       Side
	AmountUSD  float64
	Price      float64
	Shares     float64
	OrderID    string
	DryRun     bool
	Reasoning  string
	Timestamp  time.Time
}

// FundsStatus is the spendable-balance view of the session wallet.
// Locked is the notional still committed to resting venue orders and is
// always zero in dry-run mode.
type FundsStatus struct {
	Balance   float64
	Locked    float64
	Available float64
	DryRun    bool
}

// PortfolioSummary combines funds with the session's open positions.
type PortfolioSummary struct {
	Funds       FundsStatus
	Positions   []Position
	TotalStaked float64
	TradeCount  int
}

// OpenOrder is a resting venue order, used for locked-balance accounting.
type OpenOrder struct {
	ID           string  `json:"id"`
	TokenID      string  `json:"asset_id"`
	Side         Side    `json:"side"`
	Price        Numeric `json:"price"`
	OriginalSize Numeric `json:"original_size"`
	SizeMatched  Numeric `json:"size_matched"`
	Status       string  `json:"status"`
}

// LockedValue returns the notional still committed by this order:
// unmatched size times limit price.
func (o OpenOrder) LockedValue() float64 {
	orig, ok := o.OriginalSize.Float64()
	if !ok {
		return 0
	}
	matched, _ := o.SizeMatched.Float64()
	price, ok := o.Price.Float64()
	if !ok {
		return 0
	}
	remaining := orig - matched
	if remaining <= 0 {
		return 0
	}
	return remaining * price
}

// OrderReceipt is the venue's answer to an order submission.
type OrderReceipt struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Error   string `json:"errorMsg"`
}

// WhaleSuggestion is one curated copy-trade candidate from the PolyWhaler
// suggestion feed.
type WhaleSuggestion struct {
	Wallet           string  `json:"wallet"`
	Name             string  `json:"name"`
	RecentTradeCount int     `json:"recentTradeCount"`
	RecentVolume     float64 `json:"recentVolume"`
	LastTradeTime    int64   `json:"lastTradeTime"`
}
