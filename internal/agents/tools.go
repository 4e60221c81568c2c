package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/market"
	"polymarket-trader/internal/models"
	"polymarket-trader/internal/news"
	"polymarket-trader/internal/security"
)

const (
	maxTopTraders    = 50
	maxConsensusBets = 20
)

// TradingEngine is the session-side trading surface the tools call into.
type TradingEngine interface {
	AvailableFunds(ctx context.Context) (models.FundsStatus, error)
	Positions() []models.Position
	TradeHistory(limit int) []models.SessionTrade
	Portfolio(ctx context.Context) (*models.PortfolioSummary, error)
	PlaceBet(ctx context.Context, slug, outcome string, amountUSD float64, reasoning string) (*models.Position, error)
}

// TraderAnalytics ranks venue participants and surfaces their activity.
type TraderAnalytics interface {
	AnalyzeTop(ctx context.Context, n int) ([]models.ParticipantMetrics, error)
	AnalyzeWallet(ctx context.Context, wallet, username string) (models.ParticipantMetrics, bool)
	TopTrades(ctx context.Context, wallet string, n int) ([]models.TradeInfo, error)
	Consensus(ctx context.Context, topN, minTraders int) ([]models.ConsensusBet, error)
}

// MarketReader reads market metadata from the venue.
type MarketReader interface {
	Details(ctx context.Context, slug string) (*models.MarketDetails, error)
	Active(ctx context.Context, limit int) ([]market.Market, error)
	IsActive(ctx context.Context, slug string) bool
}

// WhaleFeed lists curated copy-trade candidates.
type WhaleFeed interface {
	SuggestedWhales(ctx context.Context, limit int) ([]models.WhaleSuggestion, error)
}

// Toolbox backs every tool in the catalogue with live dependencies.
type Toolbox struct {
	engine    TradingEngine
	analytics TraderAnalytics
	markets   MarketReader
	whales    WhaleFeed
	searcher  news.Searcher
	validator *security.InputValidator
	cfg       *config.Config
	logger    zerolog.Logger
}

// NewToolbox wires the tool handlers to their dependencies.
func NewToolbox(engine TradingEngine, analytics TraderAnalytics, markets MarketReader, whales WhaleFeed, searcher news.Searcher, cfg *config.Config, logger zerolog.Logger) *Toolbox {
	return &Toolbox{
		engine:    engine,
		analytics: analytics,
		markets:   markets,
		whales:    whales,
		searcher:  searcher,
		validator: security.NewInputValidator(cfg.Security.StrictValidation),
		cfg:       cfg,
		logger:    logger.With().Str("component", "toolbox").Logger(),
	}
}

// jsonPayload marshals a tool result for the conversation transcript.
func jsonPayload(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}

func (tb *Toolbox) executeGetAvailableFunds(ctx context.Context, params map[string]interface{}) (string, error) {
	funds, err := tb.engine.AvailableFunds(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch funds: %w", err)
	}

	positions := tb.engine.Positions()
	invested := 0.0
	for _, p := range positions {
		invested += p.AmountUSD
	}

	maxBet := funds.Available * tb.cfg.Trading.MaxSingleBetPercent / 100
	mode := "LIVE"
	if funds.DryRun {
		mode = "DRY_RUN"
	}

	return jsonPayload(map[string]interface{}{
		"balance_usd":        round2(funds.Balance),
		"locked_in_orders":   round2(funds.Locked),
		"available_balance":  round2(funds.Available),
		"positions_count":    len(positions),
		"total_invested":     round2(invested),
		"max_single_bet":     round2(maxBet),
		"max_single_bet_pct": fmt.Sprintf("%d%%", int(tb.cfg.Trading.MaxSingleBetPercent)),
		"mode":               mode,
	})
}

func (tb *Toolbox) executeGetCurrentPositions(ctx context.Context, params map[string]interface{}) (string, error) {
	positions := tb.engine.Positions()

	list := make([]map[string]interface{}, 0, len(positions))
	for i, p := range positions {
		mode := "LIVE"
		if p.DryRun {
			mode = "DRY_RUN"
		}
		list = append(list, map[string]interface{}{
			"position_number": i + 1,
			"market_slug":     p.MarketSlug,
			"market_title":    p.MarketTitle,
			"outcome":         p.Outcome,
			"amount_invested": round2(p.AmountUSD),
			"shares":          round2(p.Shares),
			"price":           round4(p.Price),
			"reasoning":       p.Reasoning,
			"timestamp":       p.PlacedAt.Format(time.RFC3339),
			"mode":            mode,
		})
	}

	return jsonPayload(list)
}

func (tb *Toolbox) executeGetTradeHistory(ctx context.Context, params map[string]interface{}) (string, error) {
	limit := getIntParam(params, "limit", 10)
	if limit <= 0 {
		limit = 10
	}

	trades := tb.engine.TradeHistory(limit)
	if len(trades) == 0 {
		return jsonPayload(map[string]interface{}{
			"total_trades": 0,
			"trades":       []interface{}{},
			"message":      "No trades placed yet",
		})
	}

	mode := "LIVE"
	if tb.cfg.IsDryRun() {
		mode = "DRY_RUN"
	}

	list := make([]map[string]interface{}, 0, len(trades))
	for _, t := range trades {
		list = append(list, map[string]interface{}{
			"market_slug": t.MarketSlug,
			"outcome":     t.Outcome,
			"side":        string(t.Side),
			"amount":      round2(t.AmountUSD),
			"price":       round4(t.Price),
			"shares":      round2(t.Shares),
			"order_id":    t.OrderID,
			"reasoning":   t.Reasoning,
			"timestamp":   t.Timestamp.Format(time.RFC3339),
		})
	}

	return jsonPayload(map[string]interface{}{
		"total_trades": len(trades),
		"showing":      len(list),
		"mode":         mode,
		"trades":       list,
	})
}

func (tb *Toolbox) executeGetPortfolioSummary(ctx context.Context, params map[string]interface{}) (string, error) {
	summary, err := tb.engine.Portfolio(ctx)
	if err != nil {
		return "", fmt.Errorf("build portfolio summary: %w", err)
	}

	uniqueMarkets := map[string]bool{}
	largest := 0.0
	for _, p := range summary.Positions {
		uniqueMarkets[p.MarketSlug] = true
		if p.AmountUSD > largest {
			largest = p.AmountUSD
		}
	}
	avgSize := 0.0
	if len(summary.Positions) > 0 {
		avgSize = summary.TotalStaked / float64(len(summary.Positions))
	}
	totalCapital := summary.Funds.Available + summary.TotalStaked
	deployedPct := 0.0
	if totalCapital > 0 {
		deployedPct = summary.TotalStaked / totalCapital * 100
	}

	mode := "LIVE"
	if summary.Funds.DryRun {
		mode = "DRY_RUN"
	}

	return jsonPayload(map[string]interface{}{
		"balance": map[string]interface{}{
			"available":     round2(summary.Funds.Available),
			"invested":      round2(summary.TotalStaked),
			"total_capital": round2(totalCapital),
		},
		"positions": map[string]interface{}{
			"count":             len(summary.Positions),
			"unique_markets":    len(uniqueMarkets),
			"avg_position_size": round2(avgSize),
			"largest_position":  round2(largest),
		},
		"risk_metrics": map[string]interface{}{
			"capital_deployed_pct":   round2(deployedPct),
			"max_single_bet_allowed": round2(summary.Funds.Available * tb.cfg.Trading.MaxSingleBetPercent / 100),
			"max_single_bet_pct":     fmt.Sprintf("%d%%", int(tb.cfg.Trading.MaxSingleBetPercent)),
		},
		"trading_activity": map[string]interface{}{
			"total_trades": summary.TradeCount,
			"mode":         mode,
		},
	})
}

func (tb *Toolbox) executeGetTopTraders(ctx context.Context, params map[string]interface{}) (string, error) {
	n := getIntParam(params, "n", 10)
	if n <= 0 {
		n = 10
	}
	if n > maxTopTraders {
		n = maxTopTraders
	}

	traders, err := tb.analytics.AnalyzeTop(ctx, n)
	if err != nil {
		return "", fmt.Errorf("rank traders: %w", err)
	}

	list := make([]map[string]interface{}, 0, len(traders))
	for _, t := range traders {
		list = append(list, map[string]interface{}{
			"rank":             t.Rank,
			"username":         t.Username,
			"wallet":           t.Wallet,
			"sharpe_ratio":     round4(t.SharpeRatio),
			"win_rate":         round2(t.WinRate),
			"max_drawdown":     round2(t.MaxDrawdown),
			"total_trades":     t.TotalTrades,
			"leaderboard_rank": t.LeaderboardRank,
			"pnl":              round2(t.LeaderboardPnL),
		})
	}

	return jsonPayload(list)
}

func (tb *Toolbox) executeGetTraderTopTrades(ctx context.Context, params map[string]interface{}) (string, error) {
	wallet := getStringParam(params, "wallet", "")
	n := getIntParam(params, "n", 5)
	if n <= 0 {
		n = 5
	}

	if err := tb.validator.ValidateWalletAddress(wallet); err != nil {
		return "", err
	}

	trades, err := tb.analytics.TopTrades(ctx, wallet, n)
	if err != nil {
		return "", fmt.Errorf("fetch trader activity: %w", err)
	}

	list := make([]map[string]interface{}, 0, len(trades))
	for _, t := range trades {
		if !tb.markets.IsActive(ctx, t.MarketSlug) {
			continue
		}
		list = append(list, map[string]interface{}{
			"market":      t.MarketTitle,
			"market_slug": t.MarketSlug,
			"outcome":     t.Outcome,
			"side":        string(t.Side),
			"volume_usd":  round2(t.Value),
			"price":       round4(t.Price),
			"shares":      round2(t.Size),
			"status":      "active",
		})
		if len(list) >= n {
			break
		}
	}

	return jsonPayload(list)
}

func (tb *Toolbox) executeGetConsensusBets(ctx context.Context, params map[string]interface{}) (string, error) {
	minTraders := getIntParam(params, "min_traders", tb.cfg.Agents.MinConsensusTraders)
	if minTraders < 2 {
		minTraders = 2
	}

	consensus, err := tb.analytics.Consensus(ctx, tb.cfg.Agents.TopTradersCount, minTraders)
	if err != nil {
		return "", fmt.Errorf("find consensus bets: %w", err)
	}

	list := make([]map[string]interface{}, 0, len(consensus))
	for _, c := range consensus {
		if !tb.markets.IsActive(ctx, c.Market) {
			continue
		}
		list = append(list, map[string]interface{}{
			"market_slug":    c.Market,
			"market_title":   c.MarketTitle,
			"outcome":        c.Outcome,
			"trader_count":   c.Traders,
			"avg_volume_usd": round2(c.AvgVolume),
			"status":         "active",
		})
		if len(list) >= maxConsensusBets {
			break
		}
	}

	return jsonPayload(list)
}

func (tb *Toolbox) executeGetMarketDetails(ctx context.Context, params map[string]interface{}) (string, error) {
	slug := security.SanitizeSlug(getStringParam(params, "market_slug", ""))
	if err := tb.validator.ValidateMarketSlug(slug); err != nil {
		return "", err
	}

	details, err := tb.markets.Details(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("fetch market details: %w", err)
	}

	quotes := make([]map[string]interface{}, 0, len(details.Quotes))
	for _, q := range details.Quotes {
		quotes = append(quotes, map[string]interface{}{
			"outcome":             q.Outcome,
			"price":               round4(q.Price),
			"implied_probability": fmt.Sprintf("%.1f%%", q.ImpliedProbability),
			"potential_return":    fmt.Sprintf("%.1f%%", q.PotentialReturn),
			"payout_if_wins":      round2(q.PayoutIfWins),
		})
	}

	payload := map[string]interface{}{
		"market_slug":      details.Slug,
		"title":            details.Title,
		"description":      details.Description,
		"category":         details.Category,
		"active":           details.Active,
		"closed":           details.Closed,
		"accepting_orders": details.AcceptingOrders,
		"tradeable":        details.Tradeable,
		"end_date":         details.EndDate,
		"outcomes":         details.Outcomes,
		"volume_usd":       round2(details.Volume),
		"liquidity_usd":    round2(details.Liquidity),
		"quotes":           quotes,
	}
	if len(details.Warnings) > 0 {
		payload["warnings"] = details.Warnings
	}

	return jsonPayload(payload)
}

func (tb *Toolbox) executeGetActiveMarkets(ctx context.Context, params map[string]interface{}) (string, error) {
	limit := getIntParam(params, "limit", 20)
	if limit <= 0 {
		limit = 20
	}

	markets, err := tb.markets.Active(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("fetch active markets: %w", err)
	}

	list := make([]map[string]interface{}, 0, len(markets))
	for _, m := range markets {
		volume, _ := m.Volume.Float64()
		liquidity, _ := m.Liquidity.Float64()
		list = append(list, map[string]interface{}{
			"market_slug":   m.Slug,
			"title":         m.Question,
			"category":      m.Category,
			"outcomes":      []string(m.Outcomes),
			"end_date":      m.EndDate,
			"volume_usd":    round2(volume),
			"liquidity_usd": round2(liquidity),
		})
	}

	return jsonPayload(list)
}

func (tb *Toolbox) executePlaceBet(ctx context.Context, params map[string]interface{}) (string, error) {
	slug := security.SanitizeSlug(getStringParam(params, "market_slug", ""))
	outcome := getStringParam(params, "outcome", "")
	amount := getFloatParam(params, "amount_usd", 0)
	reasoning := getStringParam(params, "reasoning", "")

	if err := tb.validator.ValidateMarketSlug(slug); err != nil {
		return "", err
	}
	if err := tb.validator.ValidateBetAmount(amount); err != nil {
		return "", err
	}
	if outcome == "" {
		return "", fmt.Errorf("outcome is required")
	}
	if reasoning == "" {
		return "", fmt.Errorf("reasoning is required")
	}

	// The single-bet cap advertised by get_available_funds is enforced
	// here, at the tool boundary. Manual CLI trades are not capped.
	if pct := tb.cfg.Trading.MaxSingleBetPercent; pct > 0 {
		funds, err := tb.engine.AvailableFunds(ctx)
		if err != nil {
			return "", fmt.Errorf("check funds before placing: %w", err)
		}
		if maxBet := funds.Available * pct / 100; amount > maxBet {
			return "", apperrors.NewRiskError("max_single_bet", amount, maxBet,
				fmt.Sprintf("stake above %.0f%% of available funds", pct))
		}
	}

	position, err := tb.engine.PlaceBet(ctx, slug, outcome, amount, reasoning)
	if err != nil {
		return "", err
	}

	mode := "LIVE"
	if position.DryRun {
		mode = "DRY_RUN"
	}

	return jsonPayload(map[string]interface{}{
		"success":     true,
		"mode":        mode,
		"market_slug": position.MarketSlug,
		"outcome":     position.Outcome,
		"amount_usd":  round2(position.AmountUSD),
		"price":       round4(position.Price),
		"shares":      round2(position.Shares),
		"order_id":    position.OrderID,
	})
}

func (tb *Toolbox) executeSearchNews(ctx context.Context, params map[string]interface{}) (string, error) {
	query := getStringParam(params, "query", "")
	maxResults := getIntParam(params, "max_results", 5)
	if maxResults <= 0 {
		maxResults = 5
	}

	if err := tb.validator.ValidateText("query", query, 200); err != nil {
		return "", err
	}

	results, err := tb.searcher.Search(ctx, query, maxResults)
	if err != nil {
		// News is advisory. The model gets a degraded payload instead
		// of a failed tool call.
		return jsonPayload(map[string]interface{}{
			"query": query,
			"error": err.Error(),
			"note":  "News unavailable",
		})
	}

	articles := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		articles = append(articles, map[string]interface{}{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Content,
			"score":   r.Score,
		})
	}

	return jsonPayload(map[string]interface{}{
		"query":         query,
		"results_count": len(articles),
		"articles":      articles,
	})
}

func (tb *Toolbox) executeReadKnowledgeBase(ctx context.Context, params map[string]interface{}) (string, error) {
	path := tb.cfg.KnowledgeBasePath()

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return jsonPayload(map[string]interface{}{
				"available": false,
				"error":     fmt.Sprintf("Knowledge base file not found at %s", path),
			})
		}
		return "", fmt.Errorf("read knowledge base: %w", err)
	}

	return jsonPayload(map[string]interface{}{
		"available": true,
		"content":   string(content),
		"note":      "Strategy notes collected from successful traders",
	})
}

func (tb *Toolbox) executeGetSuggestedWhales(ctx context.Context, params map[string]interface{}) (string, error) {
	limit := getIntParam(params, "limit", 10)
	if limit <= 0 {
		limit = 10
	}

	whales, err := tb.whales.SuggestedWhales(ctx, limit)
	if err != nil || len(whales) == 0 {
		// The suggestion feed is a third-party extra, not a hard
		// dependency of the session.
		return jsonPayload(map[string]interface{}{
			"error":  "PolyWhaler unavailable",
			"whales": []interface{}{},
		})
	}

	enriched := make([]map[string]interface{}, 0, len(whales))
	for _, w := range whales {
		entry := map[string]interface{}{
			"wallet":          w.Wallet,
			"name":            w.Name,
			"recent_trades":   w.RecentTradeCount,
			"recent_volume":   round2(w.RecentVolume),
			"last_trade_time": w.LastTradeTime,
		}
		if metrics, ok := tb.analytics.AnalyzeWallet(ctx, w.Wallet, w.Name); ok {
			entry["sharpe_ratio"] = round4(metrics.SharpeRatio)
			entry["win_rate"] = round2(metrics.WinRate)
			entry["max_drawdown"] = round2(metrics.MaxDrawdown)
			entry["total_trades"] = metrics.TotalTrades
		} else {
			entry["sharpe_ratio"] = 0.0
			entry["win_rate"] = 0.0
			entry["max_drawdown"] = 0.0
			entry["total_trades"] = 0
			entry["note"] = "Analysis unavailable"
		}
		enriched = append(enriched, entry)
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i]["sharpe_ratio"].(float64) > enriched[j]["sharpe_ratio"].(float64)
	})

	return jsonPayload(map[string]interface{}{
		"count":  len(enriched),
		"whales": enriched,
		"note":   "High-volume traders enriched with Sharpe ratio analysis",
	})
}

// Helper to get string param with default
func getStringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return defaultVal
}

// Helper to get int param with default
func getIntParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return defaultVal
}

// Helper to get float param with default
func getFloatParam(params map[string]interface{}, key string, defaultVal float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return defaultVal
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
