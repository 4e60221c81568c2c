package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
	"polymarket-trader/internal/performance"
)

// DataAPI is the slice of the data client the analyzer depends on.
type DataAPI interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Trades(ctx context.Context, wallet string, limit int) ([]models.TradeEvent, error)
}

// AnalyzerConfig tunes the analysis pipeline.
type AnalyzerConfig struct {
	SampleSize     int           // leaderboard entries analyzed per refresh
	TradeLimit     int           // trades fetched per wallet
	RecencyWindow  int           // 0 disables windowed statistics
	SettleResolved bool          // credit resolved markets to open positions
	CacheTTL       time.Duration // freshness of analysis results
	Workers        int           // parallel per-trader analysis
	MinTraders     int           // consensus backing threshold
}

// DefaultAnalyzerConfig returns the default pipeline tuning.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SampleSize: 50,
		TradeLimit: 500,
		CacheTTL:   DefaultCacheTTL,
		Workers:    4,
		MinTraders: DefaultMinTraders,
	}
}

// rankedCacheKey holds the full Sharpe-ranked sample; top-n requests are
// served as prefixes of it.
const rankedCacheKey = "ranked"

// TraderAnalyzer ranks leaderboard traders by risk metrics computed
// from their reconstructed returns and surfaces consensus bets across
// the best of them. Results are cached so repeated tool calls within a
// session do not hammer the data API.
type TraderAnalyzer struct {
	data          DataAPI
	reconstructor ReturnsReconstructor
	engine        RiskEngine
	consensus     ConsensusAggregator
	sampleSize    int
	tradeLimit    int
	workers       int
	rankedCache   *Cache[[]models.ParticipantMetrics]
	tradesCache   *Cache[[]models.TradeEvent]
	logger        zerolog.Logger
}

// NewTraderAnalyzer creates an analyzer over the given data client.
func NewTraderAnalyzer(data DataAPI, cfg AnalyzerConfig, logger zerolog.Logger) *TraderAnalyzer {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 50
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &TraderAnalyzer{
		data:          data,
		reconstructor: ReturnsReconstructor{SettleResolved: cfg.SettleResolved},
		engine:        RiskEngine{RecencyWindow: cfg.RecencyWindow},
		consensus:     ConsensusAggregator{MinTraders: cfg.MinTraders},
		sampleSize:    cfg.SampleSize,
		tradeLimit:    cfg.TradeLimit,
		workers:       cfg.Workers,
		rankedCache:   NewCache[[]models.ParticipantMetrics](cfg.CacheTTL),
		tradesCache:   NewCache[[]models.TradeEvent](cfg.CacheTTL),
		logger:        logger.With().Str("component", "analyzer").Logger(),
	}
}

// AnalyzeTop returns the top n traders from the leaderboard sample,
// ranked by Sharpe ratio. The whole sample is analyzed on a worker pool
// and cached, so subsequent calls with any n are served from the same
// ranking until the TTL expires. Traders whose trade feed is empty or
// unavailable are dropped from the ranking rather than scored at zero.
func (a *TraderAnalyzer) AnalyzeTop(ctx context.Context, n int) ([]models.ParticipantMetrics, error) {
	if n <= 0 {
		n = 10
	}
	if n > a.sampleSize {
		n = a.sampleSize
	}

	ranked, ok := a.rankedCache.Get(rankedCacheKey)
	if !ok {
		var err error
		ranked, err = a.rankSample(ctx)
		if err != nil {
			return nil, err
		}
		a.rankedCache.Set(rankedCacheKey, ranked)
	}

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// rankSample analyzes the full leaderboard sample and orders it by
// Sharpe ratio, best first. Ties keep leaderboard order.
func (a *TraderAnalyzer) rankSample(ctx context.Context) ([]models.ParticipantMetrics, error) {
	entries, err := a.data.Leaderboard(ctx, a.sampleSize)
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	if len(entries) > a.sampleSize {
		entries = entries[:a.sampleSize]
	}

	results := make([]models.ParticipantMetrics, len(entries))
	pool := performance.NewWorkerPool(a.workers)
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for i, entry := range entries {
		i, entry := i, entry
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = a.analyzeOne(ctx, i+1, entry)
		}
		if !pool.Submit(task) {
			task()
		}
	}
	wg.Wait()

	ranked := make([]models.ParticipantMetrics, 0, len(results))
	for _, m := range results {
		if m.TotalTrades == 0 {
			continue
		}
		ranked = append(ranked, m)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SharpeRatio > ranked[j].SharpeRatio
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	a.logger.Debug().
		Int("sample", len(entries)).
		Int("ranked", len(ranked)).
		Msg("Leaderboard sample analyzed")
	return ranked, nil
}

func (a *TraderAnalyzer) analyzeOne(ctx context.Context, lbRank int, entry models.LeaderboardEntry) models.ParticipantMetrics {
	m := models.ParticipantMetrics{
		Wallet:          entry.Wallet,
		Username:        entry.Username,
		LeaderboardRank: lbRank,
	}
	if m.Username == "" {
		m.Username = fmt.Sprintf("Trader_%d", lbRank)
	}
	if vol, ok := entry.Volume.Float64(); ok {
		m.LeaderboardVolume = vol
	}
	if pnl, ok := entry.PnL.Float64(); ok {
		m.LeaderboardPnL = pnl
	}

	feed, err := a.walletTrades(ctx, entry.Wallet)
	if err != nil {
		a.logger.Warn().Err(err).Str("wallet", entry.Wallet).Msg("Trade feed unavailable, dropping trader from ranking")
		return m
	}

	a.score(&m, feed)
	return m
}

// AnalyzeWallet computes metrics for a single wallet outside the
// leaderboard ranking, used to vet externally suggested traders. ok is
// false when the wallet has no retrievable trade history.
func (a *TraderAnalyzer) AnalyzeWallet(ctx context.Context, wallet, username string) (models.ParticipantMetrics, bool) {
	m := models.ParticipantMetrics{Wallet: wallet, Username: username}

	feed, err := a.walletTrades(ctx, wallet)
	if err != nil || len(feed) == 0 {
		return m, false
	}

	a.score(&m, feed)
	return m, true
}

func (a *TraderAnalyzer) score(m *models.ParticipantMetrics, feed []models.TradeEvent) {
	returns := a.reconstructor.Reconstruct(feed)
	stats := a.engine.Compute(returns)

	m.TotalTrades = len(feed)
	m.SharpeRatio = stats.Sharpe
	m.MeanReturn = stats.MeanReturn
	m.Volatility = stats.Volatility
	m.MaxDrawdown = stats.MaxDrawdown
	m.WinRate = WinRate(feed)
}

// TopTrades returns the wallet's n largest trades by notional value.
func (a *TraderAnalyzer) TopTrades(ctx context.Context, wallet string, n int) ([]models.TradeInfo, error) {
	feed, err := a.walletTrades(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("fetch trades for %s: %w", wallet, err)
	}

	infos := make([]models.TradeInfo, 0, len(feed))
	for _, t := range feed {
		size, ok := t.Size.Float64()
		if !ok {
			continue
		}
		price, ok := t.Price.Float64()
		if !ok {
			continue
		}
		ts, _ := t.Timestamp.Int64()
		title := t.Title
		if title == "" {
			title = t.Market
		}
		infos = append(infos, models.TradeInfo{
			MarketTitle: title,
			MarketSlug:  t.Slug,
			Outcome:     t.Outcome,
			Side:        t.Side,
			Size:        size,
			Price:       price,
			Value:       size * price,
			Timestamp:   ts,
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Value > infos[j].Value
	})
	if n > 0 && len(infos) > n {
		infos = infos[:n]
	}
	return infos, nil
}

// Consensus computes consensus bets across the top n analyzed traders.
// minTraders overrides the configured threshold when positive.
func (a *TraderAnalyzer) Consensus(ctx context.Context, topN, minTraders int) ([]models.ConsensusBet, error) {
	metrics, err := a.AnalyzeTop(ctx, topN)
	if err != nil {
		return nil, err
	}

	byWallet := make(map[string][]models.TradeEvent, len(metrics))
	for _, m := range metrics {
		if m.Wallet == "" {
			continue
		}
		feed, err := a.walletTrades(ctx, m.Wallet)
		if err != nil {
			a.logger.Warn().Err(err).Str("wallet", m.Wallet).Msg("Skipping wallet in consensus scan")
			continue
		}
		byWallet[m.Wallet] = feed
	}

	agg := a.consensus
	if minTraders > 0 {
		agg.MinTraders = minTraders
	}
	return agg.Aggregate(byWallet), nil
}

// walletTrades returns the wallet's raw feed, cached for the TTL.
func (a *TraderAnalyzer) walletTrades(ctx context.Context, wallet string) ([]models.TradeEvent, error) {
	if cached, ok := a.tradesCache.Get(wallet); ok {
		return cached, nil
	}
	feed, err := a.data.Trades(ctx, wallet, a.tradeLimit)
	if err != nil {
		return nil, err
	}
	a.tradesCache.Set(wallet, feed)
	return feed, nil
}
