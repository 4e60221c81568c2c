package agents

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/market"
	"polymarket-trader/internal/models"
	"polymarket-trader/internal/news"
)

type stubEngine struct {
	funds     models.FundsStatus
	fundsErr  error
	positions []models.Position
	trades    []models.SessionTrade
	placed    *models.Position
	placeErr  error

	placeBetCalls int
	lastSlug      string
	lastOutcome   string
	lastAmount    float64
	lastReasoning string
}

func (e *stubEngine) AvailableFunds(ctx context.Context) (models.FundsStatus, error) {
	return e.funds, e.fundsErr
}

func (e *stubEngine) Positions() []models.Position {
	return e.positions
}

func (e *stubEngine) TradeHistory(limit int) []models.SessionTrade {
	if limit < len(e.trades) {
		return e.trades[len(e.trades)-limit:]
	}
	return e.trades
}

func (e *stubEngine) Portfolio(ctx context.Context) (*models.PortfolioSummary, error) {
	total := 0.0
	for _, p := range e.positions {
		total += p.AmountUSD
	}
	return &models.PortfolioSummary{
		Funds:       e.funds,
		Positions:   e.positions,
		TotalStaked: total,
		TradeCount:  len(e.trades),
	}, nil
}

func (e *stubEngine) PlaceBet(ctx context.Context, slug, outcome string, amountUSD float64, reasoning string) (*models.Position, error) {
	e.placeBetCalls++
	e.lastSlug = slug
	e.lastOutcome = outcome
	e.lastAmount = amountUSD
	e.lastReasoning = reasoning
	if e.placeErr != nil {
		return nil, e.placeErr
	}
	return e.placed, nil
}

type stubAnalytics struct {
	top       []models.ParticipantMetrics
	topErr    error
	requested int
	byWallet  map[string]models.ParticipantMetrics
	trades    []models.TradeInfo
	consensus []models.ConsensusBet
}

func (a *stubAnalytics) AnalyzeTop(ctx context.Context, n int) ([]models.ParticipantMetrics, error) {
	a.requested = n
	if a.topErr != nil {
		return nil, a.topErr
	}
	if n < len(a.top) {
		return a.top[:n], nil
	}
	return a.top, nil
}

func (a *stubAnalytics) AnalyzeWallet(ctx context.Context, wallet, username string) (models.ParticipantMetrics, bool) {
	m, ok := a.byWallet[wallet]
	return m, ok
}

func (a *stubAnalytics) TopTrades(ctx context.Context, wallet string, n int) ([]models.TradeInfo, error) {
	return a.trades, nil
}

func (a *stubAnalytics) Consensus(ctx context.Context, topN, minTraders int) ([]models.ConsensusBet, error) {
	return a.consensus, nil
}

type stubMarkets struct {
	details    *models.MarketDetails
	detailsErr error
	active     []market.Market
	inactive   map[string]bool
}

func (m *stubMarkets) Details(ctx context.Context, slug string) (*models.MarketDetails, error) {
	return m.details, m.detailsErr
}

func (m *stubMarkets) Active(ctx context.Context, limit int) ([]market.Market, error) {
	return m.active, nil
}

func (m *stubMarkets) IsActive(ctx context.Context, slug string) bool {
	return !m.inactive[slug]
}

type stubWhales struct {
	whales []models.WhaleSuggestion
	err    error
}

func (w *stubWhales) SuggestedWhales(ctx context.Context, limit int) ([]models.WhaleSuggestion, error) {
	return w.whales, w.err
}

type stubSearcher struct {
	results []news.SearchResult
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]news.SearchResult, error) {
	return s.results, s.err
}

type toolboxDeps struct {
	engine    *stubEngine
	analytics *stubAnalytics
	markets   *stubMarkets
	whales    *stubWhales
	searcher  *stubSearcher
	cfg       *config.Config
}

func newTestToolbox(t *testing.T) (*Toolbox, *toolboxDeps) {
	t.Helper()
	deps := &toolboxDeps{
		engine:    &stubEngine{funds: models.FundsStatus{Balance: 50, Available: 50, DryRun: true}},
		analytics: &stubAnalytics{byWallet: map[string]models.ParticipantMetrics{}},
		markets:   &stubMarkets{inactive: map[string]bool{}},
		whales:    &stubWhales{},
		searcher:  &stubSearcher{},
		cfg: &config.Config{
			Trading: config.TradingConfig{Mode: "dry-run", MaxSingleBetPercent: 25},
			Agents: config.AgentConfig{
				Provider:            "openai",
				MaxIterations:       10,
				TopTradersCount:     10,
				MinConsensusTraders: 2,
			},
			Dir: t.TempDir(),
		},
	}
	tb := NewToolbox(deps.engine, deps.analytics, deps.markets, deps.whales, deps.searcher, deps.cfg, zerolog.Nop())
	return tb, deps
}

func decodeObject(t *testing.T, payload string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("payload is not a JSON object: %v\n%s", err, payload)
	}
	return out
}

func decodeArray(t *testing.T, payload string) []interface{} {
	t.Helper()
	var out []interface{}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("payload is not a JSON array: %v\n%s", err, payload)
	}
	return out
}

func TestGetAvailableFunds(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.engine.funds = models.FundsStatus{Balance: 100, Locked: 20, Available: 80, DryRun: true}
	deps.engine.positions = []models.Position{{MarketSlug: "us-recession-2026", AmountUSD: 10}}

	payload, err := tb.executeGetAvailableFunds(context.Background(), nil)
	if err != nil {
		t.Fatalf("executeGetAvailableFunds: %v", err)
	}

	obj := decodeObject(t, payload)
	if obj["balance_usd"] != 100.0 {
		t.Errorf("balance_usd = %v, want 100", obj["balance_usd"])
	}
	if obj["locked_in_orders"] != 20.0 {
		t.Errorf("locked_in_orders = %v, want 20", obj["locked_in_orders"])
	}
	if obj["available_balance"] != 80.0 {
		t.Errorf("available_balance = %v, want 80", obj["available_balance"])
	}
	if obj["positions_count"] != 1.0 {
		t.Errorf("positions_count = %v, want 1", obj["positions_count"])
	}
	if obj["total_invested"] != 10.0 {
		t.Errorf("total_invested = %v, want 10", obj["total_invested"])
	}
	if obj["max_single_bet"] != 20.0 {
		t.Errorf("max_single_bet = %v, want 20 (25%% of 80)", obj["max_single_bet"])
	}
	if obj["mode"] != "DRY_RUN" {
		t.Errorf("mode = %v, want DRY_RUN", obj["mode"])
	}
}

func TestGetTradeHistoryEmpty(t *testing.T) {
	tb, _ := newTestToolbox(t)

	payload, err := tb.executeGetTradeHistory(context.Background(), nil)
	if err != nil {
		t.Fatalf("executeGetTradeHistory: %v", err)
	}

	obj := decodeObject(t, payload)
	if obj["total_trades"] != 0.0 {
		t.Errorf("total_trades = %v, want 0", obj["total_trades"])
	}
	if _, ok := obj["message"]; !ok {
		t.Error("empty history should carry an explanatory message")
	}
}

func TestGetTradeHistoryRespectsLimit(t *testing.T) {
	tb, deps := newTestToolbox(t)
	for i := 0; i < 5; i++ {
		deps.engine.trades = append(deps.engine.trades, models.SessionTrade{
			MarketSlug: "market-a",
			Outcome:    "Yes",
			Side:       models.SideBuy,
			AmountUSD:  10,
			Price:      0.55,
			Shares:     18.18,
			Timestamp:  time.Now(),
		})
	}

	payload, err := tb.executeGetTradeHistory(context.Background(), map[string]interface{}{"limit": 2.0})
	if err != nil {
		t.Fatalf("executeGetTradeHistory: %v", err)
	}

	obj := decodeObject(t, payload)
	trades, ok := obj["trades"].([]interface{})
	if !ok {
		t.Fatalf("trades is %T, want array", obj["trades"])
	}
	if len(trades) != 2 {
		t.Errorf("len(trades) = %d, want 2", len(trades))
	}
}

func TestGetTopTradersCapsRequest(t *testing.T) {
	tb, deps := newTestToolbox(t)

	if _, err := tb.executeGetTopTraders(context.Background(), map[string]interface{}{"n": 500.0}); err != nil {
		t.Fatalf("executeGetTopTraders: %v", err)
	}
	if deps.analytics.requested != 50 {
		t.Errorf("requested %d traders, want the cap of 50", deps.analytics.requested)
	}
}

func TestGetTopTradersPayload(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.analytics.top = []models.ParticipantMetrics{
		{
			Wallet:          "0x1111111111111111111111111111111111111111",
			Username:        "whale-one",
			Rank:            1,
			LeaderboardRank: 3,
			LeaderboardPnL:  12345.678,
			TotalTrades:     321,
			SharpeRatio:     2.34567,
			WinRate:         61.5,
			MaxDrawdown:     -12.25,
		},
	}

	payload, err := tb.executeGetTopTraders(context.Background(), map[string]interface{}{"n": 1.0})
	if err != nil {
		t.Fatalf("executeGetTopTraders: %v", err)
	}

	list := decodeArray(t, payload)
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	entry := list[0].(map[string]interface{})
	if entry["username"] != "whale-one" {
		t.Errorf("username = %v", entry["username"])
	}
	if entry["sharpe_ratio"] != 2.3457 {
		t.Errorf("sharpe_ratio = %v, want 2.3457", entry["sharpe_ratio"])
	}
	if entry["max_drawdown"] != -12.25 {
		t.Errorf("max_drawdown = %v, want -12.25", entry["max_drawdown"])
	}
	if entry["rank"] != 1.0 {
		t.Errorf("rank = %v, want 1", entry["rank"])
	}
}

func TestGetTraderTopTradesRejectsBadWallet(t *testing.T) {
	tb, _ := newTestToolbox(t)

	_, err := tb.executeGetTraderTopTrades(context.Background(), map[string]interface{}{"wallet": "not-a-wallet"})
	if err == nil {
		t.Fatal("expected a validation error for a malformed wallet")
	}
}

func TestGetTraderTopTradesFiltersResolvedMarkets(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.analytics.trades = []models.TradeInfo{
		{MarketSlug: "open-market", MarketTitle: "Open?", Outcome: "Yes", Side: models.SideBuy, Value: 1000, Price: 0.6, Size: 1666.7},
		{MarketSlug: "resolved-market", MarketTitle: "Done?", Outcome: "No", Side: models.SideBuy, Value: 900, Price: 0.4, Size: 2250},
		{MarketSlug: "open-market-2", MarketTitle: "Open 2?", Outcome: "Yes", Side: models.SideSell, Value: 800, Price: 0.7, Size: 1142.9},
	}
	deps.markets.inactive["resolved-market"] = true

	payload, err := tb.executeGetTraderTopTrades(context.Background(), map[string]interface{}{
		"wallet": "0x2222222222222222222222222222222222222222",
		"n":      5.0,
	})
	if err != nil {
		t.Fatalf("executeGetTraderTopTrades: %v", err)
	}

	list := decodeArray(t, payload)
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 after dropping the resolved market", len(list))
	}
	for _, raw := range list {
		entry := raw.(map[string]interface{})
		if entry["market_slug"] == "resolved-market" {
			t.Error("resolved market leaked into the listing")
		}
		if entry["status"] != "active" {
			t.Errorf("status = %v, want active", entry["status"])
		}
	}
}

func TestGetConsensusBetsFiltersAndCaps(t *testing.T) {
	tb, deps := newTestToolbox(t)
	for i := 0; i < 25; i++ {
		slug := "consensus-" + string(rune('a'+i))
		deps.analytics.consensus = append(deps.analytics.consensus, models.ConsensusBet{
			Market:    slug,
			Outcome:   "Yes",
			Traders:   3,
			AvgVolume: 500,
		})
	}
	deps.markets.inactive["consensus-a"] = true
	deps.markets.inactive["consensus-b"] = true

	payload, err := tb.executeGetConsensusBets(context.Background(), nil)
	if err != nil {
		t.Fatalf("executeGetConsensusBets: %v", err)
	}

	list := decodeArray(t, payload)
	if len(list) != 20 {
		t.Fatalf("len = %d, want the cap of 20", len(list))
	}
	for _, raw := range list {
		entry := raw.(map[string]interface{})
		slug := entry["market_slug"].(string)
		if slug == "consensus-a" || slug == "consensus-b" {
			t.Errorf("inactive market %s leaked into consensus listing", slug)
		}
	}
}

func TestGetMarketDetails(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.markets.details = &models.MarketDetails{
		Slug:            "fed-cuts-rates-september",
		Title:           "Will the Fed cut rates in September?",
		Description:     "Resolves Yes if the FOMC lowers the target range.",
		Category:        "Economics",
		Active:          true,
		AcceptingOrders: true,
		Tradeable:       true,
		EndDate:         "2026-09-18T00:00:00Z",
		Outcomes:        []string{"Yes", "No"},
		Volume:          1234567.89,
		Liquidity:       45678.12,
		Quotes: []models.OutcomeQuote{
			{Outcome: "Yes", Price: 0.62, ImpliedProbability: 62, PotentialReturn: 61.3, PayoutIfWins: 1.61},
			{Outcome: "No", Price: 0.39, ImpliedProbability: 39, PotentialReturn: 156.4, PayoutIfWins: 2.56},
		},
	}

	payload, err := tb.executeGetMarketDetails(context.Background(), map[string]interface{}{"market_slug": "fed-cuts-rates-september"})
	if err != nil {
		t.Fatalf("executeGetMarketDetails: %v", err)
	}

	obj := decodeObject(t, payload)
	if obj["title"] != "Will the Fed cut rates in September?" {
		t.Errorf("title = %v", obj["title"])
	}
	if obj["tradeable"] != true {
		t.Errorf("tradeable = %v, want true", obj["tradeable"])
	}
	quotes, ok := obj["quotes"].([]interface{})
	if !ok || len(quotes) != 2 {
		t.Fatalf("quotes = %v, want 2 entries", obj["quotes"])
	}
	yes := quotes[0].(map[string]interface{})
	if yes["implied_probability"] != "62.0%" {
		t.Errorf("implied_probability = %v, want 62.0%%", yes["implied_probability"])
	}
}

func TestGetMarketDetailsRejectsBadSlug(t *testing.T) {
	tb, _ := newTestToolbox(t)

	if _, err := tb.executeGetMarketDetails(context.Background(), map[string]interface{}{"market_slug": "DROP TABLE; --"}); err == nil {
		t.Fatal("expected a validation error for a malformed slug")
	}
}

func TestPlaceBetRequiresOutcomeAndReasoning(t *testing.T) {
	tb, deps := newTestToolbox(t)

	_, err := tb.executePlaceBet(context.Background(), map[string]interface{}{
		"market_slug": "us-recession-2026",
		"amount_usd":  10.0,
		"reasoning":   "three traders agree",
	})
	if err == nil || !strings.Contains(err.Error(), "outcome") {
		t.Errorf("missing outcome: err = %v, want outcome error", err)
	}
	if deps.engine.placeBetCalls != 0 {
		t.Error("engine must not be called when validation fails")
	}

	_, err = tb.executePlaceBet(context.Background(), map[string]interface{}{
		"market_slug": "us-recession-2026",
		"outcome":     "Yes",
		"amount_usd":  10.0,
	})
	if err == nil || !strings.Contains(err.Error(), "reasoning") {
		t.Errorf("missing reasoning: err = %v, want reasoning error", err)
	}
}

func TestPlaceBetRejectsNonPositiveAmount(t *testing.T) {
	tb, deps := newTestToolbox(t)

	_, err := tb.executePlaceBet(context.Background(), map[string]interface{}{
		"market_slug": "us-recession-2026",
		"outcome":     "Yes",
		"amount_usd":  0.0,
		"reasoning":   "test",
	})
	if err == nil {
		t.Fatal("expected an amount validation error")
	}
	if deps.engine.placeBetCalls != 0 {
		t.Error("engine must not be called for a zero amount")
	}
}

func TestPlaceBetSuccess(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.engine.placed = &models.Position{
		MarketSlug: "us-recession-2026",
		Outcome:    "Yes",
		AmountUSD:  10,
		Price:      0.55,
		Shares:     18.18,
		OrderID:    "sim-1",
		DryRun:     true,
	}

	payload, err := tb.executePlaceBet(context.Background(), map[string]interface{}{
		"market_slug": "us-recession-2026",
		"outcome":     "Yes",
		"amount_usd":  10.0,
		"reasoning":   "consensus of four traders with Sharpe above 1.5",
	})
	if err != nil {
		t.Fatalf("executePlaceBet: %v", err)
	}

	if deps.engine.lastSlug != "us-recession-2026" || deps.engine.lastOutcome != "Yes" || deps.engine.lastAmount != 10 {
		t.Errorf("engine received (%s, %s, %v)", deps.engine.lastSlug, deps.engine.lastOutcome, deps.engine.lastAmount)
	}

	obj := decodeObject(t, payload)
	if obj["success"] != true {
		t.Errorf("success = %v, want true", obj["success"])
	}
	if obj["mode"] != "DRY_RUN" {
		t.Errorf("mode = %v, want DRY_RUN", obj["mode"])
	}
	if obj["shares"] != 18.18 {
		t.Errorf("shares = %v, want 18.18", obj["shares"])
	}
}

func TestPlaceBetEnforcesSingleBetCap(t *testing.T) {
	tb, deps := newTestToolbox(t)

	// Available funds are 50 and the cap is 25%, so 20 must bounce.
	_, err := tb.executePlaceBet(context.Background(), map[string]interface{}{
		"market_slug": "us-recession-2026",
		"outcome":     "Yes",
		"amount_usd":  20.0,
		"reasoning":   "oversized conviction",
	})
	var riskErr *apperrors.RiskError
	if !errors.As(err, &riskErr) {
		t.Fatalf("err = %v, want RiskError", err)
	}
	if riskErr.Rule != "max_single_bet" {
		t.Errorf("Rule = %q, want max_single_bet", riskErr.Rule)
	}
	if riskErr.Limit != 12.5 {
		t.Errorf("Limit = %v, want 12.5", riskErr.Limit)
	}
	if deps.engine.placeBetCalls != 0 {
		t.Error("engine must not be called when the cap rejects the stake")
	}
}

func TestSearchNewsDegradesToPayloadOnError(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.searcher.err = context.DeadlineExceeded

	payload, err := tb.executeSearchNews(context.Background(), map[string]interface{}{"query": "Fed rate cut"})
	if err != nil {
		t.Fatalf("search failure must degrade to a payload, got error: %v", err)
	}

	obj := decodeObject(t, payload)
	if obj["note"] != "News unavailable" {
		t.Errorf("note = %v, want News unavailable", obj["note"])
	}
	if _, ok := obj["error"]; !ok {
		t.Error("degraded payload should carry the error text")
	}
}

func TestSearchNewsResults(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.searcher.results = []news.SearchResult{
		{Title: "Fed signals cut", URL: "https://example.com/fed", Content: "snippet", Score: 0.97},
	}

	payload, err := tb.executeSearchNews(context.Background(), map[string]interface{}{"query": "Fed rate cut"})
	if err != nil {
		t.Fatalf("executeSearchNews: %v", err)
	}

	obj := decodeObject(t, payload)
	if obj["results_count"] != 1.0 {
		t.Errorf("results_count = %v, want 1", obj["results_count"])
	}
	articles := obj["articles"].([]interface{})
	first := articles[0].(map[string]interface{})
	if first["title"] != "Fed signals cut" {
		t.Errorf("title = %v", first["title"])
	}
}

func TestReadKnowledgeBase(t *testing.T) {
	tb, deps := newTestToolbox(t)

	payload, err := tb.executeReadKnowledgeBase(context.Background(), nil)
	if err != nil {
		t.Fatalf("missing knowledge base must not be an error: %v", err)
	}
	obj := decodeObject(t, payload)
	if obj["available"] != false {
		t.Errorf("available = %v, want false", obj["available"])
	}

	kbPath := filepath.Join(deps.cfg.Dir, "knowledge_base.txt")
	if err := os.WriteFile(kbPath, []byte("Strategy: nothing ever happens."), 0o644); err != nil {
		t.Fatalf("write knowledge base: %v", err)
	}

	payload, err = tb.executeReadKnowledgeBase(context.Background(), nil)
	if err != nil {
		t.Fatalf("executeReadKnowledgeBase: %v", err)
	}
	obj = decodeObject(t, payload)
	if obj["available"] != true {
		t.Errorf("available = %v, want true", obj["available"])
	}
	if obj["content"] != "Strategy: nothing ever happens." {
		t.Errorf("content = %v", obj["content"])
	}
}

func TestGetSuggestedWhalesFallback(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.whales.err = context.DeadlineExceeded

	payload, err := tb.executeGetSuggestedWhales(context.Background(), nil)
	if err != nil {
		t.Fatalf("feed failure must degrade to a payload, got error: %v", err)
	}

	obj := decodeObject(t, payload)
	if obj["error"] != "PolyWhaler unavailable" {
		t.Errorf("error = %v, want PolyWhaler unavailable", obj["error"])
	}
	whales, ok := obj["whales"].([]interface{})
	if !ok || len(whales) != 0 {
		t.Errorf("whales = %v, want empty array", obj["whales"])
	}
}

func TestGetSuggestedWhalesEnrichment(t *testing.T) {
	tb, deps := newTestToolbox(t)
	deps.whales.whales = []models.WhaleSuggestion{
		{Wallet: "0x3333333333333333333333333333333333333333", Name: "quiet-whale", RecentTradeCount: 4, RecentVolume: 9000},
		{Wallet: "0x4444444444444444444444444444444444444444", Name: "sharp-whale", RecentTradeCount: 12, RecentVolume: 50000},
	}
	deps.analytics.byWallet["0x4444444444444444444444444444444444444444"] = models.ParticipantMetrics{
		SharpeRatio: 1.8,
		WinRate:     65,
		MaxDrawdown: -8,
		TotalTrades: 210,
	}

	payload, err := tb.executeGetSuggestedWhales(context.Background(), map[string]interface{}{"limit": 2.0})
	if err != nil {
		t.Fatalf("executeGetSuggestedWhales: %v", err)
	}

	obj := decodeObject(t, payload)
	if obj["count"] != 2.0 {
		t.Errorf("count = %v, want 2", obj["count"])
	}
	whales := obj["whales"].([]interface{})
	first := whales[0].(map[string]interface{})
	if first["name"] != "sharp-whale" {
		t.Errorf("first whale = %v, want the analyzable one sorted first", first["name"])
	}
	if first["sharpe_ratio"] != 1.8 {
		t.Errorf("sharpe_ratio = %v, want 1.8", first["sharpe_ratio"])
	}
	second := whales[1].(map[string]interface{})
	if second["note"] != "Analysis unavailable" {
		t.Errorf("unanalyzable whale should carry a note, got %v", second["note"])
	}
	if second["total_trades"] != 0.0 {
		t.Errorf("total_trades = %v, want 0 for the unanalyzable whale", second["total_trades"])
	}
}
