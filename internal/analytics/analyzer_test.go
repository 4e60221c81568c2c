package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
)

type stubDataAPI struct {
	mu               sync.Mutex
	leaderboard      []models.LeaderboardEntry
	trades           map[string][]models.TradeEvent
	failWallets      map[string]bool
	leaderboardCalls int
	tradeCalls       int
}

func (s *stubDataAPI) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboardCalls++
	if len(s.leaderboard) > limit {
		return s.leaderboard[:limit], nil
	}
	return s.leaderboard, nil
}

func (s *stubDataAPI) Trades(ctx context.Context, wallet string, limit int) ([]models.TradeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradeCalls++
	if s.failWallets[wallet] {
		return nil, errors.New("feed unavailable")
	}
	return s.trades[wallet], nil
}

func newTestAnalyzer(stub *stubDataAPI) *TraderAnalyzer {
	return NewTraderAnalyzer(stub, AnalyzerConfig{Workers: 2}, zerolog.Nop())
}

// Two realized exits at rising prices give wallet 0xaaa a higher Sharpe
// ratio than 0xbbb despite a worse leaderboard position; the third
// wallet has no history at all.
func rankingStub() *stubDataAPI {
	return &stubDataAPI{
		leaderboard: []models.LeaderboardEntry{
			{Wallet: "0xbbb", Username: "", Volume: "90000", PnL: "1200"},
			{Wallet: "0xaaa", Username: "steady", Volume: "50000", PnL: "800.5"},
			{Wallet: "0xccc", Username: "ghost", Volume: "10", PnL: "0"},
		},
		trades: map[string][]models.TradeEvent{
			"0xaaa": {
				trade("m1", "Yes", models.SideSell, "5", "0.90"),
				trade("m1", "Yes", models.SideSell, "5", "0.70"),
				trade("m1", "Yes", models.SideBuy, "10", "0.50"),
			},
			"0xbbb": {
				trade("m2", "No", models.SideSell, "5", "0.99"),
				trade("m2", "No", models.SideSell, "5", "0.60"),
				trade("m2", "No", models.SideBuy, "10", "0.50"),
			},
		},
	}
}

func TestAnalyzeTopRanksBySharpe(t *testing.T) {
	analyzer := newTestAnalyzer(rankingStub())

	got, err := analyzer.AnalyzeTop(context.Background(), 10)
	if err != nil {
		t.Fatalf("AnalyzeTop: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 ranked traders (no-history wallet dropped), got %d", len(got))
	}
	if got[0].Wallet != "0xaaa" || got[1].Wallet != "0xbbb" {
		t.Fatalf("expected Sharpe ordering [0xaaa 0xbbb], got [%s %s]", got[0].Wallet, got[1].Wallet)
	}
	if got[0].SharpeRatio <= got[1].SharpeRatio {
		t.Errorf("ranking not descending: %.4f then %.4f", got[0].SharpeRatio, got[1].SharpeRatio)
	}
	if got[0].Rank != 1 || got[1].Rank != 2 {
		t.Errorf("ranks not reassigned after sort: %d, %d", got[0].Rank, got[1].Rank)
	}
	if got[0].LeaderboardRank != 2 || got[1].LeaderboardRank != 1 {
		t.Errorf("leaderboard ranks lost: %d, %d", got[0].LeaderboardRank, got[1].LeaderboardRank)
	}
	if got[1].Username != "Trader_1" {
		t.Errorf("expected fallback username Trader_1, got %q", got[1].Username)
	}
	if got[0].TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", got[0].TotalTrades)
	}
	if !almostEqual(got[0].WinRate, 200.0/3.0) {
		t.Errorf("WinRate = %f, want %f", got[0].WinRate, 200.0/3.0)
	}
	if !almostEqual(got[0].LeaderboardVolume, 50000) || !almostEqual(got[0].LeaderboardPnL, 800.5) {
		t.Errorf("leaderboard stats not carried: vol=%f pnl=%f", got[0].LeaderboardVolume, got[0].LeaderboardPnL)
	}
}

func TestAnalyzeTopServesPrefixesFromOneSample(t *testing.T) {
	stub := rankingStub()
	analyzer := newTestAnalyzer(stub)
	ctx := context.Background()

	full, err := analyzer.AnalyzeTop(ctx, 10)
	if err != nil {
		t.Fatalf("AnalyzeTop: %v", err)
	}
	one, err := analyzer.AnalyzeTop(ctx, 1)
	if err != nil {
		t.Fatalf("AnalyzeTop(1): %v", err)
	}

	if len(one) != 1 || one[0].Wallet != full[0].Wallet {
		t.Fatalf("top-1 should be the prefix of the ranking, got %+v", one)
	}
	if stub.leaderboardCalls != 1 {
		t.Errorf("leaderboard fetched %d times, want 1", stub.leaderboardCalls)
	}
	if stub.tradeCalls != 3 {
		t.Errorf("trade feeds fetched %d times, want 3", stub.tradeCalls)
	}
}

func TestAnalyzeTopDropsUnfetchableWallets(t *testing.T) {
	stub := rankingStub()
	stub.failWallets = map[string]bool{"0xbbb": true}
	analyzer := newTestAnalyzer(stub)

	got, err := analyzer.AnalyzeTop(context.Background(), 10)
	if err != nil {
		t.Fatalf("AnalyzeTop: %v", err)
	}
	if len(got) != 1 || got[0].Wallet != "0xaaa" {
		t.Fatalf("expected only 0xaaa to survive, got %+v", got)
	}
}

func TestAnalyzeWallet(t *testing.T) {
	analyzer := newTestAnalyzer(rankingStub())
	ctx := context.Background()

	m, ok := analyzer.AnalyzeWallet(ctx, "0xaaa", "steady")
	if !ok {
		t.Fatal("expected analysis for wallet with history")
	}
	if m.TotalTrades != 3 || m.SharpeRatio == 0 {
		t.Errorf("metrics not computed: %+v", m)
	}

	if _, ok := analyzer.AnalyzeWallet(ctx, "0xccc", "ghost"); ok {
		t.Error("expected ok=false for wallet without history")
	}
}

func TestTopTradesSortedByValue(t *testing.T) {
	stub := &stubDataAPI{
		trades: map[string][]models.TradeEvent{
			"0xabc": {
				trade("m1", "Yes", models.SideBuy, "40", "0.50"),
				trade("m2", "No", models.SideBuy, "100", "0.90"),
				trade("m3", "Yes", models.SideBuy, "garbage", "0.10"),
			},
		},
	}
	analyzer := newTestAnalyzer(stub)

	got, err := analyzer.TopTrades(context.Background(), "0xabc", 5)
	if err != nil {
		t.Fatalf("TopTrades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected malformed trade skipped, got %d results", len(got))
	}
	if !almostEqual(got[0].Value, 90) || !almostEqual(got[1].Value, 20) {
		t.Errorf("not sorted by value: %f, %f", got[0].Value, got[1].Value)
	}
}

func TestConsensusAcrossTopTraders(t *testing.T) {
	stub := rankingStub()
	shared := trade("shared-market", "Yes", models.SideBuy, "100", "0.50")
	stub.trades["0xaaa"] = append(stub.trades["0xaaa"], shared)
	stub.trades["0xbbb"] = append(stub.trades["0xbbb"], shared)
	analyzer := newTestAnalyzer(stub)

	bets, err := analyzer.Consensus(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("Consensus: %v", err)
	}
	if len(bets) != 1 {
		t.Fatalf("expected exactly one consensus bet, got %d", len(bets))
	}
	if bets[0].Market != "shared-market" || bets[0].Traders != 2 {
		t.Errorf("unexpected consensus bet: %+v", bets[0])
	}
	if !almostEqual(bets[0].AvgVolume, 50) {
		t.Errorf("AvgVolume = %f, want 50", bets[0].AvgVolume)
	}
}
