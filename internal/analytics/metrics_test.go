package analytics

import (
	"testing"

	"polymarket-trader/internal/models"
)

func TestSharpeRequiresTwoEvents(t *testing.T) {
	engine := RiskEngine{}
	if got := engine.Sharpe([]float64{5.0}); got != 0.0 {
		t.Fatalf("expected 0.0 for single event, got %v", got)
	}
	if got := engine.Sharpe(nil); got != 0.0 {
		t.Fatalf("expected 0.0 for empty series, got %v", got)
	}
}

func TestSharpeZeroVariance(t *testing.T) {
	engine := RiskEngine{}
	if got := engine.Sharpe([]float64{1.0, 1.0, 1.0}); got != 0.0 {
		t.Fatalf("expected 0.0 for zero variance, got %v", got)
	}
}

func TestSharpeKnownValue(t *testing.T) {
	engine := RiskEngine{}
	// Mean 2.0, sample deviation 1.0.
	if got := engine.Sharpe([]float64{1.0, 2.0, 3.0}); !almostEqual(got, 2.0) {
		t.Fatalf("expected 2.0, got %v", got)
	}
}

func TestVolatilitySampleDeviation(t *testing.T) {
	engine := RiskEngine{}
	if got := engine.Volatility([]float64{1.0, 2.0, 3.0}); !almostEqual(got, 1.0) {
		t.Fatalf("expected 1.0, got %v", got)
	}
	if got := engine.Volatility([]float64{7.0}); got != 0.0 {
		t.Fatalf("expected 0.0 for single event, got %v", got)
	}
}

func TestMaxDrawdownIncreasingSeries(t *testing.T) {
	engine := RiskEngine{}
	if got := engine.MaxDrawdown([]float64{1.0, 2.0, 3.0}); got != 0.0 {
		t.Fatalf("expected 0.0 for monotonic gains, got %v", got)
	}
}

func TestMaxDrawdownKnownDecline(t *testing.T) {
	engine := RiskEngine{}
	// Cumulative curve [10, 5]: a 50% decline from the peak.
	if got := engine.MaxDrawdown([]float64{10.0, -5.0}); !almostEqual(got, -50.0) {
		t.Fatalf("expected -50.0, got %v", got)
	}
}

func TestMaxDrawdownNegativePeakScaling(t *testing.T) {
	engine := RiskEngine{}
	// Cumulative curve [-10, -15]: deepening losses measured against
	// the magnitude of the negative peak.
	if got := engine.MaxDrawdown([]float64{-10.0, -5.0}); !almostEqual(got, -50.0) {
		t.Fatalf("expected -50.0, got %v", got)
	}
}

func TestMaxDrawdownZeroPeak(t *testing.T) {
	engine := RiskEngine{}
	// Peak stays at zero; declines from a zero peak are not ratios.
	if got := engine.MaxDrawdown([]float64{0.0, -5.0}); got != 0.0 {
		t.Fatalf("expected 0.0 for zero peak, got %v", got)
	}
}

func TestRecencyWindowRestrictsWindowedStats(t *testing.T) {
	full := RiskEngine{}
	windowed := RiskEngine{RecencyWindow: 2}
	returns := []float64{100.0, 1.0, 1.0}

	// Full series has variance; the last two events do not.
	if got := full.Sharpe(returns); got == 0.0 {
		t.Fatalf("expected nonzero sharpe over full series, got %v", got)
	}
	if got := windowed.Sharpe(returns); got != 0.0 {
		t.Fatalf("expected 0.0 sharpe over window, got %v", got)
	}

	// Mean return always covers the full series.
	stats := windowed.Compute(returns)
	if !almostEqual(stats.MeanReturn, 34.0) {
		t.Fatalf("expected full-series mean 34.0, got %v", stats.MeanReturn)
	}
	if stats.Events != 3 {
		t.Fatalf("expected 3 events, got %d", stats.Events)
	}
}

func TestWinRateCountsProfitableExits(t *testing.T) {
	trades := []models.TradeEvent{
		trade("m1", "Yes", models.SideSell, "10", "0.60"),
		trade("m1", "Yes", models.SideSell, "10", "0.40"),
		trade("m1", "Yes", models.SideBuy, "10", "0.90"),
		{Market: "m1", Outcome: "Yes", Side: models.SideSell, Size: models.Numeric("10"), Price: models.Numeric("bad")},
	}

	// One SELL above 0.5 out of four trades.
	if got := WinRate(trades); !almostEqual(got, 25.0) {
		t.Fatalf("expected 25.0, got %v", got)
	}
	if got := WinRate(nil); got != 0.0 {
		t.Fatalf("expected 0.0 for empty feed, got %v", got)
	}
}
