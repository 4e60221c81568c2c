package analytics

import (
	"math"

	"polymarket-trader/internal/models"
)

// RiskEngine computes risk statistics over reconstructed return series.
// RecencyWindow, when positive, restricts Sharpe, volatility, and
// drawdown to the most recent events so stale history cannot mask a
// trader's current form. Mean return and trade counts always cover the
// full series.
type RiskEngine struct {
	RecencyWindow int
	RiskFreeRate  float64
}

// Metrics is the statistics bundle for one return series.
type Metrics struct {
	Sharpe      float64
	MeanReturn  float64
	Volatility  float64
	MaxDrawdown float64 // percent, never positive
	Events      int
}

// Compute bundles all statistics for one series.
func (e RiskEngine) Compute(returns []float64) Metrics {
	return Metrics{
		Sharpe:      e.Sharpe(returns),
		MeanReturn:  mean(returns),
		Volatility:  e.Volatility(returns),
		MaxDrawdown: e.MaxDrawdown(returns),
		Events:      len(returns),
	}
}

// Sharpe returns the sample Sharpe ratio of the series. Fewer than two
// events or a zero sample deviation yield 0.0 rather than a division
// blowup.
func (e RiskEngine) Sharpe(returns []float64) float64 {
	w := e.window(returns)
	if len(w) < 2 {
		return 0.0
	}
	sd := sampleStdDev(w)
	if sd == 0 {
		return 0.0
	}
	return (mean(w) - e.RiskFreeRate) / sd
}

// Volatility returns the sample standard deviation of the series, 0.0
// when fewer than two events are available.
func (e RiskEngine) Volatility(returns []float64) float64 {
	w := e.window(returns)
	if len(w) < 2 {
		return 0.0
	}
	return sampleStdDev(w)
}

// MaxDrawdown returns the deepest percentage decline of the cumulative
// return curve measured from its running peak. The peak starts at the
// first cumulative value, and declines from a negative peak are scaled
// by its magnitude, so curves that begin underwater still measure real
// deterioration. The result is never positive.
func (e RiskEngine) MaxDrawdown(returns []float64) float64 {
	w := e.window(returns)
	if len(w) == 0 {
		return 0.0
	}

	cumulative := make([]float64, len(w))
	sum := 0.0
	for i, r := range w {
		sum += r
		cumulative[i] = sum
	}

	peak := cumulative[0]
	maxDD := 0.0
	for _, value := range cumulative {
		if value > peak {
			peak = value
		}
		var dd float64
		switch {
		case peak > 0:
			dd = (value - peak) / peak * 100
		case peak < 0:
			dd = (value - peak) / math.Abs(peak) * 100
		default:
			dd = 0
		}
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// window returns the slice the windowed statistics operate on.
func (e RiskEngine) window(returns []float64) []float64 {
	if e.RecencyWindow > 0 && len(returns) > e.RecencyWindow {
		return returns[len(returns)-e.RecencyWindow:]
	}
	return returns
}

// WinRate returns the percentage of trades in the raw feed that exited
// above even money: SELLs priced over 0.5. The denominator is the full
// feed, entries included.
func WinRate(trades []models.TradeEvent) float64 {
	if len(trades) == 0 {
		return 0.0
	}
	wins := 0
	for _, t := range trades {
		if t.Side != models.SideSell {
			continue
		}
		price, ok := t.Price.Float64()
		if !ok {
			continue
		}
		if price > 0.5 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the n-1 normalized standard deviation.
func sampleStdDev(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
