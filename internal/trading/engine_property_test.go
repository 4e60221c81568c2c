package trading

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_DryRunBalanceConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("stakes and remaining balance always sum to the starting bankroll", prop.ForAll(
		func(amounts []float64) bool {
			e := newDryRunEngine(&stubVenue{price: 0.5}, singleMarket("m"))

			placed := 0.0
			fills := 0
			for _, amount := range amounts {
				_, err := e.PlaceBet(context.Background(), "m", "Yes", amount, "sequence")
				if err == nil {
					placed += amount
					fills++
				}

				funds, ferr := e.AvailableFunds(context.Background())
				if ferr != nil {
					return false
				}
				if math.Abs(funds.Available+placed-DryRunStartingBalance) > 1e-9 {
					return false
				}
				if funds.Available < -1e-9 {
					return false
				}
			}

			return len(e.Positions()) == fills && len(e.TradeHistory(0)) == fills
		},
		gen.SliceOf(gen.Float64Range(0.5, 30)),
	))

	properties.TestingRun(t)
}

func TestProperty_FillPricesStayInsideVenueBand(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("any quote produces a clamped fill price and positive shares", prop.ForAll(
		func(quote float64) bool {
			e := newDryRunEngine(&stubVenue{price: quote}, singleMarket("m"))

			pos, err := e.PlaceBet(context.Background(), "m", "No", 1, "clamp check")
			if err != nil {
				return false
			}
			return pos.Price >= minOrderPrice && pos.Price <= maxOrderPrice && pos.Shares > 0
		},
		gen.Float64Range(-1, 2),
	))

	properties.TestingRun(t)
}
