package analytics

import (
	"testing"

	"polymarket-trader/internal/models"
)

func TestAggregateRequiresMinimumBackers(t *testing.T) {
	agg := ConsensusAggregator{}
	bets := agg.Aggregate(map[string][]models.TradeEvent{
		"0xaaa": {trade("m1", "Yes", models.SideBuy, "100", "0.50")},
	})
	if len(bets) != 0 {
		t.Fatalf("expected no consensus with one backer, got %v", bets)
	}
}

func TestAggregateAveragesCommittedVolume(t *testing.T) {
	agg := ConsensusAggregator{}
	bets := agg.Aggregate(map[string][]models.TradeEvent{
		"0xaaa": {trade("m1", "Yes", models.SideBuy, "200", "0.50")}, // 100 notional
		"0xbbb": {trade("m1", "Yes", models.SideBuy, "400", "0.50")}, // 200 notional
		"0xccc": {trade("m1", "Yes", models.SideBuy, "600", "0.50")}, // 300 notional
	})

	if len(bets) != 1 {
		t.Fatalf("expected 1 consensus bet, got %v", bets)
	}
	bet := bets[0]
	if bet.Traders != 3 {
		t.Fatalf("expected 3 backers, got %d", bet.Traders)
	}
	if !almostEqual(bet.AvgVolume, 200.0) {
		t.Fatalf("expected average volume 200.0, got %v", bet.AvgVolume)
	}
	if !almostEqual(bet.TotalVolume, 600.0) {
		t.Fatalf("expected total volume 600.0, got %v", bet.TotalVolume)
	}
}

func TestAggregateCountsWalletOncePerPair(t *testing.T) {
	agg := ConsensusAggregator{}
	bets := agg.Aggregate(map[string][]models.TradeEvent{
		"0xaaa": {
			trade("m1", "Yes", models.SideBuy, "100", "0.50"),
			trade("m1", "Yes", models.SideBuy, "100", "0.50"),
		},
		"0xbbb": {trade("m1", "Yes", models.SideBuy, "100", "0.50")},
	})

	if len(bets) != 1 {
		t.Fatalf("expected 1 consensus bet, got %v", bets)
	}
	if bets[0].Traders != 2 {
		t.Fatalf("expected 2 backers, wallet counted once, got %d", bets[0].Traders)
	}
	if !almostEqual(bets[0].TotalVolume, 150.0) {
		t.Fatalf("expected summed total 150.0, got %v", bets[0].TotalVolume)
	}
}

func TestAggregateIgnoresSellsAndMalformed(t *testing.T) {
	agg := ConsensusAggregator{}
	bets := agg.Aggregate(map[string][]models.TradeEvent{
		"0xaaa": {
			trade("m1", "Yes", models.SideSell, "100", "0.50"),
			{Market: "m1", Outcome: "Yes", Side: models.SideBuy, Size: models.Numeric("oops"), Price: models.Numeric("0.50")},
		},
		"0xbbb": {trade("m1", "Yes", models.SideBuy, "100", "0.50")},
	})

	if len(bets) != 0 {
		t.Fatalf("expected no consensus, SELLs and malformed must not count, got %v", bets)
	}
}

func TestAggregateOrdersByBackersThenVolume(t *testing.T) {
	agg := ConsensusAggregator{}
	bets := agg.Aggregate(map[string][]models.TradeEvent{
		"0xaaa": {
			trade("m1", "Yes", models.SideBuy, "10", "0.50"),
			trade("m2", "Yes", models.SideBuy, "2000", "0.50"),
			trade("m3", "Yes", models.SideBuy, "100", "0.50"),
		},
		"0xbbb": {
			trade("m1", "Yes", models.SideBuy, "10", "0.50"),
			trade("m2", "Yes", models.SideBuy, "2000", "0.50"),
			trade("m3", "Yes", models.SideBuy, "100", "0.50"),
		},
		"0xccc": {
			trade("m1", "Yes", models.SideBuy, "10", "0.50"),
		},
	})

	if len(bets) != 3 {
		t.Fatalf("expected 3 consensus bets, got %v", bets)
	}
	// m1 has the most backers despite the smallest volume.
	if bets[0].Market != "m1" || bets[0].Traders != 3 {
		t.Fatalf("expected m1 with 3 backers first, got %+v", bets[0])
	}
	// m2 and m3 tie on backers; the bigger average wins.
	if bets[1].Market != "m2" || bets[2].Market != "m3" {
		t.Fatalf("expected m2 before m3 on volume, got %+v then %+v", bets[1], bets[2])
	}
}
