package analytics

import (
	"sort"

	"polymarket-trader/internal/models"
)

// DefaultMinTraders is the minimum backing required for a consensus bet.
const DefaultMinTraders = 2

// ConsensusAggregator finds (market, outcome) pairs that several
// analyzed traders are buying at once.
type ConsensusAggregator struct {
	MinTraders int
}

type consensusState struct {
	title   string
	wallets map[string]struct{}
	total   float64
}

// Aggregate sums each participant's BUY notional (size times price) per
// (market, outcome) pair and keeps pairs backed by at least MinTraders
// distinct participants. Results are ordered by backer count, then by
// average committed volume per backer, both descending.
func (a ConsensusAggregator) Aggregate(tradesByWallet map[string][]models.TradeEvent) []models.ConsensusBet {
	minTraders := a.MinTraders
	if minTraders <= 0 {
		minTraders = DefaultMinTraders
	}

	states := make(map[pairKey]*consensusState)
	for wallet, trades := range tradesByWallet {
		for _, t := range trades {
			if t.Side != models.SideBuy {
				continue
			}
			// Consensus keys on the slug so results can be acted on
			// directly; fall back to the condition id when the feed
			// omits it.
			market := t.Slug
			if market == "" {
				market = t.Market
			}
			if market == "" || t.Outcome == "" {
				continue
			}
			notional, ok := t.Notional()
			if !ok {
				continue
			}

			key := pairKey{market: market, outcome: t.Outcome}
			st := states[key]
			if st == nil {
				st = &consensusState{wallets: make(map[string]struct{})}
				states[key] = st
			}
			if st.title == "" {
				st.title = t.Title
			}
			st.wallets[wallet] = struct{}{}
			st.total += notional
		}
	}

	bets := make([]models.ConsensusBet, 0, len(states))
	for key, st := range states {
		if len(st.wallets) < minTraders {
			continue
		}
		count := len(st.wallets)
		bets = append(bets, models.ConsensusBet{
			Market:      key.market,
			MarketTitle: st.title,
			Outcome:     key.outcome,
			Traders:     count,
			AvgVolume:   st.total / float64(count),
			TotalVolume: st.total,
		})
	}

	sort.SliceStable(bets, func(i, j int) bool {
		if bets[i].Traders != bets[j].Traders {
			return bets[i].Traders > bets[j].Traders
		}
		if bets[i].AvgVolume != bets[j].AvgVolume {
			return bets[i].AvgVolume > bets[j].AvgVolume
		}
		if bets[i].Market != bets[j].Market {
			return bets[i].Market < bets[j].Market
		}
		return bets[i].Outcome < bets[j].Outcome
	})
	return bets
}
