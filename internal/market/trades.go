package market

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
)

// TradesClient reads raw trade feeds from the Gamma API.
type TradesClient struct {
	rest *restClient
}

// NewTradesClient creates a trades client.
func NewTradesClient(baseURL string, logger zerolog.Logger) *TradesClient {
	return &TradesClient{rest: newRESTClient("gamma-trades", baseURL, logger)}
}

// ByWallet returns the wallet's trade history, newest first, as served
// by the feed. Records stay unparsed so malformed entries can be
// dropped downstream.
func (c *TradesClient) ByWallet(ctx context.Context, wallet string, limit int) ([]models.TradeEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{
		"wallet": {wallet},
		"limit":  {strconv.Itoa(limit)},
	}
	var trades []models.TradeEvent
	if err := c.rest.getJSON(ctx, "/trades", query, &trades); err != nil {
		return nil, fmt.Errorf("fetch trades for %s: %w", wallet, err)
	}
	return trades, nil
}
