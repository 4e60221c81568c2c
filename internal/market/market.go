package market

import (
	"context"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
)

// ClientConfig wires up the full venue client. Zero-value URLs fall
// back to the public endpoints; the CLOB section is only needed when
// orders will be placed.
type ClientConfig struct {
	GammaURL      string
	ClobURL       string
	PolyWhalerURL string
	PolygonRPCURL string
	Clob          ClobConfig
}

// Client bundles the venue's API surfaces behind one handle: market
// catalogue, public trade feed, wallet rankings, the order book, and
// the chain for balance checks. The Leaderboard and Trades passthroughs
// let the client feed the analytics pipeline directly.
type Client struct {
	Markets *MarketsClient
	Feed    *TradesClient
	Wallets *WalletsClient
	Clob    *ClobClient
	Chain   *ChainClient
}

// NewClient builds the aggregate client. The CLOB doubles as the price
// source for market detail quotes.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	clobCfg := cfg.Clob
	if clobCfg.BaseURL == "" {
		clobCfg.BaseURL = cfg.ClobURL
	}
	clob, err := NewClobClient(clobCfg, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		Markets: NewMarketsClient(cfg.GammaURL, clob, logger),
		Feed:    NewTradesClient(cfg.GammaURL, logger),
		Wallets: NewWalletsClient(cfg.GammaURL, cfg.PolyWhalerURL, logger),
		Clob:    clob,
		Chain:   NewChainClient(cfg.PolygonRPCURL, logger),
	}, nil
}

// Leaderboard proxies to the wallets client.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	return c.Wallets.Leaderboard(ctx, limit)
}

// Trades proxies to the public trade feed.
func (c *Client) Trades(ctx context.Context, wallet string, limit int) ([]models.TradeEvent, error) {
	return c.Feed.ByWallet(ctx, wallet, limit)
}
