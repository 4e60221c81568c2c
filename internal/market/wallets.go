package market

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
)

// WalletsClient reads the leaderboard from the Gamma API and curated
// whale suggestions from PolyWhaler.
type WalletsClient struct {
	gamma  *restClient
	whaler *restClient
}

// NewWalletsClient creates a wallets client.
func NewWalletsClient(gammaURL, whalerURL string, logger zerolog.Logger) *WalletsClient {
	return &WalletsClient{
		gamma:  newRESTClient("gamma-wallets", gammaURL, logger),
		whaler: newRESTClient("polywhaler", whalerURL, logger),
	}
}

// Leaderboard returns the venue's trader leaderboard. The API caps the
// result around 50 entries regardless of the requested limit.
func (c *WalletsClient) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	var entries []models.LeaderboardEntry
	if err := c.gamma.getJSON(ctx, "/leaderboard", query, &entries); err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	return entries, nil
}

// SuggestedWhales returns PolyWhaler's recommended high-volume traders.
func (c *WalletsClient) SuggestedWhales(ctx context.Context, limit int) ([]models.WhaleSuggestion, error) {
	if limit <= 0 {
		limit = 50
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	var payload struct {
		Suggestions []models.WhaleSuggestion `json:"suggestions"`
	}
	if err := c.whaler.getJSON(ctx, "/api/suggested-whales", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch suggested whales: %w", err)
	}
	return payload.Suggestions, nil
}
