// Package news provides the web search client the agent uses to
// research markets before betting.
package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	tavilyBaseURL  = "https://api.tavily.com"
	requestTimeout = 10 * time.Second
)

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher performs a web search and returns scored results.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// TavilyClient implements Searcher over the Tavily search API.
type TavilyClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewTavilyClient creates a search client. An empty baseURL selects the
// public API endpoint.
func NewTavilyClient(baseURL, apiKey string, logger zerolog.Logger) *TavilyClient {
	if baseURL == "" {
		baseURL = tavilyBaseURL
	}
	return &TavilyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger.With().Str("component", "news").Logger(),
	}
}

type tavilySearchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilySearchResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs one query. maxResults defaults to 5 when non-positive.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tavily search: no API key configured")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	payload, err := json.Marshal(tavilySearchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded tavilySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(decoded.Results)).
		Dur("duration", time.Since(start)).
		Msg("Web search completed")
	return decoded.Results, nil
}
