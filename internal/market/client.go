// Package market provides clients for the venue's public and
// authenticated APIs: the Gamma API for markets, trades and the
// leaderboard, the CLOB for prices and order flow, PolyWhaler for
// curated trader suggestions, and the Polygon chain for wallet
// balances.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/logging"
	"polymarket-trader/internal/performance"
	"polymarket-trader/internal/resilience"
)

// Default API endpoints.
const (
	GammaBaseURL      = "https://gamma-api.polymarket.com"
	ClobBaseURL       = "https://clob.polymarket.com"
	PolyWhalerBaseURL = "https://www.polywhaler.com"
	PolygonRPCURL     = "https://polygon-rpc.com"
)

const (
	requestTimeout = 10 * time.Second
	userAgent      = "polymarket-trader/1.0"
)

// restClient is the shared HTTP layer under each API client. Every
// request passes through a rate limiter and a circuit breaker so one
// misbehaving endpoint cannot stall a whole analysis pass.
type restClient struct {
	baseURL string
	http    *http.Client
	limiter *performance.RateLimiter
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

func newRESTClient(name, baseURL string, logger zerolog.Logger) *restClient {
	return &restClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		limiter: performance.NewRateLimiter(10, 20),
		breaker: resilience.NewCircuitBreaker(name, resilience.DefaultCircuitBreakerConfig()),
		logger:  logger.With().Str("api", name).Logger(),
	}
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.roundTrip(ctx, http.MethodGet, path, query, nil, nil, out)
}

// postJSON issues a POST with a pre-encoded JSON body and decodes the
// response into out. The body is taken already encoded so callers that
// sign request payloads cover the exact bytes sent. Extra headers are
// applied on top of the defaults.
func (c *restClient) postJSON(ctx context.Context, path string, headers http.Header, body []byte, out interface{}) error {
	return c.roundTrip(ctx, http.MethodPost, path, nil, headers, body, out)
}

func (c *restClient) roundTrip(ctx context.Context, method, path string, query url.Values, headers http.Header, body []byte, out interface{}) error {
	start := time.Now()
	err := c.breaker.Execute(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.do(ctx, method, path, query, headers, body, out)
	})
	logging.LogAPICall(c.logger, method, path, time.Since(start), err)
	return err
}

func (c *restClient) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body []byte, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		// Assigned directly so non-canonical names, such as the CLOB's
		// POLY_* auth headers, keep their exact case on the wire.
		req.Header[key] = values
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp, method, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *restClient) statusError(resp *http.Response, method, path string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := strings.TrimSpace(string(snippet))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", method, path, apperrors.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, apperrors.ErrDataNotFound)
	default:
		return apperrors.NewVenueError(
			fmt.Sprintf("HTTP_%d", resp.StatusCode),
			fmt.Sprintf("%s %s: %s", method, path, message),
			nil,
		)
	}
}
