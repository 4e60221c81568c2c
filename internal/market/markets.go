package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
	"polymarket-trader/pkg/utils"
)

const (
	// maxMarketAge is how old a market may be before it is treated as
	// stale; resolved markets often linger in the listing past this.
	maxMarketAge = 730 * 24 * time.Hour

	// endingSoonWindow flags markets close enough to resolution that a
	// copied position has little time left to be right.
	endingSoonWindow = 48 * time.Hour
)

// stringList decodes fields the Gamma API serves either as a JSON
// array or as a string containing one (outcomes, clobTokenIds).
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(inner), (*[]string)(l))
	}
	return json.Unmarshal(trimmed, (*[]string)(l))
}

// Market is one Gamma API market record.
type Market struct {
	Question        string         `json:"question"`
	Description     string         `json:"description"`
	Slug            string         `json:"slug"`
	ConditionID     string         `json:"conditionId"`
	Category        string         `json:"category"`
	Active          bool           `json:"active"`
	Closed          bool           `json:"closed"`
	AcceptingOrders bool           `json:"acceptingOrders"`
	EndDate         string         `json:"endDate"`
	CreatedAt       string         `json:"createdAt"`
	Outcomes        stringList     `json:"outcomes"`
	TokenIDs        stringList     `json:"clobTokenIds"`
	Volume          models.Numeric `json:"volume"`
	Liquidity       models.Numeric `json:"liquidity"`
	MakerBaseFee    models.Numeric `json:"makerBaseFee"`
	TakerBaseFee    models.Numeric `json:"takerBaseFee"`
}

// Tradeable reports whether new orders can be placed on the market.
func (m *Market) Tradeable() bool {
	return m.Active && !m.Closed && m.AcceptingOrders
}

// PriceSource quotes the current executable price of an outcome token.
type PriceSource interface {
	Price(ctx context.Context, tokenID string, side models.Side) (float64, error)
}

// MarketsClient reads market data from the Gamma API.
type MarketsClient struct {
	rest   *restClient
	prices PriceSource
}

// NewMarketsClient creates a markets client. prices may be nil, in
// which case Details omits per-outcome quotes.
func NewMarketsClient(baseURL string, prices PriceSource, logger zerolog.Logger) *MarketsClient {
	return &MarketsClient{
		rest:   newRESTClient("gamma-markets", baseURL, logger),
		prices: prices,
	}
}

// BySlug fetches a single market by its slug.
func (c *MarketsClient) BySlug(ctx context.Context, slug string) (*Market, error) {
	var m Market
	if err := c.rest.getJSON(ctx, "/markets/slug/"+url.PathEscape(slug), nil, &m); err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", slug, err)
	}
	return &m, nil
}

// Active lists open markets. The API-side closed/active filters remove
// settled markets; markets not accepting orders or whose question
// mentions a past year are filtered here on top of that.
func (c *MarketsClient) Active(ctx context.Context, limit int) ([]Market, error) {
	if limit <= 0 {
		limit = 20
	}
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"closed": {"false"},
		"active": {"true"},
	}
	var raw []Market
	if err := c.rest.getJSON(ctx, "/markets", query, &raw); err != nil {
		return nil, fmt.Errorf("fetch active markets: %w", err)
	}

	now := time.Now()
	filtered := make([]Market, 0, limit)
	for _, m := range raw {
		if !m.AcceptingOrders {
			continue
		}
		if mentionsPastYear(m.Question, now) {
			continue
		}
		filtered = append(filtered, m)
		if len(filtered) >= limit {
			break
		}
	}
	return filtered, nil
}

// IsActive reports whether the market can still be traded: open, taking
// orders, not past its end date and not stale.
func (c *MarketsClient) IsActive(ctx context.Context, slug string) bool {
	m, err := c.BySlug(ctx, slug)
	if err != nil {
		return false
	}
	return c.isActive(m, time.Now())
}

func (c *MarketsClient) isActive(m *Market, now time.Time) bool {
	if end, err := utils.ParseEndDate(m.EndDate); err == nil && now.After(end) {
		return false
	}
	if created, err := utils.ParseEndDate(m.CreatedAt); err == nil && now.Sub(created) > maxMarketAge {
		return false
	}
	if mentionsPastYear(m.Question, now) {
		return false
	}
	return m.Tradeable()
}

// Details fetches a market and enriches it with per-outcome quotes and
// tradeability warnings for the decision loop.
func (c *MarketsClient) Details(ctx context.Context, slug string) (*models.MarketDetails, error) {
	m, err := c.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	volume, _ := m.Volume.Float64()
	liquidity, _ := m.Liquidity.Float64()
	maker, _ := m.MakerBaseFee.Float64()
	taker, _ := m.TakerBaseFee.Float64()

	details := &models.MarketDetails{
		Slug:            slug,
		ConditionID:     m.ConditionID,
		Title:           m.Question,
		Description:     m.Description,
		Category:        m.Category,
		Active:          m.Active,
		Closed:          m.Closed,
		AcceptingOrders: m.AcceptingOrders,
		Tradeable:       m.Tradeable(),
		EndDate:         m.EndDate,
		CreatedAt:       m.CreatedAt,
		Outcomes:        m.Outcomes,
		TokenIDs:        m.TokenIDs,
		Volume:          volume,
		Liquidity:       liquidity,
		Fees:            models.MarketFees{Maker: maker, Taker: taker},
	}

	if c.prices != nil && len(m.Outcomes) > 0 && len(m.Outcomes) == len(m.TokenIDs) {
		details.Quotes = c.quoteOutcomes(ctx, m.Outcomes, m.TokenIDs)
	}

	now := time.Now()
	if !details.Tradeable {
		details.Warnings = append(details.Warnings, "market is closed or not accepting orders; new bets cannot be placed")
	}
	if remaining := utils.TimeUntilEnd(m.EndDate); remaining < 0 {
		details.Warnings = append(details.Warnings, "end date has passed; resolution is pending or done")
	} else if utils.IsEndingSoon(m.EndDate, endingSoonWindow) {
		details.Warnings = append(details.Warnings, fmt.Sprintf("market ends in %s", utils.FormatDuration(remaining)))
	}
	if year, ok := pastYearMention(m.Question, now); ok {
		details.Warnings = append(details.Warnings, fmt.Sprintf("question mentions %d; the market is likely resolved or outdated", year))
	}
	if created, err := utils.ParseEndDate(m.CreatedAt); err == nil {
		if age := now.Sub(created); age > maxMarketAge {
			days := int(age.Hours() / 24)
			details.Warnings = append(details.Warnings, fmt.Sprintf("market created %d days ago; likely resolved or outdated", days))
		}
	}

	return details, nil
}

// quoteOutcomes prices each outcome at the executable (ask) side.
// Outcomes whose price cannot be fetched are skipped.
func (c *MarketsClient) quoteOutcomes(ctx context.Context, outcomes, tokenIDs []string) []models.OutcomeQuote {
	quotes := make([]models.OutcomeQuote, 0, len(outcomes))
	for i, outcome := range outcomes {
		price, err := c.prices.Price(ctx, tokenIDs[i], models.SideSell)
		if err != nil || price <= 0 {
			continue
		}
		quotes = append(quotes, models.OutcomeQuote{
			Outcome:            outcome,
			TokenID:            tokenIDs[i],
			Price:              price,
			ImpliedProbability: price * 100,
			PotentialReturn:    (1.0/price - 1.0) * 100,
			PayoutIfWins:       1.0,
		})
	}
	return quotes
}

// mentionsPastYear reports whether the question references a year
// before the current one, a strong signal the market already resolved.
func mentionsPastYear(question string, now time.Time) bool {
	_, ok := pastYearMention(question, now)
	return ok
}

func pastYearMention(question string, now time.Time) (int, bool) {
	q := strings.ToLower(question)
	for year := 2020; year < now.Year(); year++ {
		if strings.Contains(q, strconv.Itoa(year)) {
			return year, true
		}
	}
	return 0, false
}
