package agents

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolHandler executes one tool call. The returned string is the JSON
// payload recorded in the conversation.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (string, error)

// Tool pairs a wire-visible spec with its handler.
type Tool struct {
	Spec    ToolSpec
	Handler ToolHandler
}

// Catalogue is the full set of tools a session exposes to the model.
// One table defines both what the model sees and what dispatch runs,
// so the two can never drift apart.
type Catalogue struct {
	tools  []Tool
	byName map[string]ToolHandler
}

// NewCatalogue builds the catalogue over a toolbox.
func NewCatalogue(tb *Toolbox) *Catalogue {
	c := &Catalogue{byName: make(map[string]ToolHandler)}

	c.register(ToolSpec{
		Name:        "get_available_funds",
		Description: "Get the current available USDC balance for trading, number of open positions, and total invested amount",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {},
			"required": []
		}`),
	}, tb.executeGetAvailableFunds)

	c.register(ToolSpec{
		Name:        "get_current_positions",
		Description: "Get all currently open trading positions with details including market, outcome, amount invested, reasoning, and timestamp",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {},
			"required": []
		}`),
	}, tb.executeGetCurrentPositions)

	c.register(ToolSpec{
		Name:        "get_trade_history",
		Description: "Get complete trading history showing all bets placed during this session",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {
					"type": "integer",
					"description": "Maximum number of trades to return (default: 10)",
					"default": 10
				}
			},
			"required": []
		}`),
	}, tb.executeGetTradeHistory)

	c.register(ToolSpec{
		Name:        "get_portfolio_summary",
		Description: "Get comprehensive portfolio summary including balance, positions, diversification, and risk metrics",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {},
			"required": []
		}`),
	}, tb.executeGetPortfolioSummary)

	c.register(ToolSpec{
		Name:        "get_top_traders",
		Description: "Get top N traders ranked by Sharpe ratio (risk-adjusted returns). Returns trader metrics including Sharpe ratio, win rate, max drawdown (percentage loss from peak), P&L, and total trades. Max drawdown shows risk - closer to 0% is better, more negative means higher losses.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"n": {
					"type": "integer",
					"description": "Number of top traders to return (default: 10, max: 50)",
					"default": 10
				}
			},
			"required": []
		}`),
	}, tb.executeGetTopTraders)

	c.register(ToolSpec{
		Name:        "get_trader_top_trades",
		Description: "Get the top N highest volume trades for a specific trader wallet, limited to markets that are still active",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"wallet": {
					"type": "string",
					"description": "Trader's wallet address"
				},
				"n": {
					"type": "integer",
					"description": "Number of top trades to return (default: 5)",
					"default": 5
				}
			},
			"required": ["wallet"]
		}`),
	}, tb.executeGetTraderTopTrades)

	c.register(ToolSpec{
		Name:        "get_consensus_bets",
		Description: "Find bets where multiple top traders agree (same market and outcome). Returns markets with 2+ traders betting on the same outcome.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"min_traders": {
					"type": "integer",
					"description": "Minimum number of traders that must agree (default: 2)",
					"default": 2
				}
			},
			"required": []
		}`),
	}, tb.executeGetConsensusBets)

	c.register(ToolSpec{
		Name:        "get_market_details",
		Description: "Get detailed information about a specific market including title, description, outcomes, and current prices. Use this BEFORE placing a bet to understand what you're betting on.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"market_slug": {
					"type": "string",
					"description": "Market slug identifier"
				}
			},
			"required": ["market_slug"]
		}`),
	}, tb.executeGetMarketDetails)

	c.register(ToolSpec{
		Name:        "get_active_markets",
		Description: "Get list of currently active markets on Polymarket",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {
					"type": "integer",
					"description": "Number of markets to return (default: 20)",
					"default": 20
				}
			},
			"required": []
		}`),
	}, tb.executeGetActiveMarkets)

	c.register(ToolSpec{
		Name:        "place_bet",
		Description: "Place a bet on a specific market outcome. CRITICAL: You MUST call get_market_details first to understand the market before betting. Use this only after thorough analysis of trader consensus and market conditions.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"market_slug": {
					"type": "string",
					"description": "Market slug identifier"
				},
				"outcome": {
					"type": "string",
					"description": "Outcome to bet on (e.g., 'Yes', 'No', or specific option)"
				},
				"amount_usd": {
					"type": "number",
					"description": "Amount in USD to bet"
				},
				"reasoning": {
					"type": "string",
					"description": "Your detailed reasoning for this bet including: which traders agree, their metrics, consensus strength, and why you believe this is a good opportunity"
				}
			},
			"required": ["market_slug", "outcome", "amount_usd", "reasoning"]
		}`),
	}, tb.executePlaceBet)

	c.register(ToolSpec{
		Name:        "search_news",
		Description: "Search for recent news headlines. Useful for understanding current events that might affect prediction markets (politics, sports, crypto, etc.). Returns recent articles with titles, sources, and snippets.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "Search query (e.g., 'Trump election', 'Bitcoin price', 'NFL playoffs', 'Federal Reserve')"
				},
				"max_results": {
					"type": "integer",
					"description": "Maximum number of results to return (default: 5)",
					"default": 5
				}
			},
			"required": ["query"]
		}`),
	}, tb.executeSearchNews)

	c.register(ToolSpec{
		Name:        "read_knowledge_base",
		Description: "Read the trading knowledge base which contains proven Polymarket trading strategies and insights from successful traders. Use this to learn advanced tactics before placing bets.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {},
			"required": []
		}`),
	}, tb.executeReadKnowledgeBase)

	c.register(ToolSpec{
		Name:        "get_suggested_whales",
		Description: "Get recommended whale traders from PolyWhaler.com - these are high-volume traders with recent activity. Returns wallet addresses, names, recent trade counts, volumes, and last trade times. Alternative to get_top_traders for finding active whales.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {
					"type": "integer",
					"description": "Number of suggested whales to return (default: 10)",
					"default": 10
				}
			},
			"required": []
		}`),
	}, tb.executeGetSuggestedWhales)

	return c
}

func (c *Catalogue) register(spec ToolSpec, handler ToolHandler) {
	c.tools = append(c.tools, Tool{Spec: spec, Handler: handler})
	c.byName[spec.Name] = handler
}

// Specs returns the wire-visible tool specs in registration order.
func (c *Catalogue) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(c.tools))
	for _, t := range c.tools {
		specs = append(specs, t.Spec)
	}
	return specs
}

// Names returns the registered tool names in registration order.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		names = append(names, t.Spec.Name)
	}
	return names
}

// Dispatch runs the named tool. The returned payload is always usable
// as the transcript entry: every failure mode is folded into an error
// payload the model can read and route around, because a missing tool
// result would break the conversation. The error reports what went
// wrong for logging only.
func (c *Catalogue) Dispatch(ctx context.Context, name string, args json.RawMessage) (string, error) {
	handler, ok := c.byName[name]
	if !ok {
		err := fmt.Errorf("unknown tool: %s", name)
		return errorPayload(fmt.Sprintf("Unknown function: %s", name)), err
	}

	var params map[string]interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return errorPayload(fmt.Sprintf("invalid arguments: %s", err)), fmt.Errorf("parse arguments for %s: %w", name, err)
		}
	}

	result, err := handler(ctx, params)
	if err != nil {
		return errorPayload(err.Error()), err
	}
	return result, nil
}

func errorPayload(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error": "internal error"}`
	}
	return string(data)
}
