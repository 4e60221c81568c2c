package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polymarket-trader/internal/analytics"
	"polymarket-trader/internal/models"
)

// addAnalysisCommands adds trader analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newWhalesCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [wallet]",
		Short: "Rank top traders by risk-adjusted performance",
		Long: `Analyze the venue's most profitable traders.

Without arguments, pulls the volume leaderboard, scores every wallet by
Sharpe ratio over its recent trade history, and prints the ranking along
with the consensus bets the leaders share. With a wallet address, scores
that single trader.`,
		Example: `  trader analyze
  trader analyze --top 20 --trades 3
  trader analyze 0x1f2a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, _ := cmd.Flags().GetInt("top")
			trades, _ := cmd.Flags().GetInt("trades")
			minTraders, _ := cmd.Flags().GetInt("min-traders")
			noConsensus, _ := cmd.Flags().GetBool("no-consensus")

			if len(args) == 1 {
				return runAnalyzeWallet(cmd, app, args[0], trades)
			}
			return runAnalyzeTop(cmd, app, top, trades, minTraders, !noConsensus)
		},
	}

	cmd.Flags().Int("top", 0, "number of traders to rank (default from config)")
	cmd.Flags().Int("trades", 0, "show the N largest recent trades per leader")
	cmd.Flags().Int("min-traders", 0, "consensus threshold (default from config)")
	cmd.Flags().Bool("no-consensus", false, "skip the consensus scan")
	return cmd
}

func runAnalyzeTop(cmd *cobra.Command, app *App, top, trades, minTraders int, consensus bool) error {
	output := NewOutput(cmd)
	if app.Market == nil {
		return fmt.Errorf("market client not initialized")
	}

	if top <= 0 {
		top = app.Config.Agents.TopTradersCount
	}
	if top <= 0 {
		top = 10
	}
	if minTraders <= 0 {
		minTraders = app.Config.Agents.MinConsensusTraders
	}

	// Ranking fans out over every sampled wallet's trade history.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	analyzer := app.newAnalyzer()

	metrics, err := analyzer.AnalyzeTop(ctx, top)
	if err != nil {
		output.Error("Analysis failed: %v", err)
		return err
	}

	var consensusBets []models.ConsensusBet
	if consensus {
		consensusBets, err = analyzer.Consensus(ctx, top, minTraders)
		if err != nil {
			// Consensus rides on the same data. Report and move on.
			output.Warning("Consensus scan failed: %v", err)
		}
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"traders":   metrics,
			"consensus": consensusBets,
		})
	}

	output.Bold("Top Traders by Risk-Adjusted Performance")
	output.Println()

	table := NewTable(output, "Rank", "Trader", "Sharpe", "Win Rate", "Max DD", "Trades", "Volume", "P&L")
	for _, m := range metrics {
		table.AddRow(
			fmt.Sprintf("%d", m.Rank),
			displayName(m.Username, m.Wallet),
			formatSharpe(output, m.SharpeRatio),
			fmt.Sprintf("%.1f%%", m.WinRate),
			fmt.Sprintf("%.1f%%", m.MaxDrawdown),
			fmt.Sprintf("%d", m.TotalTrades),
			FormatCompact(m.LeaderboardVolume),
			output.FormatPnL(m.LeaderboardPnL),
		)
	}
	table.Render()

	if trades > 0 {
		printLeaderTrades(ctx, output, analyzer, metrics, trades)
	}

	if consensus {
		output.Println()
		printConsensus(output, consensusBets, minTraders)
	}

	output.Println()
	output.Dim("Sharpe is computed over per-trade returns, newest %d trades per wallet.", analyzerTradeLimit(app))
	return nil
}

func runAnalyzeWallet(cmd *cobra.Command, app *App, wallet string, trades int) error {
	output := NewOutput(cmd)
	if app.Market == nil {
		return fmt.Errorf("market client not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	analyzer := app.newAnalyzer()

	m, err := analyzer.AnalyzeWallet(ctx, wallet)
	if err != nil {
		output.Error("Analysis failed: %v", err)
		return err
	}

	if trades <= 0 {
		trades = 5
	}
	topTrades, err := analyzer.TopTrades(ctx, wallet, trades)
	if err != nil {
		output.Warning("Trade listing failed: %v", err)
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"metrics":    m,
			"top_trades": topTrades,
		})
	}

	output.Bold("Trader %s", displayName(m.Username, m.Wallet))
	output.Printf("  Wallet:       %s\n", m.Wallet)
	if m.LeaderboardRank > 0 {
		output.Printf("  Leaderboard:  #%d by volume\n", m.LeaderboardRank)
	}
	output.Printf("  Sharpe:       %s\n", formatSharpe(output, m.SharpeRatio))
	output.Printf("  Mean Return:  %s per closed trade\n", output.FormatPnL(m.MeanReturn))
	output.Printf("  Volatility:   %s\n", FormatUSD(m.Volatility))
	output.Printf("  Win Rate:     %.1f%%\n", m.WinRate)
	output.Printf("  Max Drawdown: %.1f%%\n", m.MaxDrawdown)
	output.Printf("  Trades:       %d\n", m.TotalTrades)
	output.Printf("  Volume:       %s\n", FormatCompact(m.LeaderboardVolume))
	output.Printf("  P&L:          %s\n", output.FormatPnL(m.LeaderboardPnL))

	if len(topTrades) > 0 {
		output.Println()
		output.Bold("Largest Recent Trades")
		printTradeList(output, topTrades)
	}
	return nil
}

// printLeaderTrades shows the biggest recent positions for the first
// few leaders, the same view the agent gets from its trade tool.
func printLeaderTrades(ctx context.Context, output *Output, analyzer *analytics.TraderAnalyzer, metrics []models.ParticipantMetrics, trades int) {
	shown := len(metrics)
	if shown > 3 {
		shown = 3
	}
	for _, m := range metrics[:shown] {
		output.Println()
		output.Bold("Largest trades: %s", displayName(m.Username, m.Wallet))
		list, err := analyzer.TopTrades(ctx, m.Wallet, trades)
		if err != nil {
			output.Warning("  unavailable: %v", err)
			continue
		}
		printTradeList(output, list)
	}
}

func printTradeList(output *Output, trades []models.TradeInfo) {
	for _, tr := range trades {
		side := output.Green(string(tr.Side))
		if tr.Side == models.SideSell {
			side = output.Red(string(tr.Side))
		}
		output.Printf("  %s %s @ %s  %s  %s\n",
			side,
			tr.Outcome,
			FormatPrice(tr.Price),
			PadLeft(FormatUSD(tr.Value), 12),
			TruncateString(tr.MarketTitle, 48),
		)
		output.Dim("    %s  %s", tr.MarketSlug, FormatUnixTime(tr.Timestamp))
	}
}

func printConsensus(output *Output, bets []models.ConsensusBet, minTraders int) {
	output.Bold("Consensus Bets")
	if len(bets) == 0 {
		output.Printf("  No market where %d+ leaders hold the same outcome.\n", minTraders)
		return
	}

	table := NewTable(output, "Market", "Outcome", "Leaders", "Avg Stake", "Total")
	for _, b := range bets {
		table.AddRow(
			TruncateString(consensusTitle(b), 44),
			b.Outcome,
			fmt.Sprintf("%d", b.Traders),
			FormatUSD(b.AvgVolume),
			FormatCompact(b.TotalVolume),
		)
	}
	table.Render()
}

func consensusTitle(b models.ConsensusBet) string {
	if b.MarketTitle != "" {
		return b.MarketTitle
	}
	return b.Market
}

// displayName prefers the venue username, falling back to the wallet.
func displayName(username, wallet string) string {
	if username != "" {
		return username
	}
	return ShortWallet(wallet)
}

func formatSharpe(output *Output, sharpe float64) string {
	formatted := fmt.Sprintf("%.2f", sharpe)
	if sharpe >= 1 {
		return output.Green(formatted)
	}
	if sharpe < 0 {
		return output.Red(formatted)
	}
	return formatted
}

func analyzerTradeLimit(app *App) int {
	if app.Config.Agents.TradeLimit > 0 {
		return app.Config.Agents.TradeLimit
	}
	return 500
}
