package cli

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"polymarket-trader/internal/agents"
	"polymarket-trader/internal/analytics"
	"polymarket-trader/internal/models"
	"polymarket-trader/internal/notify"
	"polymarket-trader/internal/security"
	"polymarket-trader/internal/store"
	"polymarket-trader/internal/trading"
)

const defaultSessionTimeout = 10 * time.Minute

// addTradingCommands adds trading commands.
func addTradingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTradeCmd(app))
	rootCmd.AddCommand(newFundsCmd(app))
}

func newTradeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Run one AI trading session",
		Long: `Run one autonomous copy-trading session.

The agent ranks the venue's top traders by risk-adjusted performance,
finds the markets where several of them hold the same position, checks
prices and news, and decides which bets to place. Dry-run mode simulates
fills against a practice balance; live mode signs and submits real
orders.`,
		Example: `  trader trade
  trader trade --live
  trader trade --iterations 15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			live, _ := cmd.Flags().GetBool("live")
			iterations, _ := cmd.Flags().GetInt("iterations")
			yes, _ := cmd.Flags().GetBool("yes")
			return runTradingSession(cmd, app, live, iterations, yes)
		},
	}

	cmd.Flags().Bool("live", false, "place real orders instead of simulating")
	cmd.Flags().Int("iterations", 0, "override the agent iteration budget")
	cmd.Flags().Bool("yes", false, "skip the live-mode confirmation prompt")
	return cmd
}

func runTradingSession(cmd *cobra.Command, app *App, live bool, iterations int, yes bool) error {
	output := NewOutput(cmd)
	cfg := app.Config

	if app.Market == nil {
		return fmt.Errorf("market client not initialized")
	}

	if live {
		cfg.Trading.Mode = "live"
	}
	if iterations > 0 {
		cfg.Agents.MaxIterations = iterations
	}

	if !cfg.IsDryRun() {
		if err := cfg.ValidateLive(); err != nil {
			output.Error("Live mode unavailable: %v", err)
			return err
		}
		if !yes && !confirmLive(cmd, output) {
			output.Info("Aborted.")
			return nil
		}
	}

	if _, err := cfg.ProviderAPIKey(); err != nil {
		output.Error("Agent provider not configured: %v", err)
		return err
	}

	timeout := cfg.Security.SessionTimeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Assemble the trading stack
	audit := newAuditLogger(app)
	if audit != nil {
		defer audit.Close()
	}
	engine := trading.NewEngine(cfg, app.Market.Markets, app.Market.Clob, app.Market.Chain, audit, app.Logger)
	analyzer := app.newAnalyzer()
	toolbox := agents.NewToolbox(engine, analyzer, app.Market.Markets, app.Market.Wallets, app.News, cfg, app.Logger)
	catalogue := agents.NewCatalogue(toolbox)

	provider, err := agents.NewProvider(cfg, app.Logger)
	if err != nil {
		output.Error("Failed to initialize agent provider: %v", err)
		return err
	}
	session := agents.NewSession(provider, catalogue, cfg, app.Logger)

	notifier := notify.NewMultiNotifier(&cfg.Notifications)
	if !output.IsJSON() {
		// Bell only when real money moves.
		notifier.AddChannel(notify.NewTerminalChannel(!cfg.IsDryRun()))
	}

	startingFunds, err := engine.AvailableFunds(ctx)
	if err != nil {
		output.Error("Failed to fetch balance: %v", err)
		return err
	}

	if !output.IsJSON() {
		printSessionBanner(output, app, provider.Name(), startingFunds)
	}

	if audit != nil {
		audit.LogSessionStarted(ctx, modeLabel(cfg.IsDryRun()), cfg.Agents.Model)
	}

	summary, runErr := session.Run(ctx)

	portfolio, perr := engine.Portfolio(ctx)
	if perr != nil {
		// The run context may be spent. Summarize from session state.
		app.Logger.Warn().Err(perr).Msg("Portfolio snapshot failed after session")
	}

	trades := engine.TradeHistory(0)
	if audit != nil {
		audit.LogSessionFinished(context.Background(), string(summary.State), summary.Iterations, len(trades))
	}

	journalSession(app, output, summary, portfolio, trades)
	sendNotifications(app, notifier, summary, portfolio, engine, runErr)

	if output.IsJSON() {
		result := map[string]interface{}{
			"session_id": summary.ID,
			"state":      string(summary.State),
			"mode":       modeLabel(cfg.IsDryRun()),
			"iterations": summary.Iterations,
			"tool_calls": summary.ToolCalls,
			"duration":   summary.FinishedAt.Sub(summary.StartedAt).Seconds(),
			"bets":       trades,
			"final_text": summary.FinalText,
		}
		if portfolio != nil {
			result["trade_count"] = portfolio.TradeCount
			result["total_staked"] = portfolio.TotalStaked
			result["balance"] = portfolio.Funds.Balance
		}
		if runErr != nil {
			result["error"] = runErr.Error()
		}
		return output.JSON(result)
	}

	if summary.FinalText != "" {
		output.Println()
		output.Bold("Final Analysis")
		output.Println(summary.FinalText)
	}

	if runErr != nil {
		output.Error("Session aborted: %v", runErr)
		return runErr
	}
	return nil
}

// confirmLive asks for explicit confirmation before staking real funds.
func confirmLive(cmd *cobra.Command, output *Output) bool {
	output.Warning("LIVE MODE: the agent will stake real USDC from your wallet.")
	output.Print("Type 'live' to continue: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "live"
}

func printSessionBanner(output *Output, app *App, providerName string, funds models.FundsStatus) {
	cfg := app.Config

	mode := output.Yellow("DRY RUN (simulated fills)")
	if !cfg.IsDryRun() {
		mode = output.Red("LIVE (real orders)")
	}

	output.Box("Polymarket AI Trading Session", []string{
		fmt.Sprintf("Mode:       %s", mode),
		fmt.Sprintf("Agent:      %s / %s", providerName, modelOrDefault(cfg.Agents.Model)),
		fmt.Sprintf("Iterations: %d max", cfg.Agents.MaxIterations),
		fmt.Sprintf("Balance:    %s", FormatUSD(funds.Balance)),
	})
	output.Println()
	output.Info("Running agent session...")
	output.Dim("Every decision is journaled. Inspect later with 'trader journal'.")
	output.Println()
}

// journalSession persists the run. Journal failures are logged but
// never fail the trading command.
func journalSession(app *App, output *Output, summary *agents.SessionSummary, portfolio *models.PortfolioSummary, trades []models.SessionTrade) {
	if app.Journal == nil {
		return
	}

	// The session context may be expired; persistence gets its own.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seq := 0
	for _, msg := range summary.Transcript {
		if msg.Role != agents.RoleAssistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			// The journal outlives the session; a key pasted into a
			// search query must not be persisted verbatim.
			args := string(call.Arguments)
			if security.ContainsSecret(args) {
				args = security.Redact(args)
			}
			d := store.Decision{
				SessionID: summary.ID,
				Seq:       seq,
				Tool:      call.Name,
				Arguments: args,
			}
			seq++
			if err := app.Journal.LogDecision(d); err != nil {
				app.Logger.Warn().Err(err).Msg("Failed to journal decision")
			}
		}
	}
	if err := app.Journal.Flush(); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to flush decision journal")
	}

	if err := app.Journal.SaveBets(ctx, summary.ID, trades); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to journal bets")
	}

	record := &store.SessionRecord{
		ID:         summary.ID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Mode:       app.Config.Trading.Mode,
		Model:      app.Config.Agents.Model,
		State:      string(summary.State),
		Iterations: summary.Iterations,
		ToolCalls:  summary.ToolCalls,
		FinalText:  summary.FinalText,
	}
	if portfolio != nil {
		record.TradeCount = portfolio.TradeCount
		record.TotalStaked = portfolio.TotalStaked
		record.FinalBalance = portfolio.Funds.Balance
	}
	if err := app.Journal.SaveSession(ctx, record); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to journal session")
		return
	}

	if !output.IsJSON() {
		output.Dim("Session journaled: %s", summary.ID)
	}
}

// sendNotifications pushes the outcome through every configured channel.
// The terminal channel doubles as the session report display.
func sendNotifications(app *App, notifier notify.Notifier, summary *agents.SessionSummary, portfolio *models.PortfolioSummary, engine *trading.Engine, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	positions := engine.Positions()
	for i := range positions {
		if err := notifier.SendBet(ctx, &positions[i]); err != nil {
			app.Logger.Warn().Err(err).Msg("Bet notification failed")
		}
	}

	report := notify.SessionReport{
		SessionID:  summary.ID,
		Mode:       modeLabel(app.Config.IsDryRun()),
		State:      string(summary.State),
		Iterations: summary.Iterations,
		ToolCalls:  summary.ToolCalls,
		Duration:   summary.FinishedAt.Sub(summary.StartedAt),
		FinalText:  summary.FinalText,
	}
	if portfolio != nil {
		report.TradeCount = portfolio.TradeCount
		report.TotalStaked = portfolio.TotalStaked
		report.Balance = portfolio.Funds.Balance
	}
	if err := notifier.SendSessionSummary(ctx, &report); err != nil {
		app.Logger.Warn().Err(err).Msg("Summary notification failed")
	}

	if runErr != nil {
		if err := notifier.SendError(ctx, runErr, "trading session"); err != nil {
			app.Logger.Warn().Err(err).Msg("Error notification failed")
		}
	}
}

func modeLabel(dryRun bool) string {
	if dryRun {
		return "DRY_RUN"
	}
	return "LIVE"
}

// newAuditLogger builds the audit trail writer when enabled.
func newAuditLogger(app *App) *security.AuditLogger {
	if !app.Config.Security.AuditEnabled {
		return nil
	}

	auditCfg := security.DefaultAuditConfig()
	if app.Config.Dir != "" {
		auditCfg.LogDir = filepath.Join(app.Config.Dir, "audit")
	}

	audit, err := security.NewAuditLogger(auditCfg)
	if err != nil {
		app.Logger.Warn().Err(err).Msg("Audit logging unavailable")
		return nil
	}
	return audit
}

func newFundsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "funds",
		Short: "Show available balance",
		Long:  "Show the USDC balance available for betting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Market == nil {
				return fmt.Errorf("market client not initialized")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			engine := trading.NewEngine(app.Config, app.Market.Markets, app.Market.Clob, app.Market.Chain, nil, app.Logger)
			funds, err := engine.AvailableFunds(ctx)
			if err != nil {
				output.Error("Failed to fetch funds: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(funds)
			}

			output.Bold("Funds")
			output.Printf("  Balance:    %s\n", FormatUSD(funds.Balance))
			output.Printf("  Locked:     %s\n", FormatUSD(funds.Locked))
			output.Printf("  Available:  %s\n", FormatUSD(funds.Available))
			output.Println()
			if funds.DryRun {
				output.Warning("Dry-run balance. No wallet was queried.")
			}
			maxBet := funds.Available * app.Config.Trading.MaxSingleBetPercent / 100
			output.Dim("Single bet cap: %s (%.1f%% of available)", FormatUSD(maxBet), app.Config.Trading.MaxSingleBetPercent)
			return nil
		},
	}
}
