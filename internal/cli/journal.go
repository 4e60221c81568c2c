package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"polymarket-trader/internal/store"
)

// addJournalCommands adds session journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Session journal",
		Long:  "Review past agent sessions, their decision trails, and the bets they placed.",
	}

	cmd.AddCommand(newJournalSessionsCmd(app))
	cmd.AddCommand(newJournalShowCmd(app))
	cmd.AddCommand(newJournalBetsCmd(app))

	rootCmd.AddCommand(cmd)
}

func newJournalSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Long:  "List past agent sessions, newest first.",
		Example: `  trader journal sessions
  trader journal sessions --mode live --days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				output.Warning("Journal not initialized. No session data available.")
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			mode, _ := cmd.Flags().GetString("mode")
			days, _ := cmd.Flags().GetInt("days")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			filter := store.SessionFilter{Mode: mode, Limit: limit}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}

			sessions, err := app.Journal.Sessions(ctx, filter)
			if err != nil {
				output.Error("Failed to fetch sessions: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(sessions)
			}

			if len(sessions) == 0 {
				output.Info("No sessions recorded yet.")
				output.Dim("Run 'trader trade' to start one.")
				return nil
			}

			output.Bold("Recorded Sessions")
			output.Println()

			var totalStaked float64
			var totalBets int
			table := NewTable(output, "ID", "Started", "Mode", "State", "Iter", "Tools", "Bets", "Staked", "Balance")
			for _, s := range sessions {
				totalStaked += s.TotalStaked
				totalBets += s.TradeCount
				table.AddRow(
					shortID(s.ID),
					FormatDateTime(s.StartedAt),
					s.Mode,
					output.SessionState(s.State),
					fmt.Sprintf("%d", s.Iterations),
					fmt.Sprintf("%d", s.ToolCalls),
					fmt.Sprintf("%d", s.TradeCount),
					FormatUSD(s.TotalStaked),
					FormatUSD(s.FinalBalance),
				)
			}
			table.Render()

			output.Println()
			output.Printf("  %d sessions, %d bets, %s staked\n", len(sessions), totalBets, FormatUSD(totalStaked))
			output.Dim("Use 'trader journal show <id>' for the decision trail.")
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "number of sessions to list")
	cmd.Flags().String("mode", "", "filter by mode (dry-run, live)")
	cmd.Flags().Int("days", 0, "only sessions from the last N days")
	return cmd
}

func newJournalShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's decision trail",
		Long: `Show a session record, every tool call the agent made, and the
bets that resulted. The ID may be a unique prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				output.Warning("Journal not initialized. No session data available.")
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			session, err := resolveSession(ctx, app.Journal, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			decisions, err := app.Journal.Decisions(ctx, session.ID)
			if err != nil {
				output.Warning("Decision trail unavailable: %v", err)
			}
			bets, err := app.Journal.Bets(ctx, store.BetFilter{SessionID: session.ID})
			if err != nil {
				output.Warning("Bet list unavailable: %v", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"session":   session,
					"decisions": decisions,
					"bets":      bets,
				})
			}

			printSessionRecord(output, session)

			if len(decisions) > 0 {
				output.Println()
				output.Bold("Decision Trail")
				for _, d := range decisions {
					output.Printf("  %2d. %-22s %s\n", d.Seq+1, d.Tool, TruncateString(flattenArgs(d.Arguments), 64))
				}
			}

			if len(bets) > 0 {
				output.Println()
				output.Bold("Bets")
				table := NewTable(output, "Placed", "Market", "Outcome", "Amount", "Price", "Shares", "Order")
				for _, b := range bets {
					table.AddRow(
						FormatDateTime(b.Timestamp),
						TruncateString(b.MarketSlug, 32),
						b.Outcome,
						FormatUSD(b.AmountUSD),
						FormatPrice(b.Price),
						fmt.Sprintf("%.2f", b.Shares),
						orderLabel(b.OrderID, b.DryRun),
					)
				}
				table.Render()
			}

			if session.FinalText != "" {
				output.Println()
				output.Bold("Final Analysis")
				output.Println(session.FinalText)
			}
			return nil
		},
	}
}

func newJournalBetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bets",
		Short: "List journaled bets",
		Long:  "List bets across all sessions, newest first.",
		Example: `  trader journal bets
  trader journal bets --live
  trader journal bets --market will-the-fed-cut-rates-in-march`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				output.Warning("Journal not initialized. No bet data available.")
				return nil
			}

			live, _ := cmd.Flags().GetBool("live")
			dryOnly, _ := cmd.Flags().GetBool("dry-run")
			marketSlug, _ := cmd.Flags().GetString("market")
			limit, _ := cmd.Flags().GetInt("limit")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			filter := store.BetFilter{MarketSlug: marketSlug, Limit: limit}
			if live != dryOnly {
				isDry := dryOnly
				filter.DryRun = &isDry
			}

			bets, err := app.Journal.Bets(ctx, filter)
			if err != nil {
				output.Error("Failed to fetch bets: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(bets)
			}

			if len(bets) == 0 {
				output.Info("No bets match.")
				return nil
			}

			output.Bold("Journaled Bets")
			output.Println()

			var total float64
			table := NewTable(output, "Placed", "Market", "Outcome", "Amount", "Price", "Order")
			for _, b := range bets {
				total += b.AmountUSD
				table.AddRow(
					FormatDateTime(b.Timestamp),
					TruncateString(b.MarketSlug, 36),
					b.Outcome,
					FormatUSD(b.AmountUSD),
					FormatPrice(b.Price),
					orderLabel(b.OrderID, b.DryRun),
				)
			}
			table.Render()

			output.Println()
			output.Printf("  %d bets, %s staked\n", len(bets), FormatUSD(total))
			return nil
		},
	}

	cmd.Flags().String("market", "", "filter by market slug")
	cmd.Flags().Bool("live", false, "only live bets")
	cmd.Flags().Bool("dry-run", false, "only dry-run bets")
	cmd.Flags().Int("limit", 50, "number of bets to list")
	return cmd
}

func printSessionRecord(output *Output, s *store.SessionRecord) {
	output.Bold("Session %s", s.ID)
	output.Printf("  Started:   %s\n", FormatDateTime(s.StartedAt))
	output.Printf("  Finished:  %s (%s)\n", FormatDateTime(s.FinishedAt), FormatDuration(s.FinishedAt.Sub(s.StartedAt)))
	output.Printf("  Mode:      %s\n", s.Mode)
	output.Printf("  Model:     %s\n", modelOrDefault(s.Model))
	output.Printf("  State:     %s\n", output.SessionState(s.State))
	output.Printf("  Activity:  %d iterations, %d tool calls\n", s.Iterations, s.ToolCalls)
	output.Printf("  Bets:      %d placed, %s staked\n", s.TradeCount, FormatUSD(s.TotalStaked))
	output.Printf("  Balance:   %s\n", FormatUSD(s.FinalBalance))
}

// resolveSession finds a session by full ID or unique prefix.
func resolveSession(ctx context.Context, journal store.Journal, id string) (*store.SessionRecord, error) {
	sessions, err := journal.Sessions(ctx, store.SessionFilter{Limit: 500})
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}

	var matches []store.SessionRecord
	for _, s := range sessions {
		if s.ID == id {
			return &s, nil
		}
		if strings.HasPrefix(s.ID, id) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no session matches %q", id)
	case 1:
		return &matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, shortID(m.ID))
		}
		return nil, fmt.Errorf("session id %q is ambiguous: %s", id, strings.Join(ids, ", "))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func orderLabel(orderID string, dryRun bool) string {
	if dryRun {
		return "simulated"
	}
	if orderID == "" {
		return "-"
	}
	return TruncateString(orderID, 14)
}

// flattenArgs collapses a JSON argument payload onto one line.
func flattenArgs(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}
