package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newWhalesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whales",
		Short: "Show wallets with unusual recent activity",
		Long: `Show wallets the whale feed flags for unusual recent activity.

These are candidates worth watching that the volume leaderboard may not
surface yet: wallets placing large or frequent bets over the last days.`,
		Example: `  trader whales
  trader whales --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				limit = 10
			}

			if app.Market == nil {
				return fmt.Errorf("market client not initialized")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			whales, err := app.Market.Wallets.SuggestedWhales(ctx, limit)
			if err != nil {
				return fmt.Errorf("whale feed: %w", err)
			}

			jsonMode, _ := cmd.Flags().GetBool("json")
			if jsonMode {
				return NewOutput(cmd).JSON(whales)
			}

			fmt.Println()
			color.Cyan("🐋 Suggested Whales")
			fmt.Println("─────────────────────────────────────────")

			if len(whales) == 0 {
				fmt.Println("No suggestions right now.")
				return nil
			}

			fmt.Printf("%-20s %-14s %8s %12s  %s\n", "Name", "Wallet", "Trades", "Volume", "Last Trade")
			fmt.Println("──────────────────────────────────────────────────────────────────────────")
			for _, w := range whales {
				name := w.Name
				if name == "" {
					name = "-"
				}
				fmt.Printf("%-20s %-14s %8d %12s  %s\n",
					TruncateString(name, 20),
					ShortWallet(w.Wallet),
					w.RecentTradeCount,
					FormatCompact(w.RecentVolume),
					FormatUnixTime(w.LastTradeTime),
				)
			}
			fmt.Println()

			color.Yellow("💡 Use 'trader analyze <wallet>' to score any of these wallets")
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "number of suggestions to show")
	return cmd
}
