package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"polymarket-trader/internal/models"
	"polymarket-trader/pkg/utils"
)

// addMarketCommands adds market catalogue commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newMarketsCmd(app))
}

func newMarketsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "Browse active markets",
		Long:  "List active markets ordered by volume, or inspect one market in detail.",
		Example: `  trader markets
  trader markets --limit 50
  trader markets show will-the-fed-cut-rates-in-march`,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return runMarketsList(cmd, app, limit)
		},
	}

	cmd.Flags().Int("limit", 20, "number of markets to list")
	cmd.AddCommand(newMarketShowCmd(app))
	return cmd
}

func runMarketsList(cmd *cobra.Command, app *App, limit int) error {
	output := NewOutput(cmd)
	if app.Market == nil {
		return fmt.Errorf("market client not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	markets, err := app.Market.Markets.Active(ctx, limit)
	if err != nil {
		output.Error("Failed to list markets: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(markets)
	}

	output.Bold("Active Markets")
	output.Println()

	table := NewTable(output, "Market", "Volume", "Liquidity", "Ends", "Status")
	for _, m := range markets {
		status := "ACTIVE"
		if !m.AcceptingOrders {
			status = "NOT_ACCEPTING"
		}
		table.AddRow(
			TruncateString(m.Question, 48),
			FormatVolume(numericValue(m.Volume)),
			FormatVolume(numericValue(m.Liquidity)),
			datePart(m.EndDate),
			output.MarketStatus(status),
		)
	}
	table.Render()

	output.Println()
	output.Dim("Use 'trader markets show <slug>' for outcome prices.")
	return nil
}

func newMarketShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one market with outcome prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Market == nil {
				return fmt.Errorf("market client not initialized")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			details, err := app.Market.Markets.Details(ctx, args[0])
			if err != nil {
				output.Error("Failed to fetch market: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(details)
			}

			printMarketDetails(output, details)
			return nil
		},
	}
}

func printMarketDetails(output *Output, d *models.MarketDetails) {
	output.Bold("%s", d.Title)
	output.Dim("%s", d.Slug)
	output.Println()

	output.Printf("  Status:     %s\n", output.MarketStatus(marketStatusLabel(d)))
	if d.Category != "" {
		output.Printf("  Category:   %s\n", d.Category)
	}
	ends := datePart(d.EndDate)
	if remaining := utils.TimeUntilEnd(d.EndDate); remaining > 0 {
		ends = fmt.Sprintf("%s (in %s)", ends, utils.FormatDuration(remaining))
	}
	output.Printf("  Ends:       %s\n", ends)
	output.Printf("  Volume:     %s\n", FormatVolume(d.Volume))
	output.Printf("  Liquidity:  %s\n", FormatVolume(d.Liquidity))
	if d.Fees.Maker > 0 || d.Fees.Taker > 0 {
		output.Printf("  Fees:       %.0f bps maker / %.0f bps taker\n", d.Fees.Maker, d.Fees.Taker)
	}
	output.Println()

	if len(d.Quotes) > 0 {
		table := NewTable(output, "Outcome", "Price", "Implied", "Return If Wins")
		for _, q := range d.Quotes {
			table.AddRow(
				q.Outcome,
				FormatPrice(q.Price),
				fmt.Sprintf("%.1f%%", q.ImpliedProbability),
				fmt.Sprintf("+%.1f%%", q.PotentialReturn),
			)
		}
		table.Render()
		output.Dim("Winning shares settle at $1.00 each.")
	}

	for _, w := range d.Warnings {
		output.Warning("⚠ %s", w)
	}

	if d.Description != "" {
		output.Println()
		output.Bold("Resolution")
		output.Println(TruncateString(d.Description, 400))
	}
}

func marketStatusLabel(d *models.MarketDetails) string {
	switch {
	case d.Closed:
		return "CLOSED"
	case !d.Active:
		return "INACTIVE"
	case !d.AcceptingOrders:
		return "NOT_ACCEPTING"
	default:
		return "ACTIVE"
	}
}

// numericValue unwraps the venue's stringly-typed numbers for display.
func numericValue(n models.Numeric) float64 {
	v, _ := n.Float64()
	return v
}

// datePart trims an ISO timestamp down to the date.
func datePart(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	if s == "" {
		return "-"
	}
	return s
}
