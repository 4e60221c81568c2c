package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// helpEntry pairs a command line with its one-line description.
type helpEntry struct {
	cmd  string
	desc string
}

// addHelpCommands wires the discovery commands: commands, examples and
// quickstart.
func addHelpCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newExamplesCmd())
	rootCmd.AddCommand(newQuickstartCmd())
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List commands grouped by area",
		Long:  "Print every command grouped by task area.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Polymarket Copy Trader Commands")
			output.Println()

			categories := []struct {
				name    string
				entries []helpEntry
			}{
				{
					name: "Markets",
					entries: []helpEntry{
						{"markets", "List active prediction markets"},
						{"markets show <slug>", "Market detail with outcome quotes"},
					},
				},
				{
					name: "Analysis",
					entries: []helpEntry{
						{"analyze", "Rank leaderboard traders by Sharpe ratio"},
						{"analyze <wallet>", "Score a single wallet"},
						{"whales", "Suggested high-volume wallets to follow"},
					},
				},
				{
					name: "Trading",
					entries: []helpEntry{
						{"trade", "Run an AI copy-trading session (dry run)"},
						{"trade --live", "Run a session with real USDC"},
						{"funds", "Wallet balance and available funds"},
					},
				},
				{
					name: "Journal",
					entries: []helpEntry{
						{"journal sessions", "List recorded sessions"},
						{"journal show <id>", "Session detail with decision trail"},
						{"journal bets", "Bet history across sessions"},
					},
				},
				{
					name: "Configuration",
					entries: []helpEntry{
						{"config show", "Current configuration"},
						{"config path", "Config directory location"},
						{"config validate", "Check configuration"},
						{"config edit", "Where to edit settings"},
					},
				},
				{
					name: "Help",
					entries: []helpEntry{
						{"help <command>", "Flags and details for one command"},
						{"commands", "This listing"},
						{"examples", "Worked workflows"},
						{"quickstart", "First-session walkthrough"},
						{"version", "Build information"},
					},
				},
			}

			for _, cat := range categories {
				output.Bold(cat.name)
				for _, e := range cat.entries {
					output.Printf("  %-30s %s\n", output.Cyan(e.cmd), e.desc)
				}
				output.Println()
			}

			output.Dim("Run 'trader help <command>' for flags and details")

			return nil
		},
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Worked examples for common tasks",
		Long:  "Show composed command sequences for everyday copy-trading workflows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Worked Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Scout the Leaderboard",
					commands: []string{
						"trader whales                   # High-volume wallets worth a look",
						"trader analyze --top 20         # Rank leaders by risk-adjusted return",
						"trader analyze 0x1f2a...        # Deep-dive one wallet",
					},
				},
				{
					title: "Inspect a Market",
					commands: []string{
						"trader markets                  # Active markets by volume",
						"trader markets show will-btc-hit-100k  # Quotes, fees, resolution terms",
					},
				},
				{
					title: "Run a Dry-Run Session",
					commands: []string{
						"trader trade                    # Agent session, no real money",
						"trader trade --iterations 5     # Cap the agent loop",
						"trader journal sessions         # See what it did",
					},
				},
				{
					title: "Go Live",
					commands: []string{
						"trader config validate          # Check credentials first",
						"trader funds                    # Confirm available USDC",
						"trader trade --live             # Real orders, asks for confirmation",
						"trader journal bets --live      # Audit the fills",
					},
				},
				{
					title: "Review Past Sessions",
					commands: []string{
						"trader journal sessions --days 30",
						"trader journal show a1b2c3d4    # Decision trail and bets",
						"trader journal bets --market will-btc-hit-100k",
					},
				},
				{
					title: "Machine-Readable Output",
					commands: []string{
						"trader analyze --top 10 --json  # Pipe rankings into jq",
						"trader trade --json             # Session result as JSON",
					},
				},
			}

			for _, ex := range examples {
				output.Bold(ex.title)
				for _, line := range ex.commands {
					cmdPart, note, hasNote := strings.Cut(line, "#")
					if hasNote {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(cmdPart)), output.DimText(strings.TrimSpace(note)))
					} else {
						output.Printf("  %s\n", output.Cyan(line))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}

func newQuickstartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "First-session walkthrough",
		Long:  "Walk through first-time setup up to a first live session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Polymarket Copy Trader - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{
					title: "Set the Provider Key",
					desc:  "Add your LLM provider API key to the credentials file.",
					cmd:   "trader config path  # Where the files live",
				},
				{
					title: "Validate Configuration",
					desc:  "Check that the config files parse and the mode is sane.",
					cmd:   "trader config validate",
				},
				{
					title: "Browse Markets",
					desc:  "See what is trading and where the volume is.",
					cmd:   "trader markets",
				},
				{
					title: "Score the Leaderboard",
					desc:  "Rank top traders by Sharpe ratio over their recent trades.",
					cmd:   "trader analyze --top 10",
				},
				{
					title: "Run a Dry-Run Session",
					desc:  "Let the agent pick bets without staking anything.",
					cmd:   "trader trade",
				},
				{
					title: "Review the Journal",
					desc:  "Read the decision trail behind each simulated bet.",
					cmd:   "trader journal show <session-id>",
				},
				{
					title: "Add Wallet Credentials",
					desc:  "Put your Polymarket CLOB keys and wallet in credentials.toml.",
					cmd:   "Edit credentials.toml: [polymarket] section",
				},
				{
					title: "Go Live",
					desc:  "Run a session with real USDC (you will be asked to confirm).",
					cmd:   "trader trade --live",
				},
			}

			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Cyan("→"), i+1, output.BoldText(s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Config Files")
			output.Println()
			output.Printf("  %s - API credentials (LLM provider, Polymarket, Tavily)\n", output.Cyan("credentials.toml"))
			output.Printf("  %s - Trading mode, bet limits, endpoints\n", output.Cyan("config.toml"))
			output.Printf("  %s - Agent provider, model, iteration budget\n", output.Cyan("agents.toml"))
			output.Println()

			output.Bold("Getting Help")
			output.Println()
			output.Printf("  %s - command listing\n", output.Cyan("trader commands"))
			output.Printf("  %s - worked examples\n", output.Cyan("trader examples"))
			output.Printf("  %s - flags for one command\n", output.Cyan("trader help <command>"))
			output.Println()

			output.Bold("Important Notes")
			output.Println()
			output.Printf("  %s Always start in dry-run mode\n", output.Yellow("⚠"))
			output.Printf("  %s Set max_single_bet_percent before going live\n", output.Yellow("⚠"))
			output.Printf("  %s Read the journal's decision trail before trusting a session\n", output.Yellow("⚠"))
			output.Printf("  %s Keep your wallet private key secure\n", output.Yellow("⚠"))

			return nil
		},
	}
}
