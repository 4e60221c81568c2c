package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"polymarket-trader/internal/analytics"
	"polymarket-trader/internal/config"
	"polymarket-trader/internal/logging"
	"polymarket-trader/internal/market"
	"polymarket-trader/internal/news"
	"polymarket-trader/internal/security"
	"polymarket-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App bundles the shared dependencies the command tree closes over.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Market  *market.Client
	News    news.Searcher
	Journal store.Journal
}

// newAnalyzer builds the trader analytics pipeline over the venue
// client, with agent tuning applied on top of the defaults.
func (a *App) newAnalyzer() *analytics.TraderAnalyzer {
	cfg := analytics.DefaultAnalyzerConfig()
	agentCfg := a.Config.Agents

	if agentCfg.TradeLimit > 0 {
		cfg.TradeLimit = agentCfg.TradeLimit
	}
	if agentCfg.RecencyWindow > 0 {
		cfg.RecencyWindow = agentCfg.RecencyWindow
	}
	if agentCfg.AnalysisWorkers > 0 {
		cfg.Workers = agentCfg.AnalysisWorkers
	}
	if agentCfg.MinConsensusTraders > 0 {
		cfg.MinTraders = agentCfg.MinConsensusTraders
	}
	if agentCfg.CacheTTL > 0 {
		cfg.CacheTTL = agentCfg.CacheTTL
	}
	cfg.SettleResolved = agentCfg.SettleResolved

	return analytics.NewTraderAnalyzer(a.Market, cfg, a.Logger)
}

// NewRootCmd assembles the full command tree and its shared clients.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize the venue client. Public data works without
	// credentials; order signing needs the full credential set.
	client, err := market.NewClient(market.ClientConfig{
		GammaURL:      cfg.Endpoints.GammaURL,
		ClobURL:       cfg.Endpoints.ClobURL,
		PolyWhalerURL: cfg.Endpoints.PolyWhalerURL,
		PolygonRPCURL: cfg.Endpoints.PolygonRPCURL,
		Clob: market.ClobConfig{
			Credentials: market.ClobCredentials{
				APIKey:     cfg.Credentials.Polymarket.APIKey,
				Secret:     cfg.Credentials.Polymarket.APISecret,
				Passphrase: cfg.Credentials.Polymarket.Passphrase,
			},
			PrivateKey:    cfg.Credentials.Polymarket.PrivateKey,
			FunderAddress: cfg.Credentials.Polymarket.WalletAddress,
		},
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize market client, trading commands unavailable")
	} else {
		app.Market = client
		logger.Debug().Msg("Market client initialized")
	}

	// News search degrades gracefully when no API key is configured.
	app.News = news.NewTavilyClient("", cfg.Credentials.Tavily.APIKey, logger)

	// Initialize the session journal
	journal, err := store.NewSQLiteJournal(cfg.JournalPath())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize journal, sessions will not be recorded")
	} else {
		app.Journal = journal
		logger.Debug().Msg("Session journal initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Polymarket Copy Trader - AI-powered prediction market CLI",
		Long: `Polymarket Copy Trader is an autonomous copy-trading CLI for prediction markets.

It ranks the venue's most profitable traders, finds the markets where they
concentrate, and runs an AI agent session that decides which of their bets
to follow. Dry-run mode simulates every fill; live mode signs and submits
real orders against the CLOB.

Run 'trader quickstart' for a first-session walkthrough and
'trader examples' for common workflows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			if !cfg.UI.ColorEnabled {
				color.NoColor = true
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/polymarket-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addHelpCommands(rootCmd)

	return rootCmd
}

// addCoreCommands registers version and the config group.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Polymarket Copy Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Inspect and validate the configuration files.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				// Credentials never leave the credentials file.
				return output.JSON(map[string]interface{}{
					"trading":       app.Config.Trading,
					"endpoints":     app.Config.Endpoints,
					"agents":        app.Config.Agents,
					"notifications": app.Config.Notifications,
					"security":      app.Config.Security,
					"dir":           app.Config.Dir,
				})
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir := app.Config.Dir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Config validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Where to edit settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir := app.Config.Dir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			output.Info("Configuration file: %s/config.toml", dir)
			output.Println("Edit this file to change settings.")
			output.Dim("Credentials live in credentials.toml, agent tuning in agents.toml.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt",
		Short: "Seal credentials.toml into an encrypted vault",
		Long: `Encrypts credentials.toml into credentials.enc using a key derived
from POLYMARKET_MASTER_PASSWORD, then shreds the plaintext file. Once
the vault exists it is opened automatically at startup with the same
environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir := app.Config.Dir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}

			plainPath := filepath.Join(dir, "credentials.toml")
			data, err := os.ReadFile(plainPath)
			if err != nil {
				if os.IsNotExist(err) {
					if security.VaultExists(dir) {
						output.Info("Credentials are already sealed in %s", security.VaultPath(dir))
						return nil
					}
					return fmt.Errorf("no credentials.toml found in %s", dir)
				}
				return err
			}

			password := os.Getenv("POLYMARKET_MASTER_PASSWORD")
			if password == "" {
				return fmt.Errorf("set POLYMARKET_MASTER_PASSWORD before sealing credentials")
			}

			if err := security.SealCredentials(dir, data, password); err != nil {
				return err
			}
			if err := security.ShredFile(plainPath); err != nil {
				output.Warning("Vault written but plaintext could not be removed: %v", err)
			}

			output.Success("✓ Credentials sealed into %s", security.VaultPath(dir))
			output.Dim("Keep POLYMARKET_MASTER_PASSWORD exported; the vault is opened at startup.")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:             %s\n", cfg.Trading.Mode)
	output.Printf("  Max Single Bet:   %.1f%% of balance\n", cfg.Trading.MaxSingleBetPercent)
	output.Println()

	output.Bold("Agent Configuration")
	output.Printf("  Provider:         %s\n", cfg.Agents.Provider)
	output.Printf("  Model:            %s\n", modelOrDefault(cfg.Agents.Model))
	output.Printf("  Max Iterations:   %d\n", cfg.Agents.MaxIterations)
	output.Printf("  Top Traders:      %d\n", cfg.Agents.TopTradersCount)
	output.Printf("  Min Consensus:    %d traders\n", cfg.Agents.MinConsensusTraders)
	output.Printf("  Trade Limit:      %d per wallet\n", cfg.Agents.TradeLimit)
	output.Printf("  Analysis Workers: %d\n", cfg.Agents.AnalysisWorkers)
	output.Printf("  Cache TTL:        %s\n", cfg.Agents.CacheTTL)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:          %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:            %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:          %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:         %v\n", cfg.Notifications.Telegram.Enabled)
	output.Printf("  Email:            %v\n", cfg.Notifications.Email.Enabled)
	output.Println()

	output.Bold("Security")
	output.Printf("  Read Only:        %v\n", cfg.Security.ReadOnlyMode)
	output.Printf("  Audit Log:        %v\n", cfg.Security.AuditEnabled)
	output.Printf("  Strict Checks:    %v\n", cfg.Security.StrictValidation)
	output.Println()

	output.Bold("Credentials")
	output.Printf("  Storage:          %s\n", credentialStorage(cfg))
	output.Printf("  Polymarket:       %s\n", maskedOrUnset(cfg.Credentials.Polymarket.APIKey))
	output.Printf("  OpenAI:           %s\n", maskedOrUnset(cfg.Credentials.OpenAI.APIKey))
	output.Printf("  Anthropic:        %s\n", maskedOrUnset(cfg.Credentials.Anthropic.APIKey))
	output.Printf("  Tavily:           %s\n", maskedOrUnset(cfg.Credentials.Tavily.APIKey))

	return nil
}

func credentialStorage(cfg *config.Config) string {
	dir := cfg.Dir
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	if security.VaultExists(dir) {
		return "sealed vault (credentials.enc)"
	}
	return "plain file (credentials.toml)"
}

func maskedOrUnset(value string) string {
	if value == "" {
		return "(not set)"
	}
	return security.MaskCredential(value)
}

func modelOrDefault(model string) string {
	if model == "" {
		return "(provider default)"
	}
	return model
}
