// Package config loads and validates the trader's TOML configuration files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/security"
)

// Config is the merged view of config.toml, the credential set and
// agents.toml.
type Config struct {
	Trading       TradingConfig      `mapstructure:"trading"`
	Endpoints     EndpointsConfig    `mapstructure:"endpoints"`
	UI            UIConfig           `mapstructure:"ui"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Security      SecurityConfig     `mapstructure:"security"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
	Agents        AgentConfig        `mapstructure:"-"` // Loaded separately

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// TradingConfig selects the execution mode and the sizing limit.
type TradingConfig struct {
	Mode                string  `mapstructure:"mode"` // "live", "dry-run"
	MaxSingleBetPercent float64 `mapstructure:"max_single_bet_percent"`
}

// EndpointsConfig overrides the venue API endpoints. Empty values select
// the public defaults.
type EndpointsConfig struct {
	GammaURL      string `mapstructure:"gamma_url"`
	ClobURL       string `mapstructure:"clob_url"`
	PolyWhalerURL string `mapstructure:"polywhaler_url"`
	PolygonRPCURL string `mapstructure:"polygon_rpc_url"`
}

// UIConfig controls terminal rendering.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// SecurityConfig gates live actions and credential handling.
type SecurityConfig struct {
	ReadOnlyMode       bool          `mapstructure:"read_only_mode"`
	SessionTimeout     time.Duration `mapstructure:"session_timeout"`
	EncryptCredentials bool          `mapstructure:"encrypt_credentials"`
	AuditEnabled       bool          `mapstructure:"audit_enabled"`
	StrictValidation   bool          `mapstructure:"strict_validation"`
}

// NotificationConfig routes trade and error events to outside channels.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// WebhookConfig posts events to an HTTP endpoint.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig sends events through a Telegram bot.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// EmailConfig delivers events over SMTP.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Credentials is the secret half of the configuration, kept out of
// config.toml.
type Credentials struct {
	Polymarket PolymarketCredentials `mapstructure:"polymarket"`
	OpenAI     OpenAICredentials     `mapstructure:"openai"`
	Anthropic  AnthropicCredentials  `mapstructure:"anthropic"`
	Tavily     TavilyCredentials     `mapstructure:"tavily"`
}

// PolymarketCredentials holds the venue credential set. The API trio
// authenticates CLOB order endpoints; the private key signs orders; the
// wallet address is the proxy wallet holding the collateral.
type PolymarketCredentials struct {
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	Passphrase    string `mapstructure:"passphrase"`
	PrivateKey    string `mapstructure:"private_key"`
	WalletAddress string `mapstructure:"wallet_address"`
}

// OpenAICredentials authenticates the OpenAI provider.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// AnthropicCredentials authenticates the Anthropic provider.
type AnthropicCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// TavilyCredentials authenticates the news search client.
type TavilyCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// AgentConfig tunes the decision loop.
type AgentConfig struct {
	Provider            string        `mapstructure:"provider"` // "openai", "anthropic"
	Model               string        `mapstructure:"model"`    // empty selects the provider default
	MaxTokens           int           `mapstructure:"max_tokens"`
	MaxIterations       int           `mapstructure:"max_iterations"`
	TopTradersCount     int           `mapstructure:"top_traders_count"`
	MinConsensusTraders int           `mapstructure:"min_consensus_traders"`
	TradeLimit          int           `mapstructure:"trade_limit"`
	RecencyWindow       int           `mapstructure:"recency_window"`
	SettleResolved      bool          `mapstructure:"settle_resolved"`
	AnalysisWorkers     int           `mapstructure:"analysis_workers"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// DefaultConfigDir resolves ~/.config/polymarket-trader.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/polymarket-trader"
	}
	return filepath.Join(home, ".config", "polymarket-trader")
}

// Load reads every configuration file under configDir, applies
// environment overrides and validates the result. An empty configDir
// selects DefaultConfigDir.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// A local .env supplies credentials during development; absence is
	// not an error.
	_ = godotenv.Load()

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}
	if err := loadCredentials(configDir, cfg.Security, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if err := loadAgentConfig(configDir, &cfg.Agents); err != nil {
		return nil, fmt.Errorf("loading agents.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("trading.mode", "dry-run")
	v.SetDefault("trading.max_single_bet_percent", 25.0)
	v.SetDefault("ui.color_enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return writeTemplate(configDir, name+".toml", configTemplate, 0644)
		}
		return err
	}

	return v.Unmarshal(target)
}

// loadCredentials reads the credential set. A sealed vault always wins
// over a plain credentials.toml; the vault holds the TOML bytes
// verbatim, so both paths feed the same decoder.
func loadCredentials(configDir string, sec SecurityConfig, creds *Credentials) error {
	if security.VaultExists(configDir) {
		password := os.Getenv("POLYMARKET_MASTER_PASSWORD")
		if password == "" {
			return fmt.Errorf("credential vault found but POLYMARKET_MASTER_PASSWORD is not set")
		}
		data, err := security.OpenCredentials(configDir, password)
		if err != nil {
			return err
		}
		v := viper.New()
		v.SetConfigType("toml")
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("parsing sealed credentials: %w", err)
		}
		return v.Unmarshal(creds)
	}

	if sec.EncryptCredentials {
		return fmt.Errorf("encrypt_credentials is set but no vault exists, run 'trader config encrypt'")
	}

	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return writeTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func loadAgentConfig(configDir string, agents *AgentConfig) error {
	v := viper.New()
	v.SetConfigName("agents")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("provider", "openai")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("max_iterations", 10)
	v.SetDefault("top_traders_count", 10)
	v.SetDefault("min_consensus_traders", 2)
	v.SetDefault("trade_limit", 500)
	v.SetDefault("recency_window", 0)
	v.SetDefault("settle_resolved", false)
	v.SetDefault("analysis_workers", 4)
	v.SetDefault("cache_ttl", "5m")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return writeTemplate(configDir, "agents.toml", agentsTemplate, 0644)
		}
		return err
	}

	return v.Unmarshal(agents)
}

func applyEnvOverrides(cfg *Config) {
	// Polymarket credentials
	if v := os.Getenv("POLYMARKET_API_KEY"); v != "" {
		cfg.Credentials.Polymarket.APIKey = v
	}
	if v := os.Getenv("POLYMARKET_SECRET"); v != "" {
		cfg.Credentials.Polymarket.APISecret = v
	}
	if v := os.Getenv("POLYMARKET_PASSPHRASE"); v != "" {
		cfg.Credentials.Polymarket.Passphrase = v
	}
	if v := os.Getenv("POLYMARKET_PRIVATE_KEY"); v != "" {
		cfg.Credentials.Polymarket.PrivateKey = v
	}
	if v := os.Getenv("POLYMARKET_WALLET"); v != "" {
		cfg.Credentials.Polymarket.WalletAddress = v
	}

	// Provider credentials
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Credentials.Anthropic.APIKey = v
	}

	// Tavily credentials
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		cfg.Credentials.Tavily.APIKey = v
	}

	// Trading mode
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "dry-run" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'dry-run')", c.Trading.Mode)
	}

	if c.Trading.MaxSingleBetPercent < 0 || c.Trading.MaxSingleBetPercent > 100 {
		return fmt.Errorf("max_single_bet_percent must be between 0 and 100")
	}

	if c.Agents.Provider != "openai" && c.Agents.Provider != "anthropic" {
		return fmt.Errorf("invalid provider: %s (must be 'openai' or 'anthropic')", c.Agents.Provider)
	}
	if c.Agents.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.Agents.MinConsensusTraders < 2 {
		return fmt.Errorf("min_consensus_traders must be at least 2")
	}

	return nil
}

// IsDryRun returns true when orders are simulated instead of submitted.
func (c *Config) IsDryRun() bool {
	return c.Trading.Mode != "live"
}

// ValidateLive checks the fatal preconditions for live trading: the full
// venue credential set must be present before a session starts.
func (c *Config) ValidateLive() error {
	p := c.Credentials.Polymarket
	missing := ""
	switch {
	case p.APIKey == "":
		missing = "api_key"
	case p.APISecret == "":
		missing = "api_secret"
	case p.Passphrase == "":
		missing = "passphrase"
	case p.PrivateKey == "":
		missing = "private_key"
	case p.WalletAddress == "":
		missing = "wallet_address"
	}
	if missing != "" {
		return fmt.Errorf("live trading requires polymarket %s: %w", missing, apperrors.ErrMissingCredentials)
	}
	return nil
}

// ProviderAPIKey returns the key for the configured model provider.
func (c *Config) ProviderAPIKey() (string, error) {
	switch c.Agents.Provider {
	case "anthropic":
		if c.Credentials.Anthropic.APIKey == "" {
			return "", fmt.Errorf("anthropic api key: %w", apperrors.ErrMissingCredentials)
		}
		return c.Credentials.Anthropic.APIKey, nil
	default:
		if c.Credentials.OpenAI.APIKey == "" {
			return "", fmt.Errorf("openai api key: %w", apperrors.ErrMissingCredentials)
		}
		return c.Credentials.OpenAI.APIKey, nil
	}
}

// KnowledgeBasePath is the strategy-notes file read by the
// read_knowledge_base tool.
func (c *Config) KnowledgeBasePath() string {
	return filepath.Join(c.Dir, "knowledge_base.txt")
}

// JournalPath is the SQLite session journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Dir, "journal.db")
}
