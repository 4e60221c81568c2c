package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Polymarket Trader Configuration

[trading]
# Trading mode: "live" or "dry-run"
mode = "dry-run"
# Largest single bet as a percentage of available funds
max_single_bet_percent = 25.0

[endpoints]
# Leave empty to use the public endpoints
gamma_url = ""
clob_url = ""
polywhaler_url = ""
polygon_rpc_url = ""

[security]
# Enable read-only mode (blocks all order placement)
read_only_mode = false
# Wall-clock cap on a single trading session ("0" = no cap)
session_timeout = "15m"
# Require the sealed credential vault (create it with 'trader config encrypt')
encrypt_credentials = false
# Write an audit trail of every trading action
audit_enabled = true
# Reject tool inputs that look like injection attempts
strict_validation = true

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[notifications]
# Enable notifications
enabled = false
# Which events go out: all, trades_only, errors_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""
`

const credentialsTemplate = `# Polymarket Trader Credentials
# WARNING: keep this file private and out of version control.
# Every value can also be supplied via environment variables
# (POLYMARKET_API_KEY, POLYMARKET_SECRET, POLYMARKET_PASSPHRASE,
# POLYMARKET_PRIVATE_KEY, POLYMARKET_WALLET, OPENAI_API_KEY,
# ANTHROPIC_API_KEY, TAVILY_API_KEY), or through a local .env file.
# 'trader config encrypt' seals this file into credentials.enc, after
# which it is shredded and the vault is opened at startup using
# POLYMARKET_MASTER_PASSWORD.

[polymarket]
# CLOB API credential trio (create_or_derive via the venue)
api_key = ""
api_secret = ""
passphrase = ""
# Hex private key of the signing wallet (required for live orders)
private_key = ""
# Proxy wallet address holding the USDC collateral
wallet_address = ""

[openai]
api_key = ""

[anthropic]
api_key = ""

[tavily]
api_key = ""
`

const agentsTemplate = `# Polymarket Trader Agent Configuration

# Model provider: "openai" or "anthropic"
provider = "openai"
# Model name; empty selects the provider default
# (gpt-4o-mini / claude-3-5-sonnet-20241022)
model = ""
# Maximum tokens per model response
max_tokens = 4096

# Hard ceiling on decision-loop iterations per session
max_iterations = 10

# How many ranked traders the session analyzes by default
top_traders_count = 10
# Minimum distinct traders behind a consensus bet
min_consensus_traders = 2
# Trades fetched per wallet for metric reconstruction
trade_limit = 500
# Restrict Sharpe/volatility/drawdown to the most recent N returns
# (0 = full history)
recency_window = 0
# Settle still-open positions of resolved markets into realized P&L
# (adds one market lookup per open position)
settle_resolved = false
# Parallel wallet analyses
analysis_workers = 4
# Ranked-traders cache lifetime
cache_ttl = "5m"
`

// writeTemplate materializes a starter file and always errors: the
// run cannot proceed on placeholder values, so the caller surfaces
// where the file landed and stops. Credentials get 0600.
func writeTemplate(configDir, filename, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, filename)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing starter %s: %w", filename, err)
	}
	return fmt.Errorf("%s not found, wrote a starter file to %s, fill it in and rerun", filename, path)
}
