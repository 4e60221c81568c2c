package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"polymarket-trader/pkg/utils"
)

// FormatUSD formats a dollar amount with thousands separators.
// The venue settles everything in USDC, so two decimal places are
// always shown: 1234.5 becomes $1,234.50. The grouping itself lives
// in pkg/utils so notification text matches the terminal.
func FormatUSD(amount float64) string {
	return utils.FormatUSD(amount)
}

// FormatPercent formats a percentage value with a sign for gains.
func FormatPercent(value float64) string {
	if value > 0 {
		return fmt.Sprintf("+%.2f%%", value)
	}
	return fmt.Sprintf("%.2f%%", value)
}

// FormatPnL formats a profit/loss amount with a sign for gains.
func FormatPnL(pnl float64) string {
	if pnl > 0 {
		return "+" + FormatUSD(pnl)
	}
	return FormatUSD(pnl)
}

// FormatCompact formats large dollar amounts in short form ($1.25M).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", amount/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", amount/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.2fK", amount/1e3)
	default:
		return FormatUSD(amount)
	}
}

// FormatVolume formats trading volume in short form.
func FormatVolume(volume float64) string {
	switch {
	case volume >= 1e9:
		return fmt.Sprintf("%.2fB", volume/1e9)
	case volume >= 1e6:
		return fmt.Sprintf("%.2fM", volume/1e6)
	case volume >= 1e3:
		return fmt.Sprintf("%.2fK", volume/1e3)
	default:
		return fmt.Sprintf("%.0f", volume)
	}
}

// FormatPrice formats an outcome share price. Prices live on a 0.001
// tick grid between 0 and 1.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.3f", price)
}

// FormatProbability renders an outcome price as an implied probability.
func FormatProbability(price float64) string {
	return fmt.Sprintf("%.1f%%", price*100)
}

// FormatTime formats a timestamp for display (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format("15:04:05")
}

// FormatDate formats a date for display.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FormatDateTime formats a full timestamp for display.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// FormatUnixTime formats a unix-seconds timestamp for display.
func FormatUnixTime(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return FormatDateTime(time.Unix(ts, 0))
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

// ShortWallet abbreviates a wallet address for table display.
func ShortWallet(wallet string) string {
	if len(wallet) <= 12 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}

// TruncateString truncates a string to a maximum length.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// PadRight pads a string to a fixed width.
func PadRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// PadLeft pads a string to a fixed width.
func PadLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
