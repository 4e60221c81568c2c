// Package utils carries the small helpers shared across layers, from
// retry loops to money formatting.
package utils

import (
	"fmt"
	"strings"
)

// FormatUSD renders a dollar amount with comma grouping and two
// decimals. Display-only formatting lives in internal/cli; this
// primitive is shared so notification text matches the terminal.
func FormatUSD(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	text := fmt.Sprintf("%.2f", amount)
	intPart, decPart, _ := strings.Cut(text, ".")

	out := "$" + groupThousands(intPart) + "." + decPart
	if negative {
		out = "-" + out
	}
	return out
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	out := s[n-3:]
	s = s[:n-3]

	for len(s) > 0 {
		if len(s) >= 3 {
			out = s[len(s)-3:] + "," + out
			s = s[:len(s)-3]
		} else {
			out = s + "," + out
			s = ""
		}
	}

	return out
}

// FormatShares renders a share count, trimming needless decimals.
func FormatShares(shares float64) string {
	if shares == float64(int64(shares)) {
		return groupThousands(fmt.Sprintf("%d", int64(shares)))
	}
	return fmt.Sprintf("%.2f", shares)
}
