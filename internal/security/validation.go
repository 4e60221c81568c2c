package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// Market slug: lowercase words joined by single hyphens.
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	// Wallet address: 0x-prefixed 20-byte hex, checksummed or not.
	walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

	// Statement-shaped injection attempts checked in strict mode.
	// Single punctuation characters stay legal on purpose: market
	// questions quote prices ($150k) and search queries carry
	// apostrophes.
	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(union\s+select|drop\s+table|insert\s+into|delete\s+from|update\s+\w+\s+set)`),
		regexp.MustCompile(`(?i)\b(or|and)\s+1\s*=\s*1`),
		regexp.MustCompile(`(?i)(rm\s+-rf|sh\s+-c|\x60)`),
	}
)

// maxBetUSD caps a single stake. An order past it is a corrupted
// argument, not a position size this account could hold.
const maxBetUSD = 1000000

// ValidationError reports a rejected input with the field it came from.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// InputValidator checks the arguments the model hands to tools before
// they reach the venue. Strict mode additionally rejects text that
// looks like an injection attempt.
type InputValidator struct {
	strictMode bool
}

// NewInputValidator creates a validator.
func NewInputValidator(strictMode bool) *InputValidator {
	return &InputValidator{strictMode: strictMode}
}

// ValidateMarketSlug checks a market slug. The character class alone
// rules out anything that could escape a URL path segment.
func (v *InputValidator) ValidateMarketSlug(slug string) error {
	slug = strings.TrimSpace(strings.ToLower(slug))

	if slug == "" {
		return &ValidationError{Field: "market_slug", Value: slug, Message: "market slug cannot be empty"}
	}
	if len(slug) > 120 {
		return &ValidationError{Field: "market_slug", Value: slug, Message: "market slug too long (max 120 characters)"}
	}
	if !slugPattern.MatchString(slug) {
		return &ValidationError{Field: "market_slug", Value: slug, Message: "invalid market slug format"}
	}
	return nil
}

// ValidateWalletAddress checks an EVM wallet address.
func (v *InputValidator) ValidateWalletAddress(address string) error {
	address = strings.TrimSpace(address)

	if address == "" {
		return &ValidationError{Field: "wallet_address", Value: address, Message: "wallet address cannot be empty"}
	}
	if !walletPattern.MatchString(address) {
		return &ValidationError{Field: "wallet_address", Value: address, Message: "invalid wallet address format"}
	}
	return nil
}

// ValidateBetAmount checks a stake in USD.
func (v *InputValidator) ValidateBetAmount(amount float64) error {
	if amount <= 0 {
		return &ValidationError{Field: "amount_usd", Value: fmt.Sprintf("%.2f", amount), Message: "amount must be positive"}
	}
	if amount > maxBetUSD {
		return &ValidationError{Field: "amount_usd", Value: fmt.Sprintf("%.2f", amount), Message: "amount exceeds maximum allowed"}
	}
	return nil
}

// ValidateText checks free-form text input such as search queries. The
// value in the error is redacted because rejected text is echoed into
// logs and the tool transcript.
func (v *InputValidator) ValidateText(field, text string, maxLen int) error {
	if len(text) > maxLen {
		return &ValidationError{Field: field, Value: truncate(text, 50), Message: fmt.Sprintf("text too long (max %d characters)", maxLen)}
	}
	if v.strictMode && looksLikeInjection(text) {
		return &ValidationError{Field: field, Value: Redact(text), Message: "potentially dangerous content detected"}
	}
	return nil
}

func looksLikeInjection(input string) bool {
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SanitizeSlug lowercases a slug and strips every character that
// cannot appear in one. Models occasionally echo slugs with the
// question's capitalisation or a trailing question mark.
func SanitizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || unicode.IsDigit(r) || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
