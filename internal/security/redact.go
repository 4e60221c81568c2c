package security

import (
	"regexp"
	"strings"
)

// Secret-bearing shapes that must not reach a log line or the journal.
// Bare hex strings are deliberately not matched: market condition IDs
// share the 0x-prefixed 64-hex shape of a private key, so key material
// is caught by the labelled forms and vendor prefixes instead. Long
// unlabelled numbers stay untouched for the same reason, outcome token
// IDs are 70-digit integers.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?secret|secret[_-]?key|access[_-]?token|auth[_-]?token|bearer|password|passphrase|private[_-]?key)[=:\s]+["']?([A-Za-z0-9_\-\./+]{8,})["']?`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9-]{20,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`tvly-[A-Za-z0-9]{20,}`),
}

// Redact masks secret-bearing substrings and returns the rest of the
// text unchanged. Labelled values keep their label so the redacted
// line still reads.
func Redact(input string) string {
	result := input
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllStringFunc(result, redactMatch)
	}
	return result
}

// redactMatch masks the value part of a label=value or label: value
// match, and the whole match for bare vendor-prefixed keys.
func redactMatch(match string) string {
	for _, sep := range []string{"=", ":"} {
		if label, value, ok := strings.Cut(match, sep); ok {
			return label + sep + MaskCredential(strings.Trim(value, "\"' "))
		}
	}
	return MaskCredential(match)
}

// ContainsSecret reports whether the input matches any secret shape.
func ContainsSecret(input string) bool {
	for _, pattern := range secretPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// MaskCredential shortens a credential to its first and last four
// characters. Short values are starred out entirely so their length
// leaks nothing.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
