package security

import (
	"strings"
	"testing"
)

const (
	testConditionID = "0xc0ffee0000000000000000000000000000000000000000000000000000c0ffee"
	testTokenID     = "7132104567925221259462638553270691275033272857194253228963137931"
)

func TestRedactMasksLabelledSecrets(t *testing.T) {
	in := `request failed: api_key=sk1234567890abcdef status 401`
	out := Redact(in)

	if strings.Contains(out, "sk1234567890abcdef") {
		t.Errorf("secret survived redaction: %s", out)
	}
	if !strings.Contains(out, "api_key=") {
		t.Errorf("label lost in redaction: %s", out)
	}
	if !strings.Contains(out, "request failed:") || !strings.Contains(out, "status 401") {
		t.Errorf("surrounding text damaged: %s", out)
	}
}

func TestRedactMasksVendorKeys(t *testing.T) {
	for _, key := range []string{
		"sk-ant-REDACTED",
		"sk-abcdefghijklmnopqrstuv",
		"tvly-abcdefghijklmnopqrst",
	} {
		out := Redact("token " + key + " rejected")
		if strings.Contains(out, key) {
			t.Errorf("vendor key survived redaction: %s", out)
		}
	}
}

func TestRedactLeavesMarketIdentifiersAlone(t *testing.T) {
	// Condition IDs share the hex shape of a private key and token IDs
	// are long bare integers. Both must survive untouched or the audit
	// trail loses the very identifiers it exists to record.
	for _, id := range []string{testConditionID, testTokenID, "will-btc-close-above-150k"} {
		if got := Redact(id); got != id {
			t.Errorf("Redact(%q) = %q, want unchanged", id, got)
		}
	}
}

func TestContainsSecret(t *testing.T) {
	positives := []string{
		"api_secret: c2VjcmV0LXNlY3JldA==",
		"my key is sk-abcdefghijklmnopqrstuv",
		"passphrase=correct-horse-battery",
	}
	for _, s := range positives {
		if !ContainsSecret(s) {
			t.Errorf("ContainsSecret(%q) = false", s)
		}
	}

	negatives := []string{
		"will-btc-close-above-150k",
		testConditionID,
		testTokenID,
		`{"market_slug": "us-recession-2026", "amount_usd": 10}`,
	}
	for _, s := range negatives {
		if ContainsSecret(s) {
			t.Errorf("ContainsSecret(%q) = true", s)
		}
	}
}

func TestMaskCredential(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"12345678", "********"},
		{"sk-verylongcredential123", "sk-v****************l123"},
	}
	for _, tc := range cases {
		if got := MaskCredential(tc.in); got != tc.want {
			t.Errorf("MaskCredential(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
