package utils

import "testing"

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{42.5, "$42.50"},
		{999.99, "$999.99"},
		{1000, "$1,000.00"},
		{1234567.89, "$1,234,567.89"},
		{-250.75, "-$250.75"},
		{-1000000, "-$1,000,000.00"},
	}

	for _, tc := range cases {
		if got := FormatUSD(tc.amount); got != tc.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestFormatShares(t *testing.T) {
	if got := FormatShares(1500); got != "1,500" {
		t.Errorf("FormatShares(1500) = %q", got)
	}
	if got := FormatShares(24.193); got != "24.19" {
		t.Errorf("FormatShares(24.193) = %q", got)
	}
	if got := FormatShares(0); got != "0" {
		t.Errorf("FormatShares(0) = %q", got)
	}
}
