package utils

import "testing"

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{999.999, "$1,000.00"},
		{1234.5, "$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{-25000, "-$25,000.00"},
		{-0.001, "$0.00"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.in); got != tt.want {
			t.Errorf("FormatCurrency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatShares(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{100, "100"},
		{1000, "1,000"},
		{123456, "123,456"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		if got := FormatShares(tt.in); got != tt.want {
			t.Errorf("FormatShares(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSigned(t *testing.T) {
	if got := FormatPercent(2.5); got != "+2.50%" {
		t.Errorf("FormatPercent(2.5) = %q", got)
	}
	if got := FormatPercent(-1); got != "-1.00%" {
		t.Errorf("FormatPercent(-1) = %q", got)
	}
	if got := FormatPnL(150); got != "+$150.00" {
		t.Errorf("FormatPnL(150) = %q", got)
	}
	if got := FormatRatio(2.5); got != "2.50:1" {
		t.Errorf("FormatRatio(2.5) = %q", got)
	}
	if got := FormatCompact(2_500_000); got != "$2.50M" {
		t.Errorf("FormatCompact = %q", got)
	}
}
