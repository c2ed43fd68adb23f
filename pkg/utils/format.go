// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatCurrency formats a dollar amount with thousands separators.
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	// Format with 2 decimal places
	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := parts[0]
	decPart := parts[1]

	result := "$" + formatThousands(intPart) + "." + decPart
	if negative && str != "0.00" {
		result = "-" + result
	}
	return result
}

// formatThousands inserts a comma between each group of three digits.
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats a signed dollar change.
func FormatPnL(pnl float64) string {
	formatted := FormatCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatShares formats a share count with commas.
func FormatShares(qty int64) string {
	if qty < 0 {
		return "-" + formatThousands(fmt.Sprintf("%d", -qty))
	}
	return formatThousands(fmt.Sprintf("%d", qty))
}

// FormatRatio formats a risk/reward ratio as "2.50:1".
func FormatRatio(ratio float64) string {
	return fmt.Sprintf("%.2f:1", ratio)
}

// FormatCompact formats a dollar amount in compact form (K/M/B).
func FormatCompact(amount float64) string {
	absAmount := amount
	if absAmount < 0 {
		absAmount = -absAmount
	}

	switch {
	case absAmount >= 1e9:
		return fmt.Sprintf("$%.2fB", amount/1e9)
	case absAmount >= 1e6:
		return fmt.Sprintf("$%.2fM", amount/1e6)
	case absAmount >= 1e3:
		return fmt.Sprintf("$%.2fK", amount/1e3)
	}
	return FormatCurrency(amount)
}
