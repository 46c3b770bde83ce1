package ui

import (
	"strings"

	"github.com/shopspring/decimal"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}

// cell truncates then pads s to exactly width runes.
func cell(s string, width int) string {
	return padRight(truncate(s, width), width)
}

// formatPrice renders a price with two decimals and a dollar sign.
func formatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// parsePrice accepts "12", "12.5" or "$12.50".
func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// clamp keeps i within [0, n).
func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// window returns the [start, end) range of n rows to show so that cursor
// stays visible in height rows.
func window(cursor, n, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > n {
		start = n - height
	}
	return start, start + height
}
