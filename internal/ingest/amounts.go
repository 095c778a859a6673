package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw amount string into a decimal, accepting both
// the "1,234.56" and the "1.234,56" conventions plus plain "1234.56".
// Currency symbols and whitespace are ignored. When both separators appear,
// the rightmost one is the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := cleanAmount(raw)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("no amount in %q", raw)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// "1.234,56": dots group thousands, comma is decimal.
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// "1,234.56": commas group thousands.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		// Comma only. A single comma followed by one or two digits is a
		// decimal separator; anything else is thousands grouping.
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-lastComma-1 <= 2 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		// "1.234.567": dots can only be thousands grouping.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}

// cleanAmount keeps digits, separators, and a leading sign. A trailing
// parenthesis pair marks a negative amount in some bank exports.
func cleanAmount(raw string) string {
	raw = strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = raw[1 : len(raw)-1]
	}

	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if negative && !strings.HasPrefix(cleaned, "-") {
		cleaned = "-" + cleaned
	}
	return cleaned
}

// dateFormats lists the accepted date layouts, tried in order. Day-first
// layouts come before month-first because the feeds use Latin American
// conventions.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
	"02/01/2006 15:04:05",
	"2/1/2006",
}

// ParseDate converts a raw date string using the first layout that accepts
// it.
func ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", raw)
}
