package ingest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain decimal", "1234.56", "1234.56"},
		{"comma thousands", "1,234.56", "1234.56"},
		{"dot thousands", "1.234,56", "1234.56"},
		{"comma decimal", "1234,56", "1234.56"},
		{"single comma one decimal", "50,5", "50.5"},
		{"comma thousands no decimals", "1,234,567", "1234567"},
		{"dot thousands no decimals", "1.234.567", "1234567"},
		{"negative", "-1498.50", "-1498.5"},
		{"parenthesized negative", "(1498.50)", "-1498.5"},
		{"currency symbol", "$ 1,500.00", "1500"},
		{"whitespace", "  750.25  ", "750.25"},
		{"integer", "900", "900"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if err != nil {
				t.Fatalf("ParseAmount(%q) error: %v", tt.input, err)
			}
			expected, _ := decimal.NewFromString(tt.expected)
			if !got.Equal(expected) {
				t.Errorf("ParseAmount(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "sin monto", "-"} {
		if _, err := ParseAmount(input); err == nil {
			t.Errorf("ParseAmount(%q) expected error", input)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15-03-2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-03-15 10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"5/3/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseDate(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDateErrors(t *testing.T) {
	for _, input := range []string{"", "ayer", "99/99/2024"} {
		if _, err := ParseDate(input); err == nil {
			t.Errorf("ParseDate(%q) expected error", input)
		}
	}
}
