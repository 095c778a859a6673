package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultEngineConfigIsValid(t *testing.T) {
	if err := DefaultEngineConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := StrictEngineConfig().Validate(); err != nil {
		t.Errorf("strict config invalid: %v", err)
	}
}

func TestEngineConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*EngineConfig)
	}{
		{"zero reference digits", func(c *EngineConfig) { c.MinReferenceDigits = 0 }},
		{"confidence above one", func(c *EngineConfig) { c.Reference.ExactConfidence = 1.5 }},
		{"negative threshold", func(c *EngineConfig) { c.Reference.AcceptThreshold = -0.1 }},
		{"inverted trailing run bounds", func(c *EngineConfig) { c.Reference.MaxTrailingRun = 2 }},
		{"tolerance percent over 100", func(c *EngineConfig) { c.AmountDate.TolerancePercent = 150 }},
		{"inverted date bonus windows", func(c *EngineConfig) { c.AmountDate.DateBonusNearDays = 60 }},
		{"zero max keywords", func(c *EngineConfig) { c.Keyword.MaxKeywords = 0 }},
		{"zero token length", func(c *EngineConfig) { c.Keyword.MinTokenLength = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultEngineConfig()
			tt.modify(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEngineConfigClone(t *testing.T) {
	original := DefaultEngineConfig()
	clone := original.Clone()

	clone.Reference.AcceptThreshold = 0.99
	if original.Reference.AcceptThreshold == 0.99 {
		t.Error("mutating the clone changed the original")
	}
}

func TestAmountTolerance(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		percent  float64
		minimum  float64
		expected float64
	}{
		{"percentage dominates", 1500.00, 5.0, 5.0, 75.00},
		{"floor dominates", 40.00, 5.0, 5.0, 5.00},
		{"negative amount uses magnitude", -1000.00, 5.0, 5.0, 50.00},
		{"zero amount", 0.00, 5.0, 5.0, 5.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amountTolerance(decimal.NewFromFloat(tt.amount), tt.percent, tt.minimum)
			if !got.Equal(decimal.NewFromFloat(tt.expected)) {
				t.Errorf("amountTolerance = %s, expected %f", got, tt.expected)
			}
		})
	}
}
