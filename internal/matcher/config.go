// Package matcher implements the payment reconciliation matching engine.
//
// The engine pairs field-collection payment records against bank statement
// lines in three sequential phases, each consuming from a shrinking candidate
// pool:
//  1. Reference matching: digit-normalized reference containment with a
//     strict precedence order (main reference, then payment reference,
//     then invoice number)
//  2. Amount/date matching: fuzzy comparison of monetary magnitudes and
//     calendar proximity for records without a usable reference
//  3. Keyword matching: token-set similarity over cleaned descriptions as
//     a last resort
//
// Every accepted pair carries a bounded confidence score and a structured
// criteria breakdown. A final deduplication pass guarantees each bank
// transaction is claimed by at most one match.
//
// Example usage:
//
//	config := matcher.DefaultEngineConfig()
//	config.Reference.AcceptThreshold = 0.6
//
//	engine := matcher.NewMatchingEngine(config)
//	matches, err := engine.RunReconciliation("acct-17", collections, banks)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EngineConfig holds every tolerance and threshold the matching engine uses.
// All heuristic constants live here rather than in code so the algorithm can
// be tested against boundary values and tightened per deployment.
//
// Use the provided factory functions for common scenarios:
//   - DefaultEngineConfig(): the calibrated production thresholds
//   - StrictEngineConfig(): tighter acceptance for low-tolerance review queues
type EngineConfig struct {
	// MinReferenceDigits is the minimum length of a digits-only reference
	// for it to be usable as a matching key. Shorter fragments match far
	// too often to be trusted.
	MinReferenceDigits int `json:"min_reference_digits"`

	Reference  ReferenceConfig  `json:"reference"`
	AmountDate AmountDateConfig `json:"amount_date"`
	Keyword    KeywordConfig    `json:"keyword"`
}

// ReferenceConfig controls the phase-1 reference matcher.
type ReferenceConfig struct {
	// Confidence ladder, best evidence first.
	ExactConfidence       float64 `json:"exact_confidence"`
	SuffixConfidence      float64 `json:"suffix_confidence"`
	ContainsConfidence    float64 `json:"contains_confidence"`
	DescriptionConfidence float64 `json:"description_confidence"`

	// Trailing digit-run scoring: a common trailing run of length L in
	// [MinTrailingRun, MaxTrailingRun] scores
	// TrailingBaseConfidence + TrailingRunStep*(L-MinTrailingRun).
	TrailingBaseConfidence float64 `json:"trailing_base_confidence"`
	TrailingRunStep        float64 `json:"trailing_run_step"`
	MinTrailingRun         int     `json:"min_trailing_run"`
	MaxTrailingRun         int     `json:"max_trailing_run"`

	// AmountTolerancePercent and AmountToleranceMin define the amount
	// agreement window as max(amount * percent/100, min).
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`
	AmountToleranceMin     float64 `json:"amount_tolerance_min"`

	// Additive bonuses. The full amount bonus applies within tolerance,
	// the half bonus within double the tolerance.
	AmountBonus     float64 `json:"amount_bonus"`
	AmountBonusHalf float64 `json:"amount_bonus_half"`
	DateBonus       float64 `json:"date_bonus"`
	DateBonusDays   int     `json:"date_bonus_days"`

	AcceptThreshold float64 `json:"accept_threshold"`
}

// AmountDateConfig controls the phase-2 amount/date matcher.
type AmountDateConfig struct {
	// Tolerance window: max(amount * percent/100, min).
	TolerancePercent float64 `json:"tolerance_percent"`
	ToleranceMin     float64 `json:"tolerance_min"`

	WithinToleranceConfidence float64 `json:"within_tolerance_confidence"`
	WithinDoubleConfidence    float64 `json:"within_double_confidence"`

	DateBonusNear     float64 `json:"date_bonus_near"`
	DateBonusNearDays int     `json:"date_bonus_near_days"`
	DateBonusFar      float64 `json:"date_bonus_far"`
	DateBonusFarDays  int     `json:"date_bonus_far_days"`

	AcceptThreshold float64 `json:"accept_threshold"`
}

// KeywordConfig controls the phase-3 description similarity matcher.
type KeywordConfig struct {
	// MaxKeywords caps the tokens extracted per description; MinTokenLength
	// drops trivial tokens before stop-word filtering.
	MaxKeywords    int `json:"max_keywords"`
	MinTokenLength int `json:"min_token_length"`

	// SimilarityThreshold is the minimum Jaccard similarity for a candidate
	// to be scored at all.
	SimilarityThreshold float64 `json:"similarity_threshold"`
	SimilarityWeight    float64 `json:"similarity_weight"`

	AmountBonus            float64 `json:"amount_bonus"`
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`
	AmountToleranceMin     float64 `json:"amount_tolerance_min"`

	AcceptThreshold float64 `json:"accept_threshold"`
}

// DefaultEngineConfig returns the calibrated production thresholds
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MinReferenceDigits: 4,
		Reference: ReferenceConfig{
			ExactConfidence:        0.95,
			SuffixConfidence:       0.90,
			ContainsConfidence:     0.85,
			DescriptionConfidence:  0.80,
			TrailingBaseConfidence: 0.50,
			TrailingRunStep:        0.05,
			MinTrailingRun:         4,
			MaxTrailingRun:         7,
			AmountTolerancePercent: 5.0,
			AmountToleranceMin:     5.0,
			AmountBonus:            0.10,
			AmountBonusHalf:        0.05,
			DateBonus:              0.05,
			DateBonusDays:          3,
			AcceptThreshold:        0.5,
		},
		AmountDate: AmountDateConfig{
			TolerancePercent:          5.0,
			ToleranceMin:              5.0,
			WithinToleranceConfidence: 0.9,
			WithinDoubleConfidence:    0.6,
			DateBonusNear:             0.2,
			DateBonusNearDays:         7,
			DateBonusFar:              0.1,
			DateBonusFarDays:          30,
			AcceptThreshold:           0.4,
		},
		Keyword: KeywordConfig{
			MaxKeywords:            5,
			MinTokenLength:         3,
			SimilarityThreshold:    0.5,
			SimilarityWeight:       0.6,
			AmountBonus:            0.3,
			AmountTolerancePercent: 10.0,
			AmountToleranceMin:     5.0,
			AcceptThreshold:        0.6,
		},
	}
}

// StrictEngineConfig returns a configuration for strict matching
func StrictEngineConfig() *EngineConfig {
	config := DefaultEngineConfig()
	config.Reference.AcceptThreshold = 0.8
	config.Reference.AmountTolerancePercent = 2.0
	config.Reference.AmountToleranceMin = 1.0
	config.AmountDate.TolerancePercent = 2.0
	config.AmountDate.ToleranceMin = 1.0
	config.AmountDate.AcceptThreshold = 0.6
	config.Keyword.SimilarityThreshold = 0.7
	config.Keyword.AcceptThreshold = 0.75
	return config
}

// Validate checks if the engine configuration is valid
func (ec *EngineConfig) Validate() error {
	if ec.MinReferenceDigits < 1 {
		return fmt.Errorf("minimum reference digits must be positive: %d", ec.MinReferenceDigits)
	}

	if err := validateConfidence("reference exact confidence", ec.Reference.ExactConfidence); err != nil {
		return err
	}
	if err := validateConfidence("reference accept threshold", ec.Reference.AcceptThreshold); err != nil {
		return err
	}
	if ec.Reference.MinTrailingRun < 1 || ec.Reference.MaxTrailingRun < ec.Reference.MinTrailingRun {
		return fmt.Errorf("invalid trailing run bounds: [%d, %d]",
			ec.Reference.MinTrailingRun, ec.Reference.MaxTrailingRun)
	}
	if ec.Reference.AmountTolerancePercent < 0.0 || ec.Reference.AmountTolerancePercent > 100.0 {
		return fmt.Errorf("reference amount tolerance percent must be between 0.0 and 100.0: %f",
			ec.Reference.AmountTolerancePercent)
	}

	if ec.AmountDate.TolerancePercent < 0.0 || ec.AmountDate.TolerancePercent > 100.0 {
		return fmt.Errorf("amount tolerance percent must be between 0.0 and 100.0: %f",
			ec.AmountDate.TolerancePercent)
	}
	if err := validateConfidence("amount/date accept threshold", ec.AmountDate.AcceptThreshold); err != nil {
		return err
	}
	if ec.AmountDate.DateBonusNearDays > ec.AmountDate.DateBonusFarDays {
		return fmt.Errorf("near date bonus window (%d days) cannot exceed far window (%d days)",
			ec.AmountDate.DateBonusNearDays, ec.AmountDate.DateBonusFarDays)
	}

	if ec.Keyword.MaxKeywords <= 0 {
		return fmt.Errorf("max keywords must be positive: %d", ec.Keyword.MaxKeywords)
	}
	if ec.Keyword.MinTokenLength < 1 {
		return fmt.Errorf("min token length must be positive: %d", ec.Keyword.MinTokenLength)
	}
	if err := validateConfidence("keyword similarity threshold", ec.Keyword.SimilarityThreshold); err != nil {
		return err
	}
	if err := validateConfidence("keyword accept threshold", ec.Keyword.AcceptThreshold); err != nil {
		return err
	}

	return nil
}

func validateConfidence(name string, value float64) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("%s must be between 0.0 and 1.0: %f", name, value)
	}
	return nil
}

// Clone creates a deep copy of the engine configuration
func (ec *EngineConfig) Clone() *EngineConfig {
	if ec == nil {
		return nil
	}

	clone := *ec
	return &clone
}

// amountTolerance calculates the tolerance window for a given amount:
// max(amount * percent/100, minimum).
func amountTolerance(amount decimal.Decimal, percent, minimum float64) decimal.Decimal {
	tolerance := amount.Abs().Mul(decimal.NewFromFloat(percent / 100.0))
	floor := decimal.NewFromFloat(minimum)
	if tolerance.LessThan(floor) {
		return floor
	}
	return tolerance
}

// String returns a human-readable description of the configuration
func (ec *EngineConfig) String() string {
	return fmt.Sprintf("EngineConfig{MinRefDigits: %d, RefAccept: %.2f, AmountAccept: %.2f, KeywordAccept: %.2f}",
		ec.MinReferenceDigits, ec.Reference.AcceptThreshold, ec.AmountDate.AcceptThreshold, ec.Keyword.AcceptThreshold)
}
