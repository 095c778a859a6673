package matcher

import (
	"github.com/shopspring/decimal"

	"payment-reconciliation-service/internal/models"
)

// amountDateMatcher implements the phase-2 strategy: pair records by
// monetary magnitude and calendar proximity.
//
// It only runs for collection records whose main reference is unusable and
// only considers bank records without a usable reference. A record with a
// valid reference is resolved by reference matching or not at all; letting
// amounts override that would undercut the reference phase as the single
// source of truth.
type amountDateMatcher struct {
	config *EngineConfig
}

func newAmountDateMatcher(config *EngineConfig) *amountDateMatcher {
	return &amountDateMatcher{config: config}
}

// findMatch picks the candidate with the smallest absolute amount
// difference among bank entries within double the tolerance window, then
// scores it. Returns nil when no candidate is close enough or the best one
// misses the acceptance threshold.
func (am *amountDateMatcher) findMatch(collection *models.Transaction, index *bankIndex, usedBank map[string]bool) *MatchCandidate {
	ad := &am.config.AmountDate

	amount := collection.BestAmount()
	tolerance := amountTolerance(amount, ad.TolerancePercent, ad.ToleranceMin)
	doubleTolerance := tolerance.Mul(two)

	var best *bankEntry
	var bestDiff decimal.Decimal

	for _, entry := range index.entries {
		if usedBank[entry.tx.ID] || entry.usableRef {
			continue
		}

		diff := amount.Sub(entry.tx.AbsoluteAmount()).Abs()
		if diff.GreaterThan(doubleTolerance) {
			continue
		}
		if best == nil || diff.LessThan(bestDiff) {
			best = entry
			bestDiff = diff
		}
	}

	if best == nil {
		return nil
	}

	amountMatch := bestDiff.LessThanOrEqual(tolerance)
	confidence := ad.WithinDoubleConfidence
	if amountMatch {
		confidence = ad.WithinToleranceConfidence
	}

	dateDiff := dateDifferenceDays(collection.BestDate(), best.tx.Date)
	dateMatch := false
	switch {
	case dateDiff <= float64(ad.DateBonusNearDays):
		confidence += ad.DateBonusNear
		dateMatch = true
	case dateDiff <= float64(ad.DateBonusFarDays):
		confidence += ad.DateBonusFar
		dateMatch = true
	}

	if confidence < ad.AcceptThreshold {
		return nil
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return &MatchCandidate{
		Collection: collection,
		Bank:       best.tx,
		Evidence: MatchEvidence{
			Type:       models.MatchTypeAmount,
			Confidence: confidence,
			Criteria: models.MatchCriteria{
				ReferenceKind: models.ReferenceKindNone,
				MatchLocation: models.MatchLocationNone,
				AmountMatch:   amountMatch,
				DateMatch:     dateMatch,
			},
			AmountDifference: relativeAmountDifference(amount, best.tx.AbsoluteAmount()),
			DateDifference:   dateDiff,
		},
	}
}
