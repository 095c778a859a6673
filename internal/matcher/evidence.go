package matcher

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"payment-reconciliation-service/internal/models"
)

// MatchEvidence captures which matcher fired for a candidate pair, at what
// confidence, and with what criteria breakdown. Only evidence attached to a
// winning candidate survives into a persisted match.
type MatchEvidence struct {
	Type       models.MatchType
	Confidence float64
	Criteria   models.MatchCriteria

	// AmountDifference is relative to the collection-side amount.
	AmountDifference float64
	// DateDifference is in days.
	DateDifference float64
}

// MatchCandidate pairs one collection transaction with one bank transaction
// plus the evidence that paired them. Candidates are transient; the
// deduplicator decides which ones become matches.
type MatchCandidate struct {
	Collection *models.Transaction
	Bank       *models.Transaction
	Evidence   MatchEvidence
}

var two = decimal.NewFromInt(2)

// relativeAmountDifference returns |a - b| / a as a float, where a is the
// collection-side magnitude. Returns 0 when the collection amount is zero.
func relativeAmountDifference(collectionAmount, bankAmount decimal.Decimal) float64 {
	if collectionAmount.IsZero() {
		return 0.0
	}
	diff := collectionAmount.Sub(bankAmount).Abs()
	rel, _ := diff.Div(collectionAmount.Abs()).Float64()
	return rel
}

// dateDifferenceDays returns the absolute difference between two dates in
// fractional days.
func dateDifferenceDays(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours() / 24.0)
}

// toMatch converts a winning candidate into a persistable match record.
func (c *MatchCandidate) toMatch(scope string, matchedAt time.Time) *models.Match {
	return &models.Match{
		Scope:                   scope,
		CollectionTransactionID: c.Collection.ID,
		BankTransactionID:       c.Bank.ID,
		Confidence:              c.Evidence.Confidence,
		Type:                    c.Evidence.Type,
		Criteria:                c.Evidence.Criteria,
		AmountDifference:        c.Evidence.AmountDifference,
		DateDifference:          c.Evidence.DateDifference,
		Status:                  models.MatchStatusAuto,
		MatchedAt:               matchedAt,
	}
}
