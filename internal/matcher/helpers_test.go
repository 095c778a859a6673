package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"payment-reconciliation-service/internal/models"
)

// testDate builds a date in March 2024; days past 31 roll into April.
func testDate(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func collectionTx(id, reference string, amount float64, day int) *models.Transaction {
	return &models.Transaction{
		ID:        id,
		Scope:     "scope-1",
		Side:      models.SideCollection,
		Reference: reference,
		Amount:    decimal.NewFromFloat(amount),
		Date:      testDate(day),
	}
}

func bankTx(id, reference string, amount float64, day int, description string) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		Scope:       "scope-1",
		Side:        models.SideBank,
		Reference:   reference,
		Amount:      decimal.NewFromFloat(amount),
		Date:        testDate(day),
		Description: description,
	}
}

func findMatchFor(matches []*models.Match, collectionID string) *models.Match {
	for _, m := range matches {
		if m.CollectionTransactionID == collectionID {
			return m
		}
	}
	return nil
}
