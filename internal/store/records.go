// Package store persists transactions, matches, and review feedback in a
// relational database through gorm. Matches for a scope are always replaced
// wholesale inside one database transaction, so a failed run never leaves a
// partially written match set.
package store

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"payment-reconciliation-service/internal/models"
)

type transactionRecord struct {
	ID               string `gorm:"primaryKey"`
	Scope            string `gorm:"index:idx_transactions_scope_side"`
	Side             string `gorm:"index:idx_transactions_scope_side"`
	Reference        string
	PaymentReference string
	InvoiceNumber    string
	Amount           decimal.Decimal  `gorm:"type:numeric(18,2)"`
	PaidAmount       *decimal.Decimal `gorm:"type:numeric(18,2)"`
	Date             time.Time
	PaymentDate      *time.Time
	Description      string
	CreatedAt        time.Time
}

func (transactionRecord) TableName() string { return "transactions" }

type matchRecord struct {
	ID                      string `gorm:"primaryKey"`
	Scope                   string `gorm:"index"`
	CollectionTransactionID string `gorm:"uniqueIndex:idx_matches_pair"`
	BankTransactionID       string `gorm:"uniqueIndex:idx_matches_pair"`
	Confidence              float64
	MatchType               string
	Criteria                datatypes.JSON
	AmountDifference        float64
	DateDifference          float64
	Status                  string
	MatchedAt               time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (matchRecord) TableName() string { return "matches" }

type feedbackRecord struct {
	ID                 string `gorm:"primaryKey"`
	Scope              string `gorm:"index"`
	MatchID            string `gorm:"index"`
	Action             string
	Explanation        string
	PreviousConfidence float64
	PreviousType       string
	SubmittedAt        time.Time
}

func (feedbackRecord) TableName() string { return "feedback" }

func toTransactionRecord(tx *models.Transaction) *transactionRecord {
	return &transactionRecord{
		ID:               tx.ID,
		Scope:            tx.Scope,
		Side:             tx.Side.String(),
		Reference:        tx.Reference,
		PaymentReference: tx.PaymentReference,
		InvoiceNumber:    tx.InvoiceNumber,
		Amount:           tx.Amount,
		PaidAmount:       tx.PaidAmount,
		Date:             tx.Date,
		PaymentDate:      tx.PaymentDate,
		Description:      tx.Description,
	}
}

func (r *transactionRecord) toModel() *models.Transaction {
	return &models.Transaction{
		ID:               r.ID,
		Scope:            r.Scope,
		Side:             models.Side(r.Side),
		Reference:        r.Reference,
		PaymentReference: r.PaymentReference,
		InvoiceNumber:    r.InvoiceNumber,
		Amount:           r.Amount,
		PaidAmount:       r.PaidAmount,
		Date:             r.Date,
		PaymentDate:      r.PaymentDate,
		Description:      r.Description,
	}
}

func toMatchRecord(m *models.Match) (*matchRecord, error) {
	criteria, err := json.Marshal(m.Criteria)
	if err != nil {
		return nil, err
	}

	return &matchRecord{
		ID:                      m.ID,
		Scope:                   m.Scope,
		CollectionTransactionID: m.CollectionTransactionID,
		BankTransactionID:       m.BankTransactionID,
		Confidence:              m.Confidence,
		MatchType:               m.Type.String(),
		Criteria:                datatypes.JSON(criteria),
		AmountDifference:        m.AmountDifference,
		DateDifference:          m.DateDifference,
		Status:                  m.Status.String(),
		MatchedAt:               m.MatchedAt,
	}, nil
}

func (r *matchRecord) toModel() (*models.Match, error) {
	var criteria models.MatchCriteria
	if len(r.Criteria) > 0 {
		if err := json.Unmarshal(r.Criteria, &criteria); err != nil {
			return nil, err
		}
	}

	return &models.Match{
		ID:                      r.ID,
		Scope:                   r.Scope,
		CollectionTransactionID: r.CollectionTransactionID,
		BankTransactionID:       r.BankTransactionID,
		Confidence:              r.Confidence,
		Type:                    models.MatchType(r.MatchType),
		Criteria:                criteria,
		AmountDifference:        r.AmountDifference,
		DateDifference:          r.DateDifference,
		Status:                  models.MatchStatus(r.Status),
		MatchedAt:               r.MatchedAt,
	}, nil
}

func toFeedbackRecord(f *models.Feedback) *feedbackRecord {
	return &feedbackRecord{
		ID:                 f.ID,
		Scope:              f.Scope,
		MatchID:            f.MatchID,
		Action:             string(f.Action),
		Explanation:        f.Explanation,
		PreviousConfidence: f.PreviousConfidence,
		PreviousType:       f.PreviousType.String(),
		SubmittedAt:        f.SubmittedAt,
	}
}
