// Package models defines the core domain types for payment reconciliation:
// transactions from the two feeds being reconciled, the matches the engine
// produces between them, and the review feedback recorded against matches.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which feed a transaction belongs to.
type Side string

const (
	// SideCollection marks payment records from the field-collection system.
	SideCollection Side = "collection"
	// SideBank marks bank statement lines.
	SideBank Side = "bank"
)

// String returns the string representation of Side
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is valid
func (s Side) IsValid() bool {
	return s == SideCollection || s == SideBank
}

// Transaction is an immutable input record for the matching engine.
//
// Collection records carry the optional PaymentReference, InvoiceNumber,
// PaidAmount and PaymentDate fields; bank records carry a signed Amount
// (negative for debits) and leave those fields empty. Every transaction
// belongs to exactly one reconciliation scope and one side.
type Transaction struct {
	ID    string `json:"id"`
	Scope string `json:"scope"`
	Side  Side   `json:"side"`

	Reference        string `json:"reference,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	InvoiceNumber    string `json:"invoice_number,omitempty"`

	Amount     decimal.Decimal  `json:"amount"`
	PaidAmount *decimal.Decimal `json:"paid_amount,omitempty"`

	Date        time.Time  `json:"date"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`

	Description string `json:"description"`
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if strings.TrimSpace(t.Scope) == "" {
		return fmt.Errorf("transaction scope cannot be empty")
	}

	if !t.Side.IsValid() {
		return fmt.Errorf("invalid transaction side: %q", t.Side)
	}

	if t.Side == SideCollection && t.Amount.IsNegative() {
		return fmt.Errorf("collection amount cannot be negative: %s", t.Amount)
	}

	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	return nil
}

// BestAmount returns the amount the engine should compare for a collection
// record: the paid amount when recorded, otherwise the nominal amount.
func (t *Transaction) BestAmount() decimal.Decimal {
	if t.PaidAmount != nil {
		return *t.PaidAmount
	}
	return t.Amount
}

// BestDate returns the payment date when recorded, otherwise the record date.
func (t *Transaction) BestDate() time.Time {
	if t.PaymentDate != nil && !t.PaymentDate.IsZero() {
		return *t.PaymentDate
	}
	return t.Date
}

// AbsoluteAmount returns the magnitude of the transaction amount. Bank
// statement lines are signed; the engine always compares magnitudes.
func (t *Transaction) AbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Side: %s, Ref: %q, Amount: %s, Date: %s}",
		t.ID, t.Side, t.Reference, t.Amount.String(), t.Date.Format("2006-01-02"))
}

// MatchType classifies which strategy produced a match.
type MatchType string

const (
	// MatchTypeReference marks matches established through reference containment.
	MatchTypeReference MatchType = "reference"
	// MatchTypeAmount marks matches established through amount and date proximity.
	MatchTypeAmount MatchType = "amount"
	// MatchTypeDescription marks matches established through description similarity.
	MatchTypeDescription MatchType = "description"
	// MatchTypeManual marks matches created or confirmed by a reviewer.
	MatchTypeManual MatchType = "manual"
)

// String returns the string representation of MatchType
func (mt MatchType) String() string {
	return string(mt)
}

// IsValid checks if the match type is valid
func (mt MatchType) IsValid() bool {
	switch mt {
	case MatchTypeReference, MatchTypeAmount, MatchTypeDescription, MatchTypeManual:
		return true
	default:
		return false
	}
}

// MatchStatus tracks the review lifecycle of a match.
type MatchStatus string

const (
	// MatchStatusAuto is the initial status of every engine-produced match.
	MatchStatusAuto MatchStatus = "auto"
	// MatchStatusManual marks a match confirmed by a reviewer.
	MatchStatusManual MatchStatus = "manual"
	// MatchStatusRejected marks a match rejected by a reviewer.
	MatchStatusRejected MatchStatus = "rejected"
)

// String returns the string representation of MatchStatus
func (ms MatchStatus) String() string {
	return string(ms)
}

// IsValid checks if the match status is valid
func (ms MatchStatus) IsValid() bool {
	switch ms {
	case MatchStatusAuto, MatchStatusManual, MatchStatusRejected:
		return true
	default:
		return false
	}
}

// ReferenceKind identifies which collection-side reference produced a
// reference match.
type ReferenceKind string

const (
	ReferenceKindNone    ReferenceKind = "none"
	ReferenceKindMain    ReferenceKind = "main"
	ReferenceKindPayment ReferenceKind = "payment"
	ReferenceKindInvoice ReferenceKind = "invoice"
)

// String returns the string representation of ReferenceKind
func (rk ReferenceKind) String() string {
	return string(rk)
}

// MatchLocation identifies which bank-side field the reference was found in.
type MatchLocation string

const (
	MatchLocationNone        MatchLocation = "none"
	MatchLocationReference   MatchLocation = "reference"
	MatchLocationDescription MatchLocation = "description"
)

// String returns the string representation of MatchLocation
func (ml MatchLocation) String() string {
	return string(ml)
}

// MatchCriteria is the structured evidence recorded with every match.
// The fields are fixed so downstream consumers get compile-time guarantees
// about what the engine recorded.
type MatchCriteria struct {
	ReferenceKind ReferenceKind `json:"reference_kind"`
	MatchLocation MatchLocation `json:"match_location"`
	AmountMatch   bool          `json:"amount_match"`
	DateMatch     bool          `json:"date_match"`
}

// Match is a persisted correspondence between one collection transaction and
// one bank transaction within a scope.
//
// Within a scope a bank transaction ID appears in at most one non-rejected
// match, and a single engine run claims each collection transaction ID at
// most once. Matches are superseded wholesale whenever reconciliation is
// re-run for the scope; only the review workflow mutates Status afterwards.
type Match struct {
	ID    string `json:"id"`
	Scope string `json:"scope"`

	CollectionTransactionID string `json:"collection_transaction_id"`
	BankTransactionID       string `json:"bank_transaction_id"`

	Confidence float64       `json:"confidence"`
	Type       MatchType     `json:"match_type"`
	Criteria   MatchCriteria `json:"criteria"`

	// AmountDifference is relative to the collection amount, dimensionless.
	AmountDifference float64 `json:"amount_difference"`
	// DateDifference is measured in days.
	DateDifference float64 `json:"date_difference"`

	Status    MatchStatus `json:"status"`
	MatchedAt time.Time   `json:"matched_at"`
}

// Validate performs basic validation on the Match
func (m *Match) Validate() error {
	if strings.TrimSpace(m.Scope) == "" {
		return fmt.Errorf("match scope cannot be empty")
	}

	if m.CollectionTransactionID == "" || m.BankTransactionID == "" {
		return fmt.Errorf("match must reference both transactions")
	}

	if m.Confidence < 0.0 || m.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0: %f", m.Confidence)
	}

	if !m.Type.IsValid() {
		return fmt.Errorf("invalid match type: %q", m.Type)
	}

	if !m.Status.IsValid() {
		return fmt.Errorf("invalid match status: %q", m.Status)
	}

	return nil
}

// String returns a string representation of the Match
func (m *Match) String() string {
	return fmt.Sprintf("Match{Collection: %s, Bank: %s, Type: %s, Confidence: %.2f}",
		m.CollectionTransactionID, m.BankTransactionID, m.Type, m.Confidence)
}

// FeedbackAction is a reviewer's verdict on a match.
type FeedbackAction string

const (
	FeedbackConfirm FeedbackAction = "confirm"
	FeedbackReject  FeedbackAction = "reject"
)

// IsValid checks if the feedback action is valid
func (fa FeedbackAction) IsValid() bool {
	return fa == FeedbackConfirm || fa == FeedbackReject
}

// Feedback records a reviewer's verdict on a match, with a snapshot of the
// match as it stood when judged. Feedback is recorded separately and never
// fed back into the matching algorithm.
type Feedback struct {
	ID          string         `json:"id"`
	Scope       string         `json:"scope"`
	MatchID     string         `json:"match_id"`
	Action      FeedbackAction `json:"action"`
	Explanation string         `json:"explanation,omitempty"`

	PreviousConfidence float64   `json:"previous_confidence"`
	PreviousType       MatchType `json:"previous_type"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// Validate performs basic validation on the Feedback
func (f *Feedback) Validate() error {
	if strings.TrimSpace(f.Scope) == "" {
		return fmt.Errorf("feedback scope cannot be empty")
	}

	if f.MatchID == "" {
		return fmt.Errorf("feedback must reference a match")
	}

	if !f.Action.IsValid() {
		return fmt.Errorf("invalid feedback action: %q", f.Action)
	}

	return nil
}
