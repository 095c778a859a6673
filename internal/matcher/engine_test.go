package matcher

import (
	"testing"

	"payment-reconciliation-service/internal/models"
)

func TestRunReconciliationEmptyInputs(t *testing.T) {
	engine := NewMatchingEngine(nil)

	tests := []struct {
		name        string
		collections []*models.Transaction
		banks       []*models.Transaction
	}{
		{"both empty", nil, nil},
		{"no collections", nil, []*models.Transaction{bankTx("b1", "1234", -100, 1, "")}},
		{"no banks", []*models.Transaction{collectionTx("c1", "1234", 100, 1)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := engine.RunReconciliation("scope-1", tt.collections, tt.banks)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(matches) != 0 {
				t.Errorf("expected no matches, got %d", len(matches))
			}
		})
	}
}

func TestRunReconciliationReferencePhase(t *testing.T) {
	engine := NewMatchingEngine(nil)

	collections := []*models.Transaction{collectionTx("c1", "000020576", 1000.00, 1)}
	banks := []*models.Transaction{bankTx("b1", "51477192884020576", -1000.00, 2, "")}

	matches, err := engine.RunReconciliation("scope-1", collections, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	match := matches[0]
	if match.Type != models.MatchTypeReference {
		t.Errorf("match type = %s, expected reference", match.Type)
	}
	if match.Confidence < 0.80 {
		t.Errorf("confidence = %f, expected >= 0.80", match.Confidence)
	}
	if match.Status != models.MatchStatusAuto {
		t.Errorf("status = %s, expected auto", match.Status)
	}
	if match.Scope != "scope-1" {
		t.Errorf("scope = %s, expected scope-1", match.Scope)
	}
}

func TestRunReconciliationAmountPhase(t *testing.T) {
	engine := NewMatchingEngine(nil)

	collections := []*models.Transaction{collectionTx("c1", "12", 1500.00, 1)}
	banks := []*models.Transaction{bankTx("b1", "", -1498.50, 3, "")}

	matches, err := engine.RunReconciliation("scope-1", collections, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Type != models.MatchTypeAmount {
		t.Errorf("match type = %s, expected amount", matches[0].Type)
	}
	if matches[0].Confidence < 0.6 {
		t.Errorf("confidence = %f, expected >= 0.6", matches[0].Confidence)
	}
}

func TestRunReconciliationSkipsAmountPhaseForValidReference(t *testing.T) {
	// The collection record has a valid reference with no counterpart, and
	// its payment reference would falsely hit an unrelated bank line. It
	// must stay unmatched through every phase.
	collection := collectionTx("c1", "900823", 1000.00, 1)
	collection.PaymentReference = "3559"
	banks := []*models.Transaction{
		bankTx("b1", "10355942", -1000.00, 1, ""),
		bankTx("b2", "", -1000.00, 1, ""),
	}

	engine := NewMatchingEngine(nil)
	matches, err := engine.RunReconciliation("scope-1", []*models.Transaction{collection}, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d: %v", len(matches), matches[0])
	}
}

func TestRunReconciliationPhasePriority(t *testing.T) {
	// b1 has no usable reference, so both phase 1 (via description) and
	// phase 2 (equal amounts) could want it. Once phase 1 claims it, phase
	// 2 must not touch either transaction.
	withRef := collectionTx("c1", "12345678", 1000.00, 1)
	noRef := collectionTx("c2", "", 1000.00, 1)
	banks := []*models.Transaction{bankTx("b1", "", -1000.00, 1, "pago 12345678")}

	engine := NewMatchingEngine(nil)
	matches, err := engine.RunReconciliation("scope-1", []*models.Transaction{withRef, noRef}, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].CollectionTransactionID != "c1" || matches[0].Type != models.MatchTypeReference {
		t.Errorf("expected c1 reference match, got %s via %s",
			matches[0].CollectionTransactionID, matches[0].Type)
	}
}

func TestRunReconciliationKeywordPhase(t *testing.T) {
	collection := collectionTx("c1", "", 500.00, 1)
	collection.Description = "pago cuota prestamo marzo"
	banks := []*models.Transaction{bankTx("b1", "", -500.00, 2, "pago cuota prestamo marzo")}

	engine := NewMatchingEngine(nil)
	matches, err := engine.RunReconciliation("scope-1", []*models.Transaction{collection}, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Type != models.MatchTypeDescription {
		t.Errorf("match type = %s, expected description", matches[0].Type)
	}
}

func TestRunReconciliationKeywordPhaseRequiresNoReferences(t *testing.T) {
	// A usable invoice number keeps a record out of the keyword phase even
	// when the invoice finds no counterpart.
	collection := collectionTx("c1", "", 500.00, 1)
	collection.InvoiceNumber = "99887766"
	collection.Description = "pago cuota prestamo marzo"
	banks := []*models.Transaction{bankTx("b1", "", -500.00, 2, "pago cuota prestamo marzo")}

	engine := NewMatchingEngine(nil)
	matches, err := engine.RunReconciliation("scope-1", []*models.Transaction{collection}, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestRunReconciliationDeterministic(t *testing.T) {
	build := func() ([]*models.Transaction, []*models.Transaction) {
		c2 := collectionTx("c2", "12", 1500.00, 1)
		c3 := collectionTx("c3", "", 500.00, 1)
		c3.Description = "pago cuota prestamo marzo"
		collections := []*models.Transaction{
			collectionTx("c1", "900823", 1000.00, 1),
			c2,
			c3,
		}
		banks := []*models.Transaction{
			bankTx("b1", "88900823", -1000.00, 1, ""),
			bankTx("b2", "", -1499.00, 2, ""),
			bankTx("b3", "", -500.00, 2, "pago cuota prestamo marzo"),
		}
		return collections, banks
	}

	engine := NewMatchingEngine(nil)

	collections, banks := build()
	first, err := engine.RunReconciliation("scope-1", collections, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	collections, banks = build()
	second, err := engine.RunReconciliation("scope-1", collections, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("run sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.CollectionTransactionID != b.CollectionTransactionID ||
			a.BankTransactionID != b.BankTransactionID ||
			!approxEqual(a.Confidence, b.Confidence) ||
			a.Type != b.Type {
			t.Errorf("run diverged at %d: %v vs %v", i, a, b)
		}
	}
}

func TestRunReconciliationNoBankClaimedTwice(t *testing.T) {
	collections := []*models.Transaction{
		collectionTx("c1", "445566", 1000.00, 1),
		collectionTx("c2", "445566", 1000.00, 1),
	}
	banks := []*models.Transaction{bankTx("b1", "445566", -1000.00, 1, "")}

	engine := NewMatchingEngine(nil)
	matches, err := engine.RunReconciliation("scope-1", collections, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, match := range matches {
		if seen[match.BankTransactionID] {
			t.Errorf("bank %s claimed twice", match.BankTransactionID)
		}
		seen[match.BankTransactionID] = true
	}
	if len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}
}

func TestRunReconciliationUnmatchableRecordFallsThrough(t *testing.T) {
	// No usable reference, zero amount, empty description: unmatchable by
	// every phase, and silently so.
	collection := collectionTx("c1", "", 0.00, 1)
	banks := []*models.Transaction{bankTx("b1", "", -500.00, 1, "pago cuota")}

	engine := NewMatchingEngine(nil)
	matches, err := engine.RunReconciliation("scope-1", []*models.Transaction{collection}, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestRunReconciliationValidatesOutput(t *testing.T) {
	collections := []*models.Transaction{collectionTx("c1", "900823", 1000.00, 1)}
	banks := []*models.Transaction{bankTx("b1", "900823", -1000.00, 1, "")}

	engine := NewMatchingEngine(nil)
	matches, err := engine.RunReconciliation("scope-1", collections, banks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, match := range matches {
		if err := match.Validate(); err != nil {
			t.Errorf("engine produced invalid match: %v", err)
		}
	}
}
