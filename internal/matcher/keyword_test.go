package matcher

import (
	"reflect"
	"testing"

	"payment-reconciliation-service/internal/models"
)

func TestExtractKeywords(t *testing.T) {
	config := &DefaultEngineConfig().Keyword

	tests := []struct {
		name        string
		description string
		expected    []string
	}{
		{
			"stop words and short tokens removed",
			"Pago de la cuota mensual por el servicio",
			[]string{"pago", "cuota", "mensual", "servicio"},
		},
		{
			"capped at five keywords",
			"primera segunda tercera cuarta quinta sexta septima",
			[]string{"primera", "segunda", "tercera", "cuarta", "quinta"},
		},
		{
			"duplicates dropped",
			"pago pago pago cliente",
			[]string{"pago", "cliente"},
		},
		{
			"empty description",
			"",
			[]string{},
		},
		{
			"punctuation split",
			"ABONO-CTA: cliente/8842",
			[]string{"abono", "cta", "cliente", "8842"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.description, config)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ExtractKeywords(%q) = %v, expected %v", tt.description, got, tt.expected)
			}
		})
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		expected float64
	}{
		{"identical", []string{"pago", "cuota"}, []string{"pago", "cuota"}, 1.0},
		{"disjoint", []string{"pago"}, []string{"abono"}, 0.0},
		{"partial overlap", []string{"pago", "cuota", "marzo"}, []string{"pago", "cuota", "abril"}, 0.5},
		{"both empty", nil, nil, 0.0},
		{"one empty", []string{"pago"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JaccardSimilarity(tt.a, tt.b); !approxEqual(got, tt.expected) {
				t.Errorf("JaccardSimilarity = %f, expected %f", got, tt.expected)
			}
		})
	}
}

func keywordMatch(t *testing.T, collection *models.Transaction, banks ...*models.Transaction) *MatchCandidate {
	t.Helper()
	config := DefaultEngineConfig()
	km := newKeywordMatcher(config)
	return km.findMatch(collection, newBankIndex(config, banks), map[string]bool{})
}

func TestKeywordMatchHighSimilarityWithAmount(t *testing.T) {
	collection := collectionTx("c1", "", 500.00, 1)
	collection.Description = "pago cuota prestamo marzo"
	bank := bankTx("b1", "", -500.00, 2, "pago cuota prestamo marzo")

	candidate := keywordMatch(t, collection, bank)
	if candidate == nil {
		t.Fatal("expected keyword match")
	}
	if candidate.Evidence.Type != models.MatchTypeDescription {
		t.Errorf("match type = %s, expected description", candidate.Evidence.Type)
	}
	// similarity 1.0 * 0.6 + 0.3 amount bonus
	if !approxEqual(candidate.Evidence.Confidence, 0.9) {
		t.Errorf("confidence = %f, expected 0.9", candidate.Evidence.Confidence)
	}
}

func TestKeywordMatchRejectedBelowThreshold(t *testing.T) {
	// Similarity 0.6 without an amount bonus scores 0.36, under the 0.6
	// acceptance threshold.
	collection := collectionTx("c1", "", 500.00, 1)
	collection.Description = "pago cuota prestamo"
	bank := bankTx("b1", "", -900.00, 2, "pago cuota servicio")

	if candidate := keywordMatch(t, collection, bank); candidate != nil {
		t.Errorf("expected no match, got confidence %f", candidate.Evidence.Confidence)
	}
}

func TestKeywordMatchRequiresPositiveAmount(t *testing.T) {
	collection := collectionTx("c1", "", 0.00, 1)
	collection.Description = "pago cuota prestamo marzo"
	bank := bankTx("b1", "", -500.00, 2, "pago cuota prestamo marzo")

	if candidate := keywordMatch(t, collection, bank); candidate != nil {
		t.Error("zero-amount record must not keyword-match")
	}
}

func TestKeywordMatchRequiresSimilarityAboveThreshold(t *testing.T) {
	// Similarity exactly at the threshold is not enough, even when the
	// amount bonus would lift the score past acceptance.
	collection := collectionTx("c1", "", 500.00, 1)
	collection.Description = "pago cuota marzo"
	bank := bankTx("b1", "", -500.00, 2, "pago cuota abril")

	if candidate := keywordMatch(t, collection, bank); candidate != nil {
		t.Errorf("similarity at threshold matched with confidence %f", candidate.Evidence.Confidence)
	}
}
