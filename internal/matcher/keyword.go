package matcher

import (
	"strings"

	"payment-reconciliation-service/internal/models"
)

// stopWords lists the Spanish function words stripped from descriptions
// before similarity scoring. The collection feed's free text is Spanish.
var stopWords = map[string]bool{
	"el": true, "la": true, "de": true, "del": true, "en": true,
	"con": true, "por": true, "para": true, "a": true, "al": true,
	"y": true, "o": true, "un": true, "una": true,
}

// ExtractKeywords tokenizes a description into at most MaxKeywords cleaned
// tokens: lowercased, punctuation split, stop-words and short tokens removed,
// duplicates dropped. Token order follows first appearance so extraction is
// deterministic.
func ExtractKeywords(description string, config *KeywordConfig) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !isWordRune(r)
	})

	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, config.MaxKeywords)
	for _, token := range fields {
		if len(token) < config.MinTokenLength || stopWords[token] || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
		if len(keywords) == config.MaxKeywords {
			break
		}
	}
	return keywords
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' ||
		r == 'á' || r == 'é' || r == 'í' || r == 'ó' || r == 'ú' || r == 'ñ' || r == 'ü'
}

// JaccardSimilarity returns |A∩B| / |A∪B| for two token sets. Two empty sets
// have similarity zero, not one; an empty description supports no match.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(a))
	for _, token := range a {
		setA[token] = true
	}

	intersection := 0
	setB := make(map[string]bool, len(b))
	for _, token := range b {
		if setB[token] {
			continue
		}
		setB[token] = true
		if setA[token] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// keywordMatcher implements the phase-3 last-resort strategy: description
// token-set similarity for collection records with no usable reference of
// any kind and a positive amount.
type keywordMatcher struct {
	config *EngineConfig
}

func newKeywordMatcher(config *EngineConfig) *keywordMatcher {
	return &keywordMatcher{config: config}
}

// findMatch returns the first qualifying candidate, or nil. Candidates whose
// Jaccard similarity does not exceed the configured threshold are never
// scored.
func (km *keywordMatcher) findMatch(collection *models.Transaction, index *bankIndex, usedBank map[string]bool) *MatchCandidate {
	kw := &km.config.Keyword

	if !collection.BestAmount().IsPositive() {
		return nil
	}

	collectionKeys := ExtractKeywords(collection.Description, kw)
	if len(collectionKeys) == 0 {
		return nil
	}

	for _, entry := range index.entries {
		if usedBank[entry.tx.ID] {
			continue
		}

		similarity := JaccardSimilarity(collectionKeys, entry.keywordSet(kw))
		if similarity <= kw.SimilarityThreshold {
			continue
		}

		confidence := similarity * kw.SimilarityWeight

		amount := collection.BestAmount()
		tolerance := amountTolerance(amount, kw.AmountTolerancePercent, kw.AmountToleranceMin)
		diff := amount.Sub(entry.tx.AbsoluteAmount()).Abs()
		amountMatch := diff.LessThanOrEqual(tolerance)
		if amountMatch {
			confidence += kw.AmountBonus
		}

		if confidence < kw.AcceptThreshold {
			continue
		}
		if confidence > 1.0 {
			confidence = 1.0
		}

		dateDiff := dateDifferenceDays(collection.BestDate(), entry.tx.Date)
		return &MatchCandidate{
			Collection: collection,
			Bank:       entry.tx,
			Evidence: MatchEvidence{
				Type:       models.MatchTypeDescription,
				Confidence: confidence,
				Criteria: models.MatchCriteria{
					ReferenceKind: models.ReferenceKindNone,
					MatchLocation: models.MatchLocationDescription,
					AmountMatch:   amountMatch,
					DateMatch:     false,
				},
				AmountDifference: relativeAmountDifference(amount, entry.tx.AbsoluteAmount()),
				DateDifference:   dateDiff,
			},
		}
	}

	return nil
}
