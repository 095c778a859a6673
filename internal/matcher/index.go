package matcher

import "payment-reconciliation-service/internal/models"

// bankEntry caches the derived projections of one bank transaction so the
// phase-1 scan does not re-normalize the same strings for every collection
// record it considers.
type bankEntry struct {
	tx *models.Transaction

	// normalizedRef is the digits-only projection of the reference field;
	// usableRef is true when it meets the minimum digit length.
	normalizedRef string
	usableRef     bool

	// descriptionDigits is the digits-only projection of the description.
	descriptionDigits string

	// keywords is the cleaned token set of the description, extracted
	// lazily by phase 3 because most entries never reach it.
	keywords []string
	haveKeys bool
}

// bankIndex holds the precomputed candidate pool for one engine run.
// Entries preserve input order so scans stay deterministic.
type bankIndex struct {
	entries []*bankEntry
}

// newBankIndex builds the candidate index for a bank transaction pool.
func newBankIndex(config *EngineConfig, banks []*models.Transaction) *bankIndex {
	index := &bankIndex{entries: make([]*bankEntry, 0, len(banks))}
	for _, tx := range banks {
		normalized := NormalizeReference(tx.Reference)
		index.entries = append(index.entries, &bankEntry{
			tx:                tx,
			normalizedRef:     normalized,
			usableRef:         config.isUsableReference(normalized),
			descriptionDigits: NormalizeReference(tx.Description),
		})
	}
	return index
}

// keywordSet returns the entry's cleaned description tokens, extracting them
// on first use.
func (e *bankEntry) keywordSet(config *KeywordConfig) []string {
	if !e.haveKeys {
		e.keywords = ExtractKeywords(e.tx.Description, config)
		e.haveKeys = true
	}
	return e.keywords
}
