package matcher

import (
	"time"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/pkg/logger"
)

// MatchingEngine runs the three matching phases for one reconciliation scope
// and returns the deduplicated match set. The engine holds no per-run state;
// a single instance is safe to reuse across scopes and goroutines.
type MatchingEngine struct {
	config *EngineConfig
	log    logger.Logger

	reference  *referenceMatcher
	amountDate *amountDateMatcher
	keyword    *keywordMatcher
}

// NewMatchingEngine creates an engine with the given configuration. A nil
// configuration selects the defaults.
func NewMatchingEngine(config *EngineConfig) *MatchingEngine {
	if config == nil {
		config = DefaultEngineConfig()
	}

	return &MatchingEngine{
		config:     config,
		log:        logger.GetGlobalLogger().WithComponent("matcher"),
		reference:  newReferenceMatcher(config),
		amountDate: newAmountDateMatcher(config),
		keyword:    newKeywordMatcher(config),
	}
}

// Config returns the engine's configuration.
func (e *MatchingEngine) Config() *EngineConfig {
	return e.config
}

// RunReconciliation matches the collection records of one scope against its
// bank records. Phases run in strict priority order over shrinking pools: a
// transaction claimed by an earlier phase is invisible to later ones, on
// either side. An empty input on either side is not an error; it yields an
// empty result.
//
// The output is deterministic for identical inputs: scans walk the pools in
// input order and the final deduplication breaks ties on transaction IDs.
func (e *MatchingEngine) RunReconciliation(scope string, collections, banks []*models.Transaction) ([]*models.Match, error) {
	log := e.log.WithScope(scope)

	if len(collections) == 0 || len(banks) == 0 {
		log.WithFields(logger.Fields{
			"collections": len(collections),
			"banks":       len(banks),
		}).Info("nothing to reconcile")
		return []*models.Match{}, nil
	}

	index := newBankIndex(e.config, banks)
	usedCollection := make(map[string]bool)
	usedBank := make(map[string]bool)

	var candidates []*MatchCandidate
	claim := func(c *MatchCandidate) {
		usedCollection[c.Collection.ID] = true
		usedBank[c.Bank.ID] = true
		candidates = append(candidates, c)
	}

	// Phase 1: reference containment.
	referenceMatches := 0
	for _, collection := range collections {
		if candidate := e.reference.findMatch(collection, index, usedBank); candidate != nil {
			claim(candidate)
			referenceMatches++
		}
	}
	log.WithField("matches", referenceMatches).Debug("reference phase complete")

	// Phase 2: amount and date proximity, only for records the reference
	// phase could not key on at all.
	amountMatches := 0
	for _, collection := range collections {
		if usedCollection[collection.ID] {
			continue
		}
		if e.config.isUsableReference(NormalizeReference(collection.Reference)) {
			continue
		}
		if candidate := e.amountDate.findMatch(collection, index, usedBank); candidate != nil {
			claim(candidate)
			amountMatches++
		}
	}
	log.WithField("matches", amountMatches).Debug("amount/date phase complete")

	// Phase 3: description similarity for records with no usable reference
	// of any kind.
	keywordMatches := 0
	for _, collection := range collections {
		if usedCollection[collection.ID] || e.hasAnyUsableReference(collection) {
			continue
		}
		if candidate := e.keyword.findMatch(collection, index, usedBank); candidate != nil {
			claim(candidate)
			keywordMatches++
		}
	}
	log.WithField("matches", keywordMatches).Debug("keyword phase complete")

	winners := Deduplicate(candidates)

	matchedAt := time.Now().UTC()
	matches := make([]*models.Match, 0, len(winners))
	for _, winner := range winners {
		matches = append(matches, winner.toMatch(scope, matchedAt))
	}

	log.WithFields(logger.Fields{
		"collections": len(collections),
		"banks":       len(banks),
		"matches":     len(matches),
	}).Info("reconciliation complete")

	return matches, nil
}

// hasAnyUsableReference reports whether any of the record's identifiers is a
// usable matching key.
func (e *MatchingEngine) hasAnyUsableReference(tx *models.Transaction) bool {
	return e.config.isUsableReference(NormalizeReference(tx.Reference)) ||
		e.config.isUsableReference(NormalizeReference(tx.PaymentReference)) ||
		e.config.isUsableReference(NormalizeReference(tx.InvoiceNumber))
}
