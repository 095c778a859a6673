package matcher

import (
	"strings"

	"payment-reconciliation-service/internal/models"
)

// referenceMatcher implements the phase-1 strategy: pair a collection record
// with a bank record by locating one of the collection's identifiers inside
// the bank record's reference or description.
//
// Identifiers are tried in strict precedence order: main reference, then
// payment reference, then invoice number. Once the main reference is valid,
// the later identifiers are never consulted for that record. A valid main
// reference that finds no candidate means "no reference match," not "try
// another identifier"; falling through would reintroduce the false positives
// the precedence order exists to prevent.
type referenceMatcher struct {
	config *EngineConfig
}

func newReferenceMatcher(config *EngineConfig) *referenceMatcher {
	return &referenceMatcher{config: config}
}

// findMatch returns the first qualifying candidate for a collection record,
// or nil when no bank entry qualifies. The scan commits on the first entry
// whose total confidence clears the acceptance threshold.
func (rm *referenceMatcher) findMatch(collection *models.Transaction, index *bankIndex, usedBank map[string]bool) *MatchCandidate {
	mainRef := NormalizeReference(collection.Reference)
	if rm.config.isUsableReference(mainRef) {
		return rm.scan(collection, index, usedBank, mainRef, models.ReferenceKindMain, true)
	}

	paymentRef := NormalizeReference(collection.PaymentReference)
	if rm.config.isUsableReference(paymentRef) {
		// Payment references are checked against the bank reference field
		// only; numbers embedded in free text are too noisy for this key.
		return rm.scan(collection, index, usedBank, paymentRef, models.ReferenceKindPayment, false)
	}

	invoiceRef := NormalizeReference(collection.InvoiceNumber)
	if rm.config.isUsableReference(invoiceRef) {
		return rm.scan(collection, index, usedBank, invoiceRef, models.ReferenceKindInvoice, true)
	}

	return nil
}

// scan walks the bank pool in input order looking for reference evidence.
// searchDescription extends the search into the description digit stream,
// which is allowed for main references and invoice numbers but not payment
// references.
func (rm *referenceMatcher) scan(collection *models.Transaction, index *bankIndex, usedBank map[string]bool,
	reference string, kind models.ReferenceKind, searchDescription bool) *MatchCandidate {

	variants := rm.referenceVariants(reference)

	for _, entry := range index.entries {
		if usedBank[entry.tx.ID] {
			continue
		}

		base, location := rm.evaluate(entry, variants, kind, searchDescription)
		if location == models.MatchLocationNone {
			continue
		}

		confidence := base
		amountMatch, amountClose := rm.amountAgreement(collection, entry.tx)
		if amountMatch {
			confidence += rm.config.Reference.AmountBonus
		} else if amountClose {
			confidence += rm.config.Reference.AmountBonusHalf
		}

		dateDiff := dateDifferenceDays(collection.BestDate(), entry.tx.Date)
		dateMatch := dateDiff <= float64(rm.config.Reference.DateBonusDays)
		if dateMatch {
			confidence += rm.config.Reference.DateBonus
		}

		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence < rm.config.Reference.AcceptThreshold {
			continue
		}

		return &MatchCandidate{
			Collection: collection,
			Bank:       entry.tx,
			Evidence: MatchEvidence{
				Type:       models.MatchTypeReference,
				Confidence: confidence,
				Criteria: models.MatchCriteria{
					ReferenceKind: kind,
					MatchLocation: location,
					AmountMatch:   amountMatch,
					DateMatch:     dateMatch,
				},
				AmountDifference: relativeAmountDifference(collection.BestAmount(), entry.tx.AbsoluteAmount()),
				DateDifference:   dateDiff,
			},
		}
	}

	return nil
}

// referenceVariants returns the normalized reference plus its
// leading-zero-stripped form when stripping changes the string and leaves
// enough digits to stay usable.
func (rm *referenceMatcher) referenceVariants(reference string) []string {
	variants := []string{reference}
	stripped := StripLeadingZeros(reference)
	if stripped != reference && rm.config.isUsableReference(stripped) {
		variants = append(variants, stripped)
	}
	return variants
}

// evaluate scores one bank entry against the reference variants and reports
// where the evidence was found. The strongest variant wins.
func (rm *referenceMatcher) evaluate(entry *bankEntry, variants []string,
	kind models.ReferenceKind, searchDescription bool) (float64, models.MatchLocation) {

	best := 0.0
	location := models.MatchLocationNone

	for _, variant := range variants {
		if entry.normalizedRef != "" {
			if confidence, ok := rm.scoreAgainstReference(variant, entry.normalizedRef); ok && confidence > best {
				best = confidence
				location = models.MatchLocationReference
			}
		}

		if !searchDescription || entry.descriptionDigits == "" {
			continue
		}

		if confidence, ok := rm.scoreAgainstDescription(variant, entry, kind); ok && confidence > best {
			best = confidence
			location = models.MatchLocationDescription
		}
	}

	return best, location
}

// scoreAgainstReference applies the containment ladder between two
// normalized references.
func (rm *referenceMatcher) scoreAgainstReference(reference, bankRef string) (float64, bool) {
	ref := &rm.config.Reference

	switch {
	case reference == bankRef:
		return ref.ExactConfidence, true
	case strings.HasSuffix(bankRef, reference):
		return ref.SuffixConfidence, true
	case strings.Contains(bankRef, reference):
		return ref.ContainsConfidence, true
	}

	if run := commonTrailingRun(reference, bankRef); run >= ref.MinTrailingRun {
		return rm.trailingRunConfidence(run), true
	}

	return 0.0, false
}

// scoreAgainstDescription searches the description digit stream. Full
// containment scores the description-ladder confidence; invoice numbers
// additionally try their trailing five- and four-digit suffixes, the
// four-digit case under a context guard.
func (rm *referenceMatcher) scoreAgainstDescription(reference string, entry *bankEntry, kind models.ReferenceKind) (float64, bool) {
	ref := &rm.config.Reference

	if strings.Contains(entry.descriptionDigits, reference) {
		return ref.DescriptionConfidence, true
	}

	if kind != models.ReferenceKindInvoice {
		return 0.0, false
	}

	// Longer suffix first: a five-digit hit is stronger evidence and needs
	// no guard.
	for _, run := range []int{5, 4} {
		if len(reference) <= run {
			continue
		}
		suffix := reference[len(reference)-run:]
		idx := strings.Index(entry.descriptionDigits, suffix)
		if idx < 0 {
			continue
		}
		if run == 4 && rm.embeddedInAmount(entry, suffix, idx) {
			continue
		}
		return rm.trailingRunConfidence(run), true
	}

	return 0.0, false
}

// embeddedInAmount reports whether a short suffix hit sits between other
// digits in the middle of the description's digit stream without standing
// alone as a word in the raw text. Such hits are almost always fragments of
// an unrelated amount.
func (rm *referenceMatcher) embeddedInAmount(entry *bankEntry, suffix string, idx int) bool {
	atStart := idx == 0
	atEnd := idx+len(suffix) == len(entry.descriptionDigits)
	if atStart || atEnd {
		return false
	}
	return !wordBounded(entry.tx.Description, suffix)
}

// wordBounded reports whether the digit fragment appears in the raw text
// with non-digit characters (or string edges) on both sides.
func wordBounded(text, fragment string) bool {
	for from := 0; ; {
		idx := strings.Index(text[from:], fragment)
		if idx < 0 {
			return false
		}
		idx += from

		leftOK := idx == 0 || !isDigit(text[idx-1])
		rightOK := idx+len(fragment) == len(text) || !isDigit(text[idx+len(fragment)])
		if leftOK && rightOK {
			return true
		}

		from = idx + 1
		if from >= len(text) {
			return false
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// trailingRunConfidence maps a common trailing digit run length onto the
// low end of the confidence ladder, capped at the configured maximum run.
func (rm *referenceMatcher) trailingRunConfidence(run int) float64 {
	ref := &rm.config.Reference
	if run > ref.MaxTrailingRun {
		run = ref.MaxTrailingRun
	}
	return ref.TrailingBaseConfidence + ref.TrailingRunStep*float64(run-ref.MinTrailingRun)
}

// amountAgreement reports whether the pair's amounts agree within tolerance,
// or failing that within double the tolerance.
func (rm *referenceMatcher) amountAgreement(collection, bank *models.Transaction) (withinTolerance, withinDouble bool) {
	ref := &rm.config.Reference
	amount := collection.BestAmount()
	tolerance := amountTolerance(amount, ref.AmountTolerancePercent, ref.AmountToleranceMin)
	diff := amount.Sub(bank.AbsoluteAmount()).Abs()

	if diff.LessThanOrEqual(tolerance) {
		return true, true
	}
	return false, diff.LessThanOrEqual(tolerance.Mul(two))
}

// commonTrailingRun counts how many trailing characters two digit strings
// share.
func commonTrailingRun(a, b string) int {
	run := 0
	for run < len(a) && run < len(b) && a[len(a)-1-run] == b[len(b)-1-run] {
		run++
	}
	return run
}
