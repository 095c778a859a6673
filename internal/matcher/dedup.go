package matcher

import "sort"

// Deduplicate resolves conflicting claims over bank transactions: candidates
// are ordered by confidence descending and each bank transaction ID is kept
// for the first claim only. Ties break on collection then bank transaction
// ID so the outcome never depends on arrival order.
//
// Collection IDs are not deduplicated here. The phase orchestration already
// claims each collection record at most once; a duplicate on that side would
// be an upstream bug this pass should not mask.
func Deduplicate(candidates []*MatchCandidate) []*MatchCandidate {
	if len(candidates) == 0 {
		return nil
	}

	ordered := make([]*MatchCandidate, len(candidates))
	copy(ordered, candidates)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Evidence.Confidence != ordered[j].Evidence.Confidence {
			return ordered[i].Evidence.Confidence > ordered[j].Evidence.Confidence
		}
		if ordered[i].Collection.ID != ordered[j].Collection.ID {
			return ordered[i].Collection.ID < ordered[j].Collection.ID
		}
		return ordered[i].Bank.ID < ordered[j].Bank.ID
	})

	claimed := make(map[string]bool, len(ordered))
	result := make([]*MatchCandidate, 0, len(ordered))
	for _, candidate := range ordered {
		if claimed[candidate.Bank.ID] {
			continue
		}
		claimed[candidate.Bank.ID] = true
		result = append(result, candidate)
	}

	return result
}
