package matcher

import "strings"

// NormalizeReference projects a raw reference string onto its decimal digits.
// Every non-digit character is dropped; the result may be empty.
func NormalizeReference(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// StripLeadingZeros removes leading zeros from a normalized reference.
// An all-zero reference collapses to the empty string.
func StripLeadingZeros(normalized string) string {
	return strings.TrimLeft(normalized, "0")
}

// isUsableReference reports whether a normalized reference is long enough to
// serve as a matching key. Short numeric fragments (a day of month, a branch
// code) collide constantly and must never drive a match.
func (ec *EngineConfig) isUsableReference(normalized string) bool {
	return len(normalized) >= ec.MinReferenceDigits
}
