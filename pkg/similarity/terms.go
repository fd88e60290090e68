// Package similarity provides token-based text similarity for vocabulary
// item names, plus domain theme detection used for thematic link scoring.
package similarity

import "strings"

// stopWords are tokens ignored during term extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true,
	"this": true, "that": true, "these": true, "those": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"for": true, "from": true, "with": true, "about": true, "into": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "by": true,
	"it": true, "its": true, "which": true, "who": true, "what": true,
	"when": true, "where": true, "how": true, "why": true,
	"other": true, "via": true, "due": true,
	// Tier words carry no discriminating signal between vocabulary items.
	"activity": true, "activities": true, "pressure": true, "pressures": true,
	"consequence": true, "consequences": true, "control": true, "controls": true,
}

// ExtractTerms tokenizes an item name into its set of significant terms.
// Tokens are lowercased, split on non-alphanumeric runes and filtered
// against the stop-word list; tokens shorter than 3 runes are dropped.
func ExtractTerms(name string) map[string]bool {
	terms := make(map[string]bool)

	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_')
	})

	for _, word := range words {
		if len(word) >= 3 && !stopWords[word] {
			terms[word] = true
		}
	}

	return terms
}

// Jaccard calculates the Jaccard similarity between two term sets.
// Returns a value between 0 (no overlap) and 1 (identical).
func Jaccard(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for term := range set1 {
		if set2[term] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// minContainmentLen is the shortest token allowed to match by containment.
// Shorter tokens (e.g. "net" in "planet") produce spurious matches.
const minContainmentLen = 5

// termsMatch reports whether two tokens refer to the same concept: exact
// equality, or one containing the other ("overfishing" matches "fishing").
func termsMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) >= minContainmentLen && len(b) >= minContainmentLen {
		return strings.Contains(a, b) || strings.Contains(b, a)
	}
	return false
}

// NameSimilarity calculates a Jaccard-style similarity between two term
// sets where tokens also match by containment. This is the word-overlap
// score used for vocabulary item names, where compound forms such as
// "overfishing" must count as sharing a token with "fishing".
func NameSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	shared := 0
	for a := range set1 {
		for b := range set2 {
			if termsMatch(a, b) {
				shared++
				break
			}
		}
	}

	union := len(set1) + len(set2) - shared
	if union == 0 {
		return 0.0
	}

	return float64(shared) / float64(union)
}

// SharedTermCount returns the number of terms in set1 matching a term in
// set2 by equality or containment.
func SharedTermCount(set1, set2 map[string]bool) int {
	count := 0
	for a := range set1 {
		for b := range set2 {
			if termsMatch(a, b) {
				count++
				break
			}
		}
	}
	return count
}
