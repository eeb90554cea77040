package catalog

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	minSuggestLength   = 3
	maxSuggestDistance = 3
)

// Suggest returns the closest vocabulary name for a mistyped attribute name.
// Only candidates longer than two characters with a distance of 1 or 2 get a
// suggestion; an exact match means there is nothing to correct. Ties go to the
// earliest vocabulary entry.
func Suggest(candidate string, vocabulary []string) (string, bool) {
	normalized := Normalize(candidate)
	if utf8.RuneCountInString(normalized) < minSuggestLength {
		return "", false
	}
	best := -1
	bestDistance := 0
	for i, name := range vocabulary {
		d := levenshtein.ComputeDistance(normalized, Normalize(name))
		if best == -1 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	if best == -1 || bestDistance == 0 || bestDistance >= maxSuggestDistance {
		return "", false
	}
	return vocabulary[best], true
}
