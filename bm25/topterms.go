package bm25

import (
	"sort"
	"strings"
)

const maxTopMatchingWords = 5

// TopMatchingWords sorts termScores by contribution descending,
// drops any term that is a stopword (or, for an "a_b" bigram, whose
// a or b component is a stopword), and returns up to five display
// strings with bigrams rendered as "a b" instead of "a_b".
func TopMatchingWords(termScores map[string]float64, isStopword func(string) bool) []string {
	type termScore struct {
		term  string
		score float64
	}
	ordered := make([]termScore, 0, len(termScores))
	for term, score := range termScores {
		ordered = append(ordered, termScore{term, score})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })

	var display []string
	for _, ts := range ordered {
		if strings.Contains(ts.term, "_") {
			parts := strings.SplitN(ts.term, "_", 2)
			if isStopword(parts[0]) || isStopword(parts[1]) {
				continue
			}
			display = append(display, strings.ReplaceAll(ts.term, "_", " "))
		} else {
			if isStopword(ts.term) {
				continue
			}
			display = append(display, ts.term)
		}
		if len(display) == maxTopMatchingWords {
			break
		}
	}
	return display
}
