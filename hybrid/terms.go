package hybrid

import (
	"github.com/mcjkurz/histfigrag/bm25"
	"github.com/mcjkurz/histfigrag/text"
)

// topMatchingWords adapts bm25.TopMatchingWords to the text
// processor's stopword set.
func topMatchingWords(termScores map[string]float64, processor *text.Processor) []string {
	return bm25.TopMatchingWords(termScores, processor.IsStopword)
}
