// Package bm25 implements a classic Okapi BM25 index with per-term
// contribution scoring, hand-rolled so the top-contributing terms of
// a match can be recovered for display — something neither an FTS5
// virtual table nor a black-box full-text engine exposes.
package bm25

import (
	"math"
	"sort"
)

const (
	// DefaultK1 and DefaultB match rank_bm25's BM25Okapi defaults.
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Doc is one indexed document: its chunk id and the token stream
// produced by the text processor.
type Doc struct {
	ChunkID string
	Tokens  []string
}

// Index is an Okapi BM25 index over a fixed document set. It is
// immutable once built; a figure's index is always replaced wholesale
// on invalidation, never mutated in place.
type Index struct {
	K1    float64
	B     float64
	docs  []Doc
	avgdl float64
	idf   map[string]float64
	// termFreq[i][term] is the count of term in docs[i].Tokens.
	termFreq []map[string]int
}

// Build constructs an Index from docs using the given k1/b
// parameters. An empty docs slice yields a nil Index, signalling "no
// BM25 state" to callers exactly like the absence of a persisted
// index.
func Build(docs []Doc, k1, b float64) *Index {
	if len(docs) == 0 {
		return nil
	}

	idx := &Index{K1: k1, B: b, docs: docs}
	idx.termFreq = make([]map[string]int, len(docs))

	docFreq := make(map[string]int)
	var totalLen int
	for i, d := range docs {
		tf := make(map[string]int, len(d.Tokens))
		seen := make(map[string]struct{})
		for _, tok := range d.Tokens {
			tf[tok]++
			if _, ok := seen[tok]; !ok {
				docFreq[tok]++
				seen[tok] = struct{}{}
			}
		}
		idx.termFreq[i] = tf
		totalLen += len(d.Tokens)
	}

	idx.avgdl = float64(totalLen) / float64(len(docs))

	n := float64(len(docs))
	idx.idf = make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idx.idf[term] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}

	return idx
}

// Len returns the number of documents in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.docs)
}

// Scored is one scored hit from Search.
type Scored struct {
	Doc   Doc
	Index int
	Score float64
}

// Search scores every document against queryTokens and returns the
// top n with a strictly positive score, highest first.
func (idx *Index) Search(queryTokens []string, n int) []Scored {
	if idx == nil || len(queryTokens) == 0 {
		return nil
	}

	var scored []Scored
	for i := range idx.docs {
		s := idx.score(queryTokens, i)
		if s > 0 {
			scored = append(scored, Scored{Doc: idx.docs[i], Index: i, Score: s})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

func (idx *Index) score(queryTokens []string, docIdx int) float64 {
	docLen := float64(len(idx.docs[docIdx].Tokens))
	tf := idx.termFreq[docIdx]

	var total float64
	for _, term := range queryTokens {
		count := tf[term]
		if count == 0 {
			continue
		}
		total += idx.idf[term] * termContribution(idx.K1, idx.B, float64(count), docLen, idx.avgdl)
	}
	return total
}

// termContribution computes one term's additive BM25 contribution
// (excluding idf, applied by the caller) for the classic Okapi
// formula: tf·(k1+1) / (tf + k1·(1−b+b·|doc|/avgdl)).
func termContribution(k1, b, tf, docLen, avgdl float64) float64 {
	numerator := tf * (k1 + 1)
	denominator := tf + k1*(1-b+b*docLen/avgdl)
	return numerator / denominator
}

// TermScores returns each query term's individual BM25 contribution
// to docIdx, for terms that actually occur in that document.
func (idx *Index) TermScores(queryTokens []string, docIdx int) map[string]float64 {
	scores := make(map[string]float64)
	if idx == nil || docIdx < 0 || docIdx >= len(idx.docs) {
		return scores
	}

	docLen := float64(len(idx.docs[docIdx].Tokens))
	tf := idx.termFreq[docIdx]

	for _, term := range queryTokens {
		count := tf[term]
		if count == 0 {
			continue
		}
		idfVal := idx.idf[term]
		scores[term] = idfVal * termContribution(idx.K1, idx.B, float64(count), docLen, avgOrOne(idx.avgdl))
	}
	return scores
}

func avgOrOne(avgdl float64) float64 {
	if avgdl == 0 {
		return 1
	}
	return avgdl
}
