package hybrid

import (
	"sort"

	"github.com/mcjkurz/histfigrag/figurestore"
)

// bm25Hit is one scored BM25 result carrying its display terms,
// produced by the query pipeline before fusion.
type bm25Hit struct {
	ChunkID          string
	Score            float64
	TopMatchingWords []string
}

// fuseRRF combines a dense result list and a BM25 hit list into one
// ranked list via Reciprocal Rank Fusion with constant k. Per-chunk
// fields are merged: cosine_similarity defaults to 0 when a chunk is
// BM25-only, bm25_score/top_matching_words default to 0/empty when a
// chunk is dense-only. Ties in RRF score preserve first-seen order
// (dense results are folded in before BM25 results).
func fuseRRF(dense []figurestore.DenseResult, bm25Hits []bm25Hit, k int) []Result {
	index := make(map[string]int)
	results := make([]Result, 0, len(dense)+len(bm25Hits))

	get := func(chunkID string) *Result {
		if i, ok := index[chunkID]; ok {
			return &results[i]
		}
		results = append(results, Result{ChunkID: chunkID})
		index[chunkID] = len(results) - 1
		return &results[len(results)-1]
	}

	for rank, d := range dense {
		r := get(d.ChunkID)
		r.Text = d.Text
		r.Metadata = d.Metadata
		r.CosineSimilarity = d.Similarity
		r.VectorRank = rank + 1
		r.RRFScore += 1.0 / float64(k+rank+1)
	}

	for rank, b := range bm25Hits {
		r := get(b.ChunkID)
		r.BM25Score = b.Score
		r.TopMatchingWords = b.TopMatchingWords
		r.BM25Rank = rank + 1
		r.RRFScore += 1.0 / float64(k+rank+1)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].RRFScore > results[j].RRFScore })
	return results
}
