package hybrid

import (
	"testing"

	"github.com/mcjkurz/histfigrag/figurestore"
)

func TestFuseRRFMergesDenseAndBM25Fields(t *testing.T) {
	dense := []figurestore.DenseResult{
		{ChunkID: "a", Text: "dense only", Similarity: 0.9},
		{ChunkID: "b", Text: "both", Similarity: 0.8},
	}
	bm25Hits := []bm25Hit{
		{ChunkID: "b", Score: 5.0, TopMatchingWords: []string{"term"}},
		{ChunkID: "c", Score: 3.0, TopMatchingWords: []string{"other"}},
	}

	results := fuseRRF(dense, bm25Hits, 60)
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.ChunkID] = r
	}

	if byID["a"].CosineSimilarity != 0.9 || byID["a"].BM25Score != 0 || len(byID["a"].TopMatchingWords) != 0 {
		t.Errorf("dense-only result missing defaults: %+v", byID["a"])
	}
	if byID["c"].CosineSimilarity != 0 || byID["c"].BM25Score != 3.0 {
		t.Errorf("bm25-only result missing defaults: %+v", byID["c"])
	}
	if byID["b"].CosineSimilarity != 0.8 || byID["b"].BM25Score != 5.0 {
		t.Errorf("fused result missing both sides: %+v", byID["b"])
	}
}

func TestFuseRRFSortsByScoreDescending(t *testing.T) {
	dense := []figurestore.DenseResult{
		{ChunkID: "low", Similarity: 0.5},
		{ChunkID: "high", Similarity: 0.9},
	}
	bm25Hits := []bm25Hit{
		{ChunkID: "high", Score: 1},
	}

	results := fuseRRF(dense, bm25Hits, 60)
	if results[0].ChunkID != "high" {
		t.Fatalf("expected 'high' to rank first, got %s", results[0].ChunkID)
	}
}

func TestFuseRRFTiesPreserveFirstSeenOrder(t *testing.T) {
	dense := []figurestore.DenseResult{
		{ChunkID: "first", Similarity: 0.5},
		{ChunkID: "second", Similarity: 0.5},
	}

	results := fuseRRF(dense, nil, 60)
	if results[0].ChunkID != "first" || results[1].ChunkID != "second" {
		t.Fatalf("expected stable tie order [first second], got [%s %s]", results[0].ChunkID, results[1].ChunkID)
	}
}

func TestFuseRRFEmptyInputs(t *testing.T) {
	if results := fuseRRF(nil, nil, 60); len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}
