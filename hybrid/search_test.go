package hybrid

import (
	"context"
	"testing"

	"github.com/mcjkurz/histfigrag/figurestore"
	"github.com/mcjkurz/histfigrag/text"
)

type fakeDenseStore struct {
	results []figurestore.DenseResult
	lastN   int
}

func (f *fakeDenseStore) QueryDense(ctx context.Context, figureID string, queryVector []float32, n int) ([]figurestore.DenseResult, error) {
	f.lastN = n
	if n < len(f.results) {
		return f.results[:n], nil
	}
	return f.results, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (fakeEmbedder) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func newTestEngine(t *testing.T, dense *fakeDenseStore, src ChunkSource) *Engine {
	t.Helper()
	processor := text.NewProcessorWithSegmenter(splitSegmenter{}, map[string]struct{}{})
	mgr := NewManager(src, t.TempDir(), 1.5, 0.75)
	return NewEngine(dense, fakeEmbedder{}, processor, mgr, DefaultConfig())
}

// splitSegmenter is a minimal space-splitting Segmenter for tests
// that don't need real jieba segmentation.
type splitSegmenter struct{}

func (splitSegmenter) Cut(s string) []string {
	var out []string
	var cur []rune
	for _, r := range s {
		if r == ' ' {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func TestSearchReturnsEmptyWhenNoChunksAboveThreshold(t *testing.T) {
	dense := &fakeDenseStore{results: []figurestore.DenseResult{{ChunkID: "a", Similarity: 0.01}}}
	src := &fakeChunkSource{chunks: map[string][]figurestore.StoredChunk{}}
	eng := newTestEngine(t, dense, src)

	results, err := eng.Search(context.Background(), "napoleon", "some query", 5, nil)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results below threshold, got %v", results)
	}
}

func TestSearchReturnsDenseOnlyWhenNoBM25Index(t *testing.T) {
	dense := &fakeDenseStore{results: []figurestore.DenseResult{
		{ChunkID: "a", Text: "napoleon crossed the alps", Similarity: 0.9},
		{ChunkID: "b", Text: "unrelated", Similarity: 0.5},
	}}
	src := &fakeChunkSource{chunks: map[string][]figurestore.StoredChunk{}}
	eng := newTestEngine(t, dense, src)

	results, err := eng.Search(context.Background(), "napoleon", "napoleon alps", 5, nil)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != "a" {
		t.Fatalf("expected highest-similarity chunk first, got %s", results[0].ChunkID)
	}
	for _, r := range results {
		if r.CosineSimilarity < eng.cfg.MinCosineSimilarity {
			t.Errorf("result below threshold leaked through: %+v", r)
		}
	}
}

func TestSearchTruncatesToNResults(t *testing.T) {
	dense := &fakeDenseStore{results: []figurestore.DenseResult{
		{ChunkID: "a", Similarity: 0.9},
		{ChunkID: "b", Similarity: 0.8},
		{ChunkID: "c", Similarity: 0.7},
	}}
	src := &fakeChunkSource{chunks: map[string][]figurestore.StoredChunk{}}
	eng := newTestEngine(t, dense, src)

	results, err := eng.Search(context.Background(), "napoleon", "query", 2, nil)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestSearchCapsCandidateCountAtMaxSearchResults(t *testing.T) {
	dense := &fakeDenseStore{results: []figurestore.DenseResult{
		{ChunkID: "a", Similarity: 0.9},
	}}
	src := &fakeChunkSource{chunks: map[string][]figurestore.StoredChunk{}}
	eng := newTestEngine(t, dense, src)

	nResults := eng.cfg.MaxSearchResults*2 + 1 // guarantees nResults*SearchMultiplier > MaxSearchResults
	if _, err := eng.Search(context.Background(), "napoleon", "query", nResults, nil); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if dense.lastN != eng.cfg.MaxSearchResults {
		t.Fatalf("QueryDense called with n=%d, want capped at MaxSearchResults=%d", dense.lastN, eng.cfg.MaxSearchResults)
	}
}

func TestRebuildAllForcesRebuildForEveryFigure(t *testing.T) {
	dense := &fakeDenseStore{}
	src := &fakeChunkSource{chunks: map[string][]figurestore.StoredChunk{
		"napoleon": {{ChunkID: "napoleon_1", Text: "alps", ProcessedTokens: []string{"alps"}}},
		"zheng":    {{ChunkID: "zheng_1", Text: "ocean", ProcessedTokens: []string{"ocean"}}},
	}}
	eng := newTestEngine(t, dense, src)

	eng.bm25.Ensure(context.Background(), "napoleon")
	eng.bm25.Ensure(context.Background(), "zheng")

	if err := eng.RebuildAll(context.Background(), []string{"napoleon", "zheng"}); err != nil {
		t.Fatalf("RebuildAll returned error: %v", err)
	}
	if got := eng.bm25.RebuildCount("napoleon"); got != 2 {
		t.Fatalf("napoleon RebuildCount = %d, want 2 (initial Ensure + forced RebuildAll)", got)
	}
	if got := eng.bm25.RebuildCount("zheng"); got != 2 {
		t.Fatalf("zheng RebuildCount = %d, want 2 (initial Ensure + forced RebuildAll)", got)
	}
}

func TestSearchCustomThresholdOverridesDefault(t *testing.T) {
	dense := &fakeDenseStore{results: []figurestore.DenseResult{{ChunkID: "a", Similarity: 0.5}}}
	src := &fakeChunkSource{chunks: map[string][]figurestore.StoredChunk{}}
	eng := newTestEngine(t, dense, src)

	threshold := 0.9
	results, err := eng.Search(context.Background(), "napoleon", "query", 5, &threshold)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results with high custom threshold, got %v", results)
	}
}
