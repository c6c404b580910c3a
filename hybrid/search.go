package hybrid

import (
	"context"
	"fmt"

	"github.com/mcjkurz/histfigrag/embedding"
	"github.com/mcjkurz/histfigrag/figurestore"
	"github.com/mcjkurz/histfigrag/text"
)

// Config holds the tunables governing the query pipeline, all of
// which have defaults per the external configuration surface.
type Config struct {
	SearchMultiplier    int
	MaxSearchResults    int
	RRFK                int
	MinCosineSimilarity float64
}

// DefaultConfig returns the pipeline's documented defaults.
func DefaultConfig() Config {
	return Config{
		SearchMultiplier:    3,
		MaxSearchResults:    30,
		RRFK:                60,
		MinCosineSimilarity: 0.05,
	}
}

// DenseStore is the subset of figurestore.Store the query pipeline
// needs for dense retrieval.
type DenseStore interface {
	QueryDense(ctx context.Context, figureID string, queryVector []float32, n int) ([]figurestore.DenseResult, error)
}

// Engine runs the hybrid query pipeline: ensure BM25, dense search,
// BM25 search, RRF fusion, threshold filtering.
type Engine struct {
	store     DenseStore
	embedder  embedding.Provider
	processor *text.Processor
	bm25      *Manager
	cfg       Config
}

// NewEngine wires a hybrid Engine from its collaborators.
func NewEngine(store DenseStore, embedder embedding.Provider, processor *text.Processor, bm25Mgr *Manager, cfg Config) *Engine {
	return &Engine{store: store, embedder: embedder, processor: processor, bm25: bm25Mgr, cfg: cfg}
}

// Search runs the full hybrid pipeline for one query against one
// figure's index, returning at most nResults ranked passages.
func (e *Engine) Search(ctx context.Context, figureID, query string, nResults int, minCosineSimilarity *float64) ([]Result, error) {
	threshold := e.cfg.MinCosineSimilarity
	if minCosineSimilarity != nil {
		threshold = *minCosineSimilarity
	}

	idx, err := e.bm25.Ensure(ctx, figureID)
	if err != nil {
		return nil, fmt.Errorf("hybrid: ensuring bm25 index: %w", err)
	}

	n := nResults * e.cfg.SearchMultiplier
	if n > e.cfg.MaxSearchResults {
		n = e.cfg.MaxSearchResults
	}

	queryVecs, err := e.embedder.EncodeQueries(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("hybrid: embedding query: %w", err)
	}
	if len(queryVecs) == 0 || queryVecs[0] == nil {
		return nil, fmt.Errorf("hybrid: embedding query: empty response")
	}

	denseResults, err := e.store.QueryDense(ctx, figureID, queryVecs[0], n)
	if err != nil {
		return nil, fmt.Errorf("hybrid: dense search: %w", err)
	}
	denseResults = filterByThreshold(denseResults, threshold)
	if len(denseResults) == 0 {
		return nil, nil
	}

	var bm25Hits []bm25Hit
	if idx != nil {
		queryTokens := e.processor.ProcessQuery(query, 1, 2)
		if len(queryTokens) > 0 {
			scored := idx.Search(queryTokens, n)
			bm25Hits = make([]bm25Hit, len(scored))
			for i, s := range scored {
				terms := idx.TermScores(queryTokens, s.Index)
				bm25Hits[i] = bm25Hit{
					ChunkID:          s.Doc.ChunkID,
					Score:            s.Score,
					TopMatchingWords: topMatchingWords(terms, e.processor),
				}
			}
		}
	}

	fused := fuseRRF(denseResults, bm25Hits, e.cfg.RRFK)

	filtered := fused[:0]
	for _, r := range fused {
		if r.CosineSimilarity >= threshold {
			filtered = append(filtered, r)
		}
	}

	if len(filtered) > nResults {
		filtered = filtered[:nResults]
	}
	return filtered, nil
}

// RebuildAll forces a fresh BM25 rebuild for every id in figureIDs,
// bypassing whatever is cached or persisted. Intended for an offline
// maintenance pass run across the whole figure set, not the lazy
// per-query path.
func (e *Engine) RebuildAll(ctx context.Context, figureIDs []string) error {
	for _, id := range figureIDs {
		e.bm25.Invalidate(id)
		if _, err := e.bm25.Ensure(ctx, id); err != nil {
			return fmt.Errorf("hybrid: rebuilding bm25 for %s: %w", id, err)
		}
	}
	return nil
}

func filterByThreshold(results []figurestore.DenseResult, threshold float64) []figurestore.DenseResult {
	kept := results[:0]
	for _, r := range results {
		if r.Similarity >= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}
