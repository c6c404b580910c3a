// Package hybrid maintains each figure's BM25 index and combines it
// with dense retrieval into a single ranked list via Reciprocal Rank
// Fusion.
package hybrid

import "github.com/mcjkurz/histfigrag/figurestore"

// Result is one ranked passage returned by the search pipeline.
type Result struct {
	ChunkID          string
	Text             string
	Metadata         figurestore.ChunkMetadata
	CosineSimilarity float64
	BM25Score        float64
	RRFScore         float64
	TopMatchingWords []string
	VectorRank       int // 1-based; 0 means absent from the dense list
	BM25Rank         int // 1-based; 0 means absent from the BM25 list
}
