// Package histfigrag is the per-figure hybrid retrieval engine behind
// a retrieval-augmented chat server for historical-figure personas:
// document ingestion, dual dense/BM25 indexing, and Reciprocal Rank
// Fusion query-time search, plus a chat completion pass-through that
// streams an LLM answer to caller-supplied messages.
package histfigrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mcjkurz/histfigrag/docproc"
	"github.com/mcjkurz/histfigrag/embedding"
	"github.com/mcjkurz/histfigrag/figurestore"
	"github.com/mcjkurz/histfigrag/hybrid"
	"github.com/mcjkurz/histfigrag/llm"
	"github.com/mcjkurz/histfigrag/text"
)

// maxUploadBytes and maxFileBytes are the ingestion size limits from
// the external interface contract.
const (
	maxFileBytes   = 50 * 1024 * 1024
	maxUploadBytes = 500 * 1024 * 1024
)

// Engine wires the five core components together: text processing,
// document extraction/chunking, embedding, the per-figure store, and
// hybrid search. It also owns the chat LLM provider so cmd/server can
// forward chat messages into a streamed chat completion; ChatStream
// does not add retrieval results to those messages.
type Engine struct {
	cfg       Config
	store     *figurestore.Store
	processor *text.Processor
	embedder  embedding.Provider
	bm25      *hybrid.Manager
	search    *hybrid.Engine
	chat      llm.Provider
}

// New wires an Engine from cfg. The returned Engine owns the
// underlying store and text processor; call Close when done.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := figurestore.New(cfg.VectorDBPath, cfg.FiguresDir, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening figure store: %w", err)
	}

	processor := text.NewProcessor(cfg.StopwordsDir)
	slog.Info("histfigrag: text processor ready", "stopwords", processor.StopwordCount())

	embedder := embedding.New(embedding.Config{
		Mode:    cfg.EmbeddingSource,
		BaseURL: cfg.EmbeddingURL,
		APIKey:  cfg.EmbeddingAPIKey,
		Model:   cfg.EmbeddingModel,
	})

	bm25Dir := filepath.Join(filepath.Dir(cfg.VectorDBPath), "bm25_indexes")
	if err := os.MkdirAll(bm25Dir, 0755); err != nil {
		store.Close()
		return nil, fmt.Errorf("creating bm25 index directory: %w", err)
	}
	bm25Mgr := hybrid.NewManager(store, bm25Dir, bm25DefaultK1, bm25DefaultB)
	searchEngine := hybrid.NewEngine(store, embedder, processor, bm25Mgr, hybrid.Config{
		SearchMultiplier:    cfg.SearchMultiplier,
		MaxSearchResults:    cfg.MaxSearchResults,
		RRFK:                cfg.RRFK,
		MinCosineSimilarity: cfg.MinCosineSimilarity,
	})

	var chatProvider llm.Provider
	if cfg.ChatProvider != "" {
		chatProvider, err = llm.NewProvider(llm.Config{
			Provider: cfg.ChatProvider,
			Model:    cfg.ChatModel,
			BaseURL:  cfg.ChatBaseURL,
			APIKey:   cfg.ChatAPIKey,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating chat provider: %w", err)
		}
	}

	return &Engine{
		cfg:       cfg,
		store:     store,
		processor: processor,
		embedder:  embedder,
		bm25:      bm25Mgr,
		search:    searchEngine,
		chat:      chatProvider,
	}, nil
}

// Close releases the engine's native resources (database handle, jieba dictionary).
func (e *Engine) Close() error {
	e.processor.Close()
	return e.store.Close()
}

const (
	bm25DefaultK1 = 1.5
	bm25DefaultB  = 0.75
)

// CreateFigure validates and creates a new figure.
func (e *Engine) CreateFigure(ctx context.Context, in FigureInput) (figurestore.Figure, error) {
	if fieldErrs := in.ValidateCreate(); len(fieldErrs) > 0 {
		return figurestore.Figure{}, newValidationError("CreateFigure", fieldErrs)
	}
	f, err := e.store.CreateFigure(ctx, in.ID, in.Name, in.Description, in.PersonaInstruction, in.Years())
	if err != nil {
		return figurestore.Figure{}, classifyFigureStoreErr("CreateFigure", err)
	}
	return f, nil
}

// GetFigure returns one figure's metadata.
func (e *Engine) GetFigure(id string) (figurestore.Figure, error) {
	f, err := e.store.GetFigure(id)
	if err != nil {
		return figurestore.Figure{}, classifyFigureStoreErr("GetFigure", err)
	}
	return f, nil
}

// ListFigures returns every figure's metadata.
func (e *Engine) ListFigures() ([]figurestore.Figure, error) {
	return e.store.ListFigures()
}

// UpdateFigure applies a partial update to an existing figure.
func (e *Engine) UpdateFigure(id string, in FigureInput) (figurestore.Figure, error) {
	if fieldErrs := in.ValidateUpdate(); len(fieldErrs) > 0 {
		return figurestore.Figure{}, newValidationError("UpdateFigure", fieldErrs)
	}
	u := figurestore.UpdateFields{}
	if in.Name != "" {
		u.Name = &in.Name
	}
	if in.Description != "" {
		u.Description = &in.Description
	}
	if in.PersonaInstruction != "" {
		u.Persona = &in.PersonaInstruction
	}
	if years := in.Years(); years != "" {
		u.Years = &years
	}
	f, err := e.store.UpdateFigure(id, u)
	if err != nil {
		return figurestore.Figure{}, classifyFigureStoreErr("UpdateFigure", err)
	}
	return f, nil
}

// DeleteFigure removes a figure and all of its chunks, BM25 cache
// entries, and persisted BM25 files.
func (e *Engine) DeleteFigure(ctx context.Context, id string) error {
	e.bm25.Invalidate(id)
	if err := e.store.DeleteFigure(ctx, id); err != nil {
		return classifyFigureStoreErr("DeleteFigure", err)
	}
	return nil
}

// ClearFigureDocuments drops every chunk for a figure while keeping
// its metadata, resetting document_count to zero.
func (e *Engine) ClearFigureDocuments(ctx context.Context, id string) error {
	if err := e.store.ClearFigure(ctx, id); err != nil {
		return classifyFigureStoreErr("ClearFigureDocuments", err)
	}
	e.bm25.Invalidate(id)
	return nil
}

// Search runs the hybrid query pipeline for one figure.
func (e *Engine) Search(ctx context.Context, figureID, query string, nResults int, minCosineSimilarity *float64) ([]hybrid.Result, error) {
	if query == "" {
		return nil, nil
	}
	if _, err := e.store.GetFigure(figureID); err != nil {
		return nil, classifyFigureStoreErr("Search", err)
	}
	if nResults <= 0 {
		nResults = 10
	}
	results, err := e.search.Search(ctx, figureID, query, nResults, minCosineSimilarity)
	if err != nil {
		return nil, newError(KindIndex, "Search", err)
	}
	return results, nil
}

// ChatStream forwards a chat request to the configured chat LLM,
// invoking onDelta with each content delta as it streams in.
func (e *Engine) ChatStream(ctx context.Context, req llm.ChatRequest, onDelta func(delta string) error) error {
	if e.chat == nil {
		return newError(KindTransport, "ChatStream", fmt.Errorf("no chat provider configured"))
	}
	if err := e.chat.ChatStream(ctx, req, onDelta); err != nil {
		return newError(KindTransport, "ChatStream", err)
	}
	return nil
}

// FigureStats is the live collection-stats snapshot for one figure:
// chunk count, embedding width, and whether its BM25 index currently
// sits in memory.
type FigureStats struct {
	FigureID      string
	DocumentCount int
	EmbeddingDim  int
	BM25Cached    bool
}

// Stats reconciles and returns figureID's live document count
// alongside its BM25 cache state, persisting the reconciled count if
// it had drifted from the collection's true size.
func (e *Engine) Stats(ctx context.Context, figureID string) (FigureStats, error) {
	st, err := e.store.Stats(ctx, figureID)
	if err != nil {
		return FigureStats{}, classifyFigureStoreErr("Stats", err)
	}
	return FigureStats{
		FigureID:      figureID,
		DocumentCount: st.DocumentCount,
		EmbeddingDim:  st.EmbeddingDim,
		BM25Cached:    e.bm25.Cached(figureID),
	}, nil
}

// RebuildAll forces a fresh BM25 rebuild for every known figure,
// bypassing whatever is cached or persisted. Intended for an offline
// maintenance pass, not the normal lazy per-query path.
func (e *Engine) RebuildAll(ctx context.Context) error {
	figures, err := e.store.ListFigures()
	if err != nil {
		return fmt.Errorf("listing figures: %w", err)
	}
	ids := make([]string, len(figures))
	for i, f := range figures {
		ids[i] = f.ID
	}
	if err := e.search.RebuildAll(ctx, ids); err != nil {
		return newError(KindIndex, "RebuildAll", err)
	}
	return nil
}

func classifyFigureStoreErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isFigureNotFound(err):
		return newError(KindNotFound, op, err)
	case isFigureExists(err):
		return newError(KindValidation, op, err)
	default:
		return newError(KindIndex, op, err)
	}
}

func isFigureNotFound(err error) bool {
	return errors.Is(err, figurestore.ErrFigureNotFound) || errors.Is(err, figurestore.ErrChunkNotFound)
}

func isFigureExists(err error) bool {
	return errors.Is(err, figurestore.ErrFigureExists) || errors.Is(err, figurestore.ErrInvalidFigureID) || errors.Is(err, figurestore.ErrFieldTooLong)
}

func (e *Engine) docprocOptions() docproc.Options {
	return docproc.Options{
		MaxChunkChars:  e.cfg.MaxChunkChars,
		OverlapPercent: e.cfg.OverlapPercent,
	}
}
