package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/mcjkurz/histfigrag/bm25"
	"github.com/mcjkurz/histfigrag/figurestore"
)

// ChunkSource supplies the chunks a BM25 index is rebuilt from. The
// figure store satisfies this directly; tests can substitute a fake.
type ChunkSource interface {
	AllChunks(ctx context.Context, figureID string) ([]figurestore.StoredChunk, error)
}

// Manager owns the in-memory BM25 cache and its disk persistence,
// per figure. A single singleflight.Group dedupes concurrent lazy
// rebuilds by figure id, which gives unrelated figures independent
// progress without maintaining a map of groups.
type Manager struct {
	source ChunkSource
	dir    string
	k1, b  float64

	mu    sync.RWMutex
	cache map[string]*bm25.Index

	group singleflight.Group

	// rebuildCount is incremented once per actual rebuild, observable
	// for tests asserting single-flight dedup.
	rebuildCount sync.Map // figureID -> *int64, accessed via atomic
}

// NewManager builds a lifecycle manager persisting BM25 state under
// dir, one file triple per figure.
func NewManager(source ChunkSource, dir string, k1, b float64) *Manager {
	return &Manager{
		source: source,
		dir:    dir,
		k1:     k1,
		b:      b,
		cache:  make(map[string]*bm25.Index),
	}
}

func (m *Manager) paths(figureID string) bm25.Paths {
	return bm25.Paths{
		Index: filepath.Join(m.dir, figureID+".index.gob"),
		Docs:  filepath.Join(m.dir, figureID+".docs.gob"),
		Meta:  filepath.Join(m.dir, figureID+".meta.gob"),
	}
}

// Ensure returns the cached BM25 index for figureID, loading it from
// disk or rebuilding it from the chunk source if necessary. Concurrent
// callers for the same figure block on one rebuild.
func (m *Manager) Ensure(ctx context.Context, figureID string) (*bm25.Index, error) {
	m.mu.RLock()
	if idx, ok := m.cache[figureID]; ok {
		m.mu.RUnlock()
		return idx, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.group.Do(figureID, func() (interface{}, error) {
		m.mu.RLock()
		if idx, ok := m.cache[figureID]; ok {
			m.mu.RUnlock()
			return idx, nil
		}
		m.mu.RUnlock()

		idx, err := m.load(ctx, figureID)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.cache[figureID] = idx
		m.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*bm25.Index), nil
}

func (m *Manager) load(ctx context.Context, figureID string) (*bm25.Index, error) {
	paths := m.paths(figureID)

	idx, ok, err := bm25.Load(paths)
	if err != nil {
		slog.Warn("hybrid: bm25 persistence unreadable, rebuilding", "figure", figureID, "error", err)
	} else if ok {
		return idx, nil
	}

	return m.rebuild(ctx, figureID)
}

func (m *Manager) rebuild(ctx context.Context, figureID string) (*bm25.Index, error) {
	m.incrementRebuildCount(figureID)

	chunks, err := m.source.AllChunks(ctx, figureID)
	if err != nil {
		return nil, fmt.Errorf("hybrid: listing chunks for bm25 rebuild: %w", err)
	}

	docs := make([]bm25.Doc, 0, len(chunks))
	for _, c := range chunks {
		if len(c.ProcessedTokens) == 0 {
			slog.Warn("hybrid: chunk missing processed tokens, degraded bm25", "figure", figureID, "chunk_id", c.ChunkID)
			continue
		}
		docs = append(docs, bm25.Doc{ChunkID: c.ChunkID, Tokens: c.ProcessedTokens})
	}

	idx := bm25.Build(docs, m.k1, m.b)
	if idx == nil {
		slog.Info("hybrid: bm25 rebuild found no tokens, index absent", "figure", figureID)
		return nil, nil
	}

	if err := bm25.Save(m.paths(figureID), idx); err != nil {
		slog.Warn("hybrid: failed to persist bm25 index", "figure", figureID, "error", err)
	}
	return idx, nil
}

// Invalidate drops the in-memory entry and deletes the persisted
// triple for figureID. The next Ensure call rebuilds from source.
func (m *Manager) Invalidate(figureID string) {
	m.mu.Lock()
	delete(m.cache, figureID)
	m.mu.Unlock()

	if err := bm25.Remove(m.paths(figureID)); err != nil {
		slog.Warn("hybrid: failed to remove bm25 persistence", "figure", figureID, "error", err)
	}
}

func (m *Manager) incrementRebuildCount(figureID string) {
	v, _ := m.rebuildCount.LoadOrStore(figureID, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// Cached reports whether figureID's BM25 index currently sits in the
// in-memory cache, without triggering a load or rebuild.
func (m *Manager) Cached(figureID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[figureID]
	return ok
}

// RebuildCount reports how many times Ensure has actually rebuilt
// (rather than served from cache or disk) figureID's index. Exposed
// for tests verifying single-flight dedup.
func (m *Manager) RebuildCount(figureID string) int64 {
	v, ok := m.rebuildCount.Load(figureID)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v.(*int64))
}
