package figurestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "figures.db"), filepath.Join(dir, "figures"), 3)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateFigureRejectsInvalidID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateFigure(context.Background(), "napoleon1", "Napoleon", "d", "p", ""); !errors.Is(err, ErrInvalidFigureID) {
		t.Fatalf("err = %v, want ErrInvalidFigureID", err)
	}
}

func TestCreateFigureRejectsOverlongFields(t *testing.T) {
	s := newTestStore(t)
	long := make([]byte, maxFieldLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := s.CreateFigure(context.Background(), "napoleon", "Napoleon", string(long), "p", ""); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("err = %v, want ErrFieldTooLong", err)
	}
}

func TestCreateFigureThenDuplicateFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateFigure(ctx, "napoleon", "Napoleon", "d", "p", "1769-1821"); err != nil {
		t.Fatalf("first CreateFigure failed: %v", err)
	}
	if _, err := s.CreateFigure(ctx, "napoleon", "Napoleon", "d", "p", ""); !errors.Is(err, ErrFigureExists) {
		t.Fatalf("err = %v, want ErrFigureExists", err)
	}
}

func TestGetFigureNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetFigure("napoleon"); !errors.Is(err, ErrFigureNotFound) {
		t.Fatalf("err = %v, want ErrFigureNotFound", err)
	}
}

func TestListFiguresReturnsCreatedFigures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateFigure(ctx, "napoleon", "Napoleon", "d", "p", "")
	s.CreateFigure(ctx, "caesar", "Caesar", "d", "p", "")

	figures, err := s.ListFigures()
	if err != nil {
		t.Fatalf("ListFigures returned error: %v", err)
	}
	if len(figures) != 2 {
		t.Fatalf("got %d figures, want 2", len(figures))
	}
}

func TestUpdateFigureAppliesOnlyNonNilFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateFigure(ctx, "napoleon", "Napoleon", "original desc", "p", "")

	newDesc := "updated desc"
	updated, err := s.UpdateFigure("napoleon", UpdateFields{Description: &newDesc})
	if err != nil {
		t.Fatalf("UpdateFigure returned error: %v", err)
	}
	if updated.Description != newDesc || updated.Name != "Napoleon" {
		t.Fatalf("unexpected updated figure: %+v", updated)
	}
}

func TestAddChunkAndQueryDenseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateFigure(ctx, "zheng", "Zheng He", "d", "p", ""); err != nil {
		t.Fatalf("CreateFigure returned error: %v", err)
	}

	meta := ChunkMetadata{Filename: "a.txt", OriginalFilename: "a.txt", FileType: "txt", FileSize: 10, TotalChunks: 1, EndChar: 10, CharCount: 10}
	id1, err := s.AddChunk(ctx, "zheng", "Zheng He sailed south.", []float32{1, 0, 0}, meta, []string{"zheng", "sailed"})
	if err != nil {
		t.Fatalf("AddChunk returned error: %v", err)
	}
	id2, err := s.AddChunk(ctx, "zheng", "unrelated passage", []float32{0, 1, 0}, meta, []string{"unrelated"})
	if err != nil {
		t.Fatalf("AddChunk returned error: %v", err)
	}
	if id1 == id2 {
		t.Fatal("expected distinct chunk ids")
	}

	results, err := s.QueryDense(ctx, "zheng", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("QueryDense returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != id1 {
		t.Fatalf("closest result = %s, want %s", results[0].ChunkID, id1)
	}
	if results[0].Similarity <= results[1].Similarity {
		t.Fatalf("expected result[0] more similar than result[1]: %v vs %v", results[0].Similarity, results[1].Similarity)
	}
	if len(results[0].ProcessedTokens) != 2 {
		t.Fatalf("ProcessedTokens = %v, want 2 entries", results[0].ProcessedTokens)
	}
}

func TestClearFigureResetsCollectionSize(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateFigure(ctx, "zheng", "Zheng He", "d", "p", "")
	s.AddChunk(ctx, "zheng", "text", []float32{1, 0, 0}, ChunkMetadata{}, nil)

	if err := s.ClearFigure(ctx, "zheng"); err != nil {
		t.Fatalf("ClearFigure returned error: %v", err)
	}
	n, err := s.CollectionSize(ctx, "zheng")
	if err != nil {
		t.Fatalf("CollectionSize returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("CollectionSize = %d, want 0", n)
	}

	f, err := s.GetFigure("zheng")
	if err != nil {
		t.Fatalf("GetFigure returned error: %v", err)
	}
	if f.DocumentCount != 0 {
		t.Fatalf("DocumentCount = %d, want 0 after ClearFigure", f.DocumentCount)
	}
}

func TestStatsReconcilesDriftedDocumentCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateFigure(ctx, "zheng", "Zheng He", "d", "p", "")
	s.AddChunk(ctx, "zheng", "text one", []float32{1, 0, 0}, ChunkMetadata{}, nil)
	s.AddChunk(ctx, "zheng", "text two", []float32{0, 1, 0}, ChunkMetadata{}, nil)

	before, err := s.GetFigure("zheng")
	if err != nil {
		t.Fatalf("GetFigure returned error: %v", err)
	}
	if before.DocumentCount != 0 {
		t.Fatalf("DocumentCount = %d before Stats, want 0 (not yet reconciled)", before.DocumentCount)
	}

	st, err := s.Stats(ctx, "zheng")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if st.DocumentCount != 2 {
		t.Fatalf("Stats.DocumentCount = %d, want 2", st.DocumentCount)
	}
	if st.EmbeddingDim != 3 {
		t.Fatalf("Stats.EmbeddingDim = %d, want 3", st.EmbeddingDim)
	}

	after, err := s.GetFigure("zheng")
	if err != nil {
		t.Fatalf("GetFigure returned error: %v", err)
	}
	if after.DocumentCount != 2 {
		t.Fatalf("persisted DocumentCount = %d after Stats, want 2", after.DocumentCount)
	}
}

func TestDeleteFigureRemovesDirectoryAndCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.CreateFigure(ctx, "zheng", "Zheng He", "d", "p", "")

	if err := s.DeleteFigure(ctx, "zheng"); err != nil {
		t.Fatalf("DeleteFigure returned error: %v", err)
	}
	if _, err := s.GetFigure("zheng"); !errors.Is(err, ErrFigureNotFound) {
		t.Fatalf("expected figure gone after delete, got err = %v", err)
	}

	if _, err := s.CreateFigure(ctx, "zheng", "Zheng He", "d", "p", ""); err != nil {
		t.Fatalf("recreate after delete failed: %v", err)
	}
	n, err := s.CollectionSize(ctx, "zheng")
	if err != nil {
		t.Fatalf("CollectionSize returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("recreated figure should have zero chunks, got %d", n)
	}
}
