package bm25

import (
	"path/filepath"
	"testing"
)

func testPaths(t *testing.T) Paths {
	dir := t.TempDir()
	return Paths{
		Index: filepath.Join(dir, "f.index.gob"),
		Docs:  filepath.Join(dir, "f.docs.gob"),
		Meta:  filepath.Join(dir, "f.meta.gob"),
	}
}

func TestLoadMissingFilesForcesRebuild(t *testing.T) {
	paths := testPaths(t)
	idx, ok, err := Load(paths)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if ok || idx != nil {
		t.Fatalf("expected ok=false, idx=nil for missing files; got ok=%v idx=%v", ok, idx)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	paths := testPaths(t)
	original := Build(sampleDocs(), DefaultK1, DefaultB)

	if err := Save(paths, original); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, ok, err := Load(paths)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true after Save")
	}

	want := original.Search([]string{"zheng", "he"}, 5)
	got := loaded.Search([]string{"zheng", "he"}, 5)
	if len(want) != len(got) {
		t.Fatalf("result count mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if want[i].Doc.ChunkID != got[i].Doc.ChunkID {
			t.Errorf("result %d chunk id = %s, want %s", i, got[i].Doc.ChunkID, want[i].Doc.ChunkID)
		}
	}
}

func TestRemoveDeletesAllThreeFiles(t *testing.T) {
	paths := testPaths(t)
	Save(paths, Build(sampleDocs(), DefaultK1, DefaultB))

	if err := Remove(paths); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, ok, _ := Load(paths); ok {
		t.Fatal("expected files gone after Remove")
	}
}

func TestRemoveMissingFilesIsNotAnError(t *testing.T) {
	paths := testPaths(t)
	if err := Remove(paths); err != nil {
		t.Fatalf("Remove on nonexistent files returned error: %v", err)
	}
}
