package bm25

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Paths is the three sibling artifacts one figure's BM25 state is
// persisted to. Their presence is all-or-nothing: Load treats any
// missing file as "no cached index" and forces a rebuild.
type Paths struct {
	Index string
	Docs  string
	Meta  string
}

// persisted is the gob-serializable snapshot of an Index. Index
// itself is not exported field-for-field so Build's invariants (idf,
// avgdl, termFreq all derived from docs) stay enforced through the
// constructor rather than through deserialization.
type persisted struct {
	K1   float64
	B    float64
	Docs []Doc
}

// Save writes idx to the three paths in order (index, docs, meta),
// stopping at the first failed write and returning it wrapped; a caller that
// treats BM25 persistence as best-effort (per the surrounding
// lifecycle policy) may choose to log and continue rather than fail
// the query that triggered the rebuild.
func Save(paths Paths, idx *Index) error {
	if idx == nil {
		return nil
	}
	p := persisted{K1: idx.K1, B: idx.B, Docs: idx.docs}

	if err := writeGob(paths.Index, p); err != nil {
		return fmt.Errorf("bm25: saving index: %w", err)
	}
	// Docs and Meta are kept as separate artifacts per the on-disk
	// contract even though this implementation derives both from the
	// same in-memory snapshot; splitting them keeps the three-file
	// layout reproducible if a future rebuild strategy diverges them.
	if err := writeGob(paths.Docs, p.Docs); err != nil {
		return fmt.Errorf("bm25: saving docs: %w", err)
	}
	if err := writeGob(paths.Meta, struct{ K1, B float64 }{p.K1, p.B}); err != nil {
		return fmt.Errorf("bm25: saving meta: %w", err)
	}
	return nil
}

// Load reads idx back from paths. If any of the three files is
// missing, ok is false and the caller should rebuild from source.
func Load(paths Paths) (idx *Index, ok bool, err error) {
	for _, p := range []string{paths.Index, paths.Docs, paths.Meta} {
		if _, statErr := os.Stat(p); statErr != nil {
			return nil, false, nil
		}
	}

	var snap persisted
	if err := readGob(paths.Index, &snap); err != nil {
		return nil, false, fmt.Errorf("bm25: loading index: %w", err)
	}

	return Build(snap.Docs, snap.K1, snap.B), true, nil
}

// Remove deletes all three persistence files, ignoring missing ones.
func Remove(paths Paths) error {
	var firstErr error
	for _, p := range []string{paths.Index, paths.Docs, paths.Meta} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeGob(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
