package docproc

import (
	"errors"
	"testing"
)

func TestProcessFileUnsupportedFormat(t *testing.T) {
	_, err := ProcessFile([]byte("hello"), "doc.xyz", "xyz", Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestProcessFileEmptyExtraction(t *testing.T) {
	_, err := ProcessFile([]byte("   \n  "), "blank.txt", "txt", Options{})
	if !errors.Is(err, ErrEmptyExtraction) {
		t.Fatalf("err = %v, want ErrEmptyExtraction", err)
	}
}

func TestProcessFileTxtProducesChunkMetadata(t *testing.T) {
	content := []byte("The quick brown fox jumps over the lazy dog.")
	chunks, err := ProcessFile(content, "fox.txt", "txt", Options{})
	if err != nil {
		t.Fatalf("ProcessFile returned error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	c := chunks[0]
	if c.Filename != "fox.txt" || c.FileType != "txt" {
		t.Errorf("unexpected metadata: %+v", c)
	}
	if c.FileSize != len(content) {
		t.Errorf("FileSize = %d, want %d", c.FileSize, len(content))
	}
	if c.CharCount != c.EndChar-c.StartChar {
		t.Errorf("CharCount = %d, want %d", c.CharCount, c.EndChar-c.StartChar)
	}
	if c.TotalCount != 1 || c.ChunkIndex != 0 {
		t.Errorf("unexpected chunk counters: %+v", c)
	}
}

func TestProcessFileRespectsCustomChunkOptions(t *testing.T) {
	content := make([]byte, 0, 1200)
	for len(content) < 1200 {
		content = append(content, []byte("word ")...)
	}

	chunks, err := ProcessFile(content, "long.txt", "txt", Options{MaxChunkChars: minMaxChunkChars, OverlapPercent: 10})
	if err != nil {
		t.Fatalf("ProcessFile returned error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for content longer than max chunk size, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.CharCount > minMaxChunkChars {
			t.Errorf("chunk exceeds configured max: %d > %d", c.CharCount, minMaxChunkChars)
		}
	}
}
