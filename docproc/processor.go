// Package docproc extracts plain text from source documents (PDF,
// DOCX, TXT) and splits it into overlapping character-offset chunks
// suitable for embedding and indexing.
package docproc

import (
	"fmt"
	"strings"
)

// Chunk is one indexable unit produced by ProcessFile, carrying the
// metadata the figure store and BM25 index need alongside the text.
type Chunk struct {
	Text       string
	Filename   string
	FileType   string
	FileSize   int
	TextLength int
	ChunkIndex int
	TotalCount int
	StartChar  int
	EndChar    int
	CharCount  int
}

// Options controls chunk sizing. Zero values select the defaults
// (1000 chars, 20% overlap).
type Options struct {
	MaxChunkChars  int
	OverlapPercent int
}

func (o Options) withDefaults() Options {
	if o.MaxChunkChars == 0 {
		o.MaxChunkChars = defaultMaxChunkChars
	}
	if o.OverlapPercent == 0 {
		o.OverlapPercent = defaultOverlapPercent
	}
	return o
}

// ProcessFile extracts text from content according to fileType (pdf,
// txt, text, or docx) and splits it into chunks. An empty extraction
// result is reported as ErrEmptyExtraction rather than silently
// producing zero chunks.
func ProcessFile(content []byte, filename, fileType string, opts Options) ([]Chunk, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(fileType) {
	case "pdf":
		text, err = extractPDF(content)
	case "txt", "text":
		text, err = extractText(content)
	case "docx":
		text, err = extractDOCX(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileType)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyExtraction
	}

	opts = opts.withDefaults()
	rawChunks := chunkText(text, opts.MaxChunkChars, opts.OverlapPercent)
	textLen := len([]rune(text))

	chunks := make([]Chunk, len(rawChunks))
	for i, rc := range rawChunks {
		chunks[i] = Chunk{
			Text:       rc.Text,
			Filename:   filename,
			FileType:   fileType,
			FileSize:   len(content),
			TextLength: textLen,
			ChunkIndex: rc.Index,
			TotalCount: rc.TotalCount,
			StartChar:  rc.StartChar,
			EndChar:    rc.EndChar,
			CharCount:  rc.EndChar - rc.StartChar,
		}
	}
	return chunks, nil
}
