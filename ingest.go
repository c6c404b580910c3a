package histfigrag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcjkurz/histfigrag/docproc"
	"github.com/mcjkurz/histfigrag/figurestore"
)

// IngestEventType names one point in the ingestion progress stream.
type IngestEventType string

const (
	EventFileStart      IngestEventType = "file_start"
	EventChunksCount    IngestEventType = "chunks_count"
	EventChunkProgress  IngestEventType = "chunk_progress"
	EventFileComplete   IngestEventType = "file_complete"
	EventFileError      IngestEventType = "file_error"
	EventUploadComplete IngestEventType = "upload_complete"
)

// IngestEvent is one entry in the streaming progress feed the
// ingestion API forwards to the client.
type IngestEvent struct {
	Type        IngestEventType
	Filename    string
	ChunksCount int
	ChunkIndex  int
	Error       string
}

// IngestFile is one caller-supplied upload: raw bytes plus the
// declared type the document processor dispatches on.
type IngestFile struct {
	Filename string
	FileType string
	Content  []byte
}

// IngestFiles extracts, chunks, embeds, and stores every file against
// figureID, reporting progress through onEvent as it goes. A failure
// on one file is reported as a file-scoped error event; the call as a
// whole still succeeds if at least one file succeeded. BM25 is
// invalidated once after the whole batch, not per chunk, so a batch
// of N files triggers at most one rebuild on the next search.
func (e *Engine) IngestFiles(ctx context.Context, figureID string, files []IngestFile, onEvent func(IngestEvent)) error {
	if _, err := e.store.GetFigure(figureID); err != nil {
		return classifyFigureStoreErr("IngestFiles", err)
	}

	var totalBytes int
	anySucceeded := false

	for _, f := range files {
		totalBytes += len(f.Content)
		if totalBytes > maxUploadBytes {
			onEvent(IngestEvent{Type: EventFileError, Filename: f.Filename, Error: "upload exceeds 500 MB total limit"})
			continue
		}
		if len(f.Content) > maxFileBytes {
			onEvent(IngestEvent{Type: EventFileError, Filename: f.Filename, Error: "file exceeds 50 MB limit"})
			continue
		}

		onEvent(IngestEvent{Type: EventFileStart, Filename: f.Filename})

		chunks, err := docproc.ProcessFile(f.Content, f.Filename, f.FileType, e.docprocOptions())
		if err != nil {
			onEvent(IngestEvent{Type: EventFileError, Filename: f.Filename, Error: err.Error()})
			continue
		}

		onEvent(IngestEvent{Type: EventChunksCount, Filename: f.Filename, ChunksCount: len(chunks)})

		fileErr := e.ingestChunks(ctx, figureID, f.Filename, chunks, onEvent)
		if fileErr != nil {
			onEvent(IngestEvent{Type: EventFileError, Filename: f.Filename, Error: fileErr.Error()})
			continue
		}

		anySucceeded = true
		onEvent(IngestEvent{Type: EventFileComplete, Filename: f.Filename, ChunksCount: len(chunks)})
	}

	if anySucceeded {
		e.bm25.Invalidate(figureID)
		if _, err := e.store.Stats(ctx, figureID); err != nil {
			slog.Warn("histfigrag: reconciling document count failed", "figure_id", figureID, "error", err)
		}
	}
	onEvent(IngestEvent{Type: EventUploadComplete})
	return nil
}

func (e *Engine) ingestChunks(ctx context.Context, figureID, originalFilename string, chunks []docproc.Chunk, onEvent func(IngestEvent)) error {
	for _, c := range chunks {
		vecs, err := e.embedder.EncodeDocuments(ctx, []string{c.Text})
		if err != nil || len(vecs) == 0 {
			slog.Warn("histfigrag: embedding chunk failed, skipping", "file", c.Filename, "chunk_index", c.ChunkIndex, "error", err)
			continue
		}

		tokens := e.processor.ProcessText(c.Text, 1, 2)
		if len(tokens) == 0 {
			slog.Warn("histfigrag: chunk produced no tokens, degraded BM25 coverage", "file", c.Filename, "chunk_index", c.ChunkIndex)
		}

		meta := figurestore.ChunkMetadata{
			Filename:         c.Filename,
			OriginalFilename: originalFilename,
			FileType:         c.FileType,
			FileSize:         c.FileSize,
			ChunkIndex:       c.ChunkIndex,
			TotalChunks:      c.TotalCount,
			StartChar:        c.StartChar,
			EndChar:          c.EndChar,
			CharCount:        c.CharCount,
		}
		if _, err := e.store.AddChunk(ctx, figureID, c.Text, vecs[0], meta, tokens); err != nil {
			return fmt.Errorf("storing chunk %d: %w", c.ChunkIndex, err)
		}

		onEvent(IngestEvent{Type: EventChunkProgress, Filename: c.Filename, ChunkIndex: c.ChunkIndex, ChunksCount: c.TotalCount})
	}
	return nil
}
