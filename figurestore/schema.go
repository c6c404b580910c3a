package figurestore

import "fmt"

// chunksTable and vecTable return the per-figure table names. Callers
// must only pass ids already validated by ValidFigureID — the names
// are interpolated directly into DDL/DML.
func chunksTable(figureID string) string { return "chunks_" + figureID }
func vecTable(figureID string) string    { return "vec_" + figureID }

// createFigureSchema returns the DDL that creates one figure's chunk
// table and its paired vec0 dense index. Both share the same rowid so
// a join between them is a rowid lookup rather than a scan.
func createFigureSchema(figureID string, embeddingDim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    rowid INTEGER PRIMARY KEY,
    chunk_id TEXT NOT NULL UNIQUE,
    text TEXT NOT NULL,
    filename TEXT NOT NULL,
    original_filename TEXT NOT NULL,
    file_type TEXT NOT NULL,
    file_size INTEGER NOT NULL,
    chunk_index INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    start_char INTEGER NOT NULL,
    end_char INTEGER NOT NULL,
    char_count INTEGER NOT NULL,
    processed_tokens JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS %[2]s USING vec0(
    rowid INTEGER PRIMARY KEY,
    embedding float[%[3]d] distance_metric=cosine
);
`, chunksTable(figureID), vecTable(figureID), embeddingDim)
}

// dropFigureSchema returns the DDL that removes a figure's chunk
// table and dense index in one statement batch.
func dropFigureSchema(figureID string) string {
	return fmt.Sprintf(`
DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
`, chunksTable(figureID), vecTable(figureID))
}
