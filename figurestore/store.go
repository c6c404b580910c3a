// Package figurestore is the source of truth for figures and their
// chunks: one metadata file and one dense vector collection per
// figure, backed by SQLite and sqlite-vec.
package figurestore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ChunkMetadata is the fixed metadata attached to every chunk,
// mirroring the fields a document processor emits.
type ChunkMetadata struct {
	Filename         string
	OriginalFilename string
	FileType         string
	FileSize         int
	ChunkIndex       int
	TotalChunks      int
	StartChar        int
	EndChar          int
	CharCount        int
}

// DenseResult is one ranked hit from QueryDense.
type DenseResult struct {
	ChunkID         string
	Text            string
	Metadata        ChunkMetadata
	ProcessedTokens []string
	Similarity      float64
}

// StoredChunk is a chunk read back in full, e.g. for BM25 rebuilds.
type StoredChunk struct {
	ChunkID         string
	Text            string
	Metadata        ChunkMetadata
	ProcessedTokens []string
}

// Store wraps the SQLite database and figures/ directory tree holding
// all persona metadata and chunk collections.
type Store struct {
	db           *sql.DB
	figuresDir   string
	embeddingDim int
}

// New opens (or creates) the database at dbPath and ensures
// figuresDir exists. embeddingDim fixes the vector width for every
// figure collection created afterwards.
func New(dbPath, figuresDir string, embeddingDim int) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}
	if err := os.MkdirAll(figuresDir, 0755); err != nil {
		return nil, fmt.Errorf("creating figures directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, figuresDir: figuresDir, embeddingDim: embeddingDim}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) figureDir(id string) string {
	return filepath.Join(s.figuresDir, id)
}

func (s *Store) metadataPath(id string) string {
	return filepath.Join(s.figureDir(id), "metadata.json")
}

// CreateFigure validates id, creates its directory, writes metadata,
// and creates its empty dense collection. It fails if either the
// directory or the collection already exists.
func (s *Store) CreateFigure(ctx context.Context, id, name, description, persona, years string) (Figure, error) {
	if !ValidFigureID(id) {
		return Figure{}, ErrInvalidFigureID
	}
	if utf8.RuneCountInString(description) > maxFieldLen || utf8.RuneCountInString(persona) > maxFieldLen {
		return Figure{}, ErrFieldTooLong
	}

	if _, err := os.Stat(s.figureDir(id)); err == nil {
		return Figure{}, ErrFigureExists
	}
	var exists int
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", chunksTable(id))
	if err := row.Scan(&exists); err != nil {
		return Figure{}, fmt.Errorf("checking existing collection: %w", err)
	}
	if exists > 0 {
		return Figure{}, ErrFigureExists
	}

	if err := os.MkdirAll(s.figureDir(id), 0755); err != nil {
		return Figure{}, fmt.Errorf("creating figure directory: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createFigureSchema(id, s.embeddingDim)); err != nil {
		os.RemoveAll(s.figureDir(id))
		return Figure{}, fmt.Errorf("creating figure collection: %w", err)
	}

	f := newFigure(id, name, description, persona, years)
	data, err := f.marshal()
	if err != nil {
		return Figure{}, err
	}
	if err := os.WriteFile(s.metadataPath(id), data, 0644); err != nil {
		return Figure{}, fmt.Errorf("writing figure metadata: %w", err)
	}

	return f, nil
}

// ListFigures returns every figure whose metadata file is readable,
// sorted by figure id (os.ReadDir returns entries sorted by name).
func (s *Store) ListFigures() ([]Figure, error) {
	entries, err := os.ReadDir(s.figuresDir)
	if err != nil {
		return nil, fmt.Errorf("reading figures directory: %w", err)
	}

	var figures []Figure
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		f, err := s.GetFigure(e.Name())
		if err != nil {
			continue
		}
		figures = append(figures, f)
	}
	return figures, nil
}

// GetFigure reads one figure's metadata.
func (s *Store) GetFigure(id string) (Figure, error) {
	data, err := os.ReadFile(s.metadataPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Figure{}, ErrFigureNotFound
		}
		return Figure{}, err
	}
	return unmarshalFigure(data)
}

// UpdateFields names the mutable figure fields UpdateFigure accepts.
// A nil pointer leaves the field unchanged.
type UpdateFields struct {
	Name        *string
	Description *string
	Persona     *string
	Years       *string
}

// UpdateFigure applies non-nil fields from u to figure id, validating
// length caps before writing.
func (s *Store) UpdateFigure(id string, u UpdateFields) (Figure, error) {
	f, err := s.GetFigure(id)
	if err != nil {
		return Figure{}, err
	}

	if u.Description != nil && utf8.RuneCountInString(*u.Description) > maxFieldLen {
		return Figure{}, ErrFieldTooLong
	}
	if u.Persona != nil && utf8.RuneCountInString(*u.Persona) > maxFieldLen {
		return Figure{}, ErrFieldTooLong
	}

	if u.Name != nil {
		f.Name = *u.Name
	}
	if u.Description != nil {
		f.Description = *u.Description
	}
	if u.Persona != nil {
		f.PersonaInstruction = *u.Persona
	}
	if u.Years != nil {
		f.Years = *u.Years
	}

	data, err := f.marshal()
	if err != nil {
		return Figure{}, err
	}
	if err := os.WriteFile(s.metadataPath(id), data, 0644); err != nil {
		return Figure{}, fmt.Errorf("writing figure metadata: %w", err)
	}
	return f, nil
}

// DeleteFigure removes a figure's collection, image file, and
// directory. Every step is attempted even if an earlier one fails;
// only the final directory removal is reported as a fatal error.
func (s *Store) DeleteFigure(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, dropFigureSchema(id)); err != nil {
		// Non-fatal: the directory removal below still proceeds.
	}

	if f, err := s.GetFigure(id); err == nil && f.ImageFile != "" {
		os.Remove(f.ImageFile)
	}

	if err := os.RemoveAll(s.figureDir(id)); err != nil {
		return fmt.Errorf("removing figure directory: %w", err)
	}
	return nil
}

// AddChunk computes nothing itself — embedding and tokens are
// supplied by the caller — and atomically writes (text, vector,
// metadata, tokens) into the figure's collection under a freshly
// generated chunk id.
func (s *Store) AddChunk(ctx context.Context, figureID, text string, embedding []float32, meta ChunkMetadata, tokens []string) (string, error) {
	chunkID, err := newChunkID(figureID)
	if err != nil {
		return "", err
	}

	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			chunk_id, text, filename, original_filename, file_type, file_size,
			chunk_index, total_chunks, start_char, end_char, char_count, processed_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, chunksTable(figureID)),
		chunkID, text, meta.Filename, meta.OriginalFilename, meta.FileType, meta.FileSize,
		meta.ChunkIndex, meta.TotalChunks, meta.StartChar, meta.EndChar, meta.CharCount, string(tokensJSON))
	if err != nil {
		return "", fmt.Errorf("inserting chunk: %w", err)
	}

	rowid, err := res.LastInsertId()
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (rowid, embedding) VALUES (?, ?)", vecTable(figureID)),
		rowid, serializeFloat32(embedding)); err != nil {
		return "", fmt.Errorf("inserting embedding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return chunkID, nil
}

// ClearFigure drops and recreates the figure's collection empty, and
// resets the figure's persisted document_count to zero.
func (s *Store) ClearFigure(ctx context.Context, figureID string) error {
	if _, err := s.db.ExecContext(ctx, dropFigureSchema(figureID)); err != nil {
		return fmt.Errorf("dropping figure collection: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createFigureSchema(figureID, s.embeddingDim)); err != nil {
		return fmt.Errorf("recreating figure collection: %w", err)
	}

	f, err := s.GetFigure(figureID)
	if err != nil {
		return err
	}
	f.DocumentCount = 0
	data, err := f.marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.metadataPath(figureID), data, 0644); err != nil {
		return fmt.Errorf("writing figure metadata: %w", err)
	}
	return nil
}

// QueryDense runs a cosine KNN search over figureID's collection,
// converting sqlite-vec's cosine distance d into a similarity of 1 − d.
func (s *Store) QueryDense(ctx context.Context, figureID string, queryVector []float32, n int) ([]DenseResult, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT c.chunk_id, c.text, c.filename, c.original_filename, c.file_type, c.file_size,
			c.chunk_index, c.total_chunks, c.start_char, c.end_char, c.char_count,
			c.processed_tokens, v.distance
		FROM %s v
		JOIN %s c ON c.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, vecTable(figureID), chunksTable(figureID)),
		serializeFloat32(queryVector), n)
	if err != nil {
		return nil, fmt.Errorf("querying dense collection: %w", err)
	}
	defer rows.Close()

	var results []DenseResult
	for rows.Next() {
		var r DenseResult
		var tokensJSON string
		var distance float64
		if err := rows.Scan(&r.ChunkID, &r.Text, &r.Metadata.Filename, &r.Metadata.OriginalFilename,
			&r.Metadata.FileType, &r.Metadata.FileSize, &r.Metadata.ChunkIndex, &r.Metadata.TotalChunks,
			&r.Metadata.StartChar, &r.Metadata.EndChar, &r.Metadata.CharCount, &tokensJSON, &distance); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tokensJSON), &r.ProcessedTokens)
		r.Similarity = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// AllChunks streams every chunk in a figure's collection in rowid
// order, for BM25 rebuilds.
func (s *Store) AllChunks(ctx context.Context, figureID string) ([]StoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT chunk_id, text, filename, original_filename, file_type, file_size,
			chunk_index, total_chunks, start_char, end_char, char_count, processed_tokens
		FROM %s ORDER BY rowid
	`, chunksTable(figureID)))
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []StoredChunk
	for rows.Next() {
		var c StoredChunk
		var tokensJSON string
		if err := rows.Scan(&c.ChunkID, &c.Text, &c.Metadata.Filename, &c.Metadata.OriginalFilename,
			&c.Metadata.FileType, &c.Metadata.FileSize, &c.Metadata.ChunkIndex, &c.Metadata.TotalChunks,
			&c.Metadata.StartChar, &c.Metadata.EndChar, &c.Metadata.CharCount, &tokensJSON); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tokensJSON), &c.ProcessedTokens)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// CollectionSize returns the number of chunks currently stored for
// figureID, used to reconcile Figure.DocumentCount.
func (s *Store) CollectionSize(ctx context.Context, figureID string) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", chunksTable(figureID)))
	err := row.Scan(&n)
	return n, err
}

// Stats is the live collection-stats snapshot for one figure.
type Stats struct {
	DocumentCount int
	EmbeddingDim  int
}

// Stats reports figureID's live chunk count and embedding
// dimensionality, persisting the reconciled document_count back to
// metadata.json when it has drifted from the collection's true size.
func (s *Store) Stats(ctx context.Context, figureID string) (Stats, error) {
	f, err := s.GetFigure(figureID)
	if err != nil {
		return Stats{}, err
	}
	n, err := s.CollectionSize(ctx, figureID)
	if err != nil {
		return Stats{}, fmt.Errorf("counting collection: %w", err)
	}

	if f.DocumentCount != n {
		f.DocumentCount = n
		data, err := f.marshal()
		if err != nil {
			return Stats{}, err
		}
		if err := os.WriteFile(s.metadataPath(figureID), data, 0644); err != nil {
			return Stats{}, fmt.Errorf("writing figure metadata: %w", err)
		}
	}

	return Stats{DocumentCount: n, EmbeddingDim: s.embeddingDim}, nil
}

func newChunkID(figureID string) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating chunk id: %w", err)
	}
	return figureID + "_" + hex.EncodeToString(buf), nil
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
