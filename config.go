package histfigrag

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mcjkurz/histfigrag/embedding"
)

// Config holds all configuration for the historical-figure retrieval
// engine. Every field has a documented default and can be overridden
// by a HISTFIG_* environment variable via LoadConfig.
type Config struct {
	// FiguresDir is the root directory holding figures/<id>/metadata.json.
	FiguresDir string
	// VectorDBPath is the SQLite database file backing the figure store.
	VectorDBPath string
	// StopwordsDir holds one or more *.txt stopword lists, one token per line.
	StopwordsDir string

	// Chunking
	MaxChunkChars  int // clamped 500-3000, default 1000
	OverlapPercent int // clamped 0-50, default 20

	// Hybrid search
	MinCosineSimilarity float64 // default 0.05
	SearchMultiplier    int     // default 3
	MaxSearchResults    int     // default 30
	RRFK                int     // default 60

	// Embedding provider
	EmbeddingSource embedding.Mode // "local" or "external"
	EmbeddingModel  string
	EmbeddingURL    string
	EmbeddingAPIKey string
	EmbeddingDim    int

	// Chat LLM (the out-of-scope collaborator still wired for cmd/server)
	ChatProvider string
	ChatModel    string
	ChatBaseURL  string
	ChatAPIKey   string
}

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() Config {
	return Config{
		FiguresDir:          "figures",
		VectorDBPath:        "chroma_db/figures.db",
		StopwordsDir:        "data/stopwords",
		MaxChunkChars:       1000,
		OverlapPercent:      20,
		MinCosineSimilarity: 0.05,
		SearchMultiplier:    3,
		MaxSearchResults:    30,
		RRFK:                60,
		EmbeddingSource:     embedding.ModeLocal,
		EmbeddingModel:      "BAAI/bge-m3",
		EmbeddingDim:        1024,
		ChatProvider:        "ollama",
		ChatModel:           "llama3.1:8b",
		ChatBaseURL:         "http://localhost:11434",
	}
}

// LoadConfig starts from DefaultConfig and applies any HISTFIG_*
// environment overrides present in the process environment.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("HISTFIG_FIGURES_DIR"); v != "" {
		cfg.FiguresDir = v
	}
	if v := os.Getenv("HISTFIG_VECTOR_DB_PATH"); v != "" {
		cfg.VectorDBPath = v
	}
	if v := os.Getenv("HISTFIG_STOPWORDS_DIR"); v != "" {
		cfg.StopwordsDir = v
	}
	if err := overrideInt(&cfg.MaxChunkChars, "HISTFIG_MAX_CHUNK_CHARS"); err != nil {
		return cfg, err
	}
	if err := overrideInt(&cfg.OverlapPercent, "HISTFIG_OVERLAP_PERCENT"); err != nil {
		return cfg, err
	}
	if err := overrideFloat(&cfg.MinCosineSimilarity, "HISTFIG_MIN_COSINE_SIMILARITY"); err != nil {
		return cfg, err
	}
	if err := overrideInt(&cfg.SearchMultiplier, "HISTFIG_SEARCH_MULTIPLIER"); err != nil {
		return cfg, err
	}
	if err := overrideInt(&cfg.MaxSearchResults, "HISTFIG_MAX_SEARCH_RESULTS"); err != nil {
		return cfg, err
	}
	if err := overrideInt(&cfg.RRFK, "HISTFIG_RRF_K"); err != nil {
		return cfg, err
	}
	if v := os.Getenv("HISTFIG_EMBEDDING_SOURCE"); v != "" {
		cfg.EmbeddingSource = embedding.Mode(strings.ToLower(v))
	}
	if v := os.Getenv("HISTFIG_EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("HISTFIG_EMBEDDING_URL"); v != "" {
		cfg.EmbeddingURL = v
	}
	if v := os.Getenv("HISTFIG_EMBEDDING_API_KEY"); v != "" {
		cfg.EmbeddingAPIKey = v
	}
	if err := overrideInt(&cfg.EmbeddingDim, "HISTFIG_EMBEDDING_DIM"); err != nil {
		return cfg, err
	}
	if v := os.Getenv("HISTFIG_CHAT_PROVIDER"); v != "" {
		cfg.ChatProvider = v
	}
	if v := os.Getenv("HISTFIG_CHAT_MODEL"); v != "" {
		cfg.ChatModel = v
	}
	if v := os.Getenv("HISTFIG_CHAT_BASE_URL"); v != "" {
		cfg.ChatBaseURL = v
	}
	if v := os.Getenv("HISTFIG_CHAT_API_KEY"); v != "" {
		cfg.ChatAPIKey = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for the fatal conditions that
// must abort process startup rather than fail a later request.
func (c Config) Validate() error {
	if c.EmbeddingSource != embedding.ModeLocal && c.EmbeddingSource != embedding.ModeExternal {
		return fmt.Errorf("%w: EMBEDDING_SOURCE must be \"local\" or \"external\", got %q", ErrInvalidConfig, c.EmbeddingSource)
	}
	if c.EmbeddingSource == embedding.ModeExternal && c.EmbeddingAPIKey == "" {
		return fmt.Errorf("%w: EMBEDDING_API_KEY is required when EMBEDDING_SOURCE=external", ErrInvalidConfig)
	}
	if c.MaxChunkChars < 100 {
		return fmt.Errorf("%w: MAX_CHUNK_CHARS must be at least 100, got %d", ErrInvalidConfig, c.MaxChunkChars)
	}
	if c.OverlapPercent < 0 || c.OverlapPercent > 50 {
		return fmt.Errorf("%w: OVERLAP_PERCENT must be in [0,50], got %d", ErrInvalidConfig, c.OverlapPercent)
	}
	if c.MinCosineSimilarity < 0 || c.MinCosineSimilarity > 1 {
		return fmt.Errorf("%w: MIN_COSINE_SIMILARITY must be in [0,1], got %f", ErrInvalidConfig, c.MinCosineSimilarity)
	}
	return nil
}

func overrideInt(dst *int, envVar string) error {
	v := os.Getenv(envVar)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, envVar, v)
	}
	*dst = n
	return nil
}

func overrideFloat(dst *float64, envVar string) error {
	v := os.Getenv(envVar)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, envVar, v)
	}
	*dst = f
	return nil
}
