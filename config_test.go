package histfigrag

import (
	"errors"
	"testing"

	"github.com/mcjkurz/histfigrag/embedding"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HISTFIG_MAX_CHUNK_CHARS", "1500")
	t.Setenv("HISTFIG_OVERLAP_PERCENT", "10")
	t.Setenv("HISTFIG_RRF_K", "40")
	t.Setenv("HISTFIG_EMBEDDING_SOURCE", "external")
	t.Setenv("HISTFIG_EMBEDDING_API_KEY", "test-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MaxChunkChars != 1500 {
		t.Errorf("MaxChunkChars = %d, want 1500", cfg.MaxChunkChars)
	}
	if cfg.OverlapPercent != 10 {
		t.Errorf("OverlapPercent = %d, want 10", cfg.OverlapPercent)
	}
	if cfg.RRFK != 40 {
		t.Errorf("RRFK = %d, want 40", cfg.RRFK)
	}
	if cfg.EmbeddingSource != embedding.ModeExternal {
		t.Errorf("EmbeddingSource = %q, want external", cfg.EmbeddingSource)
	}
}

func TestLoadConfigRejectsExternalEmbeddingWithoutAPIKey(t *testing.T) {
	t.Setenv("HISTFIG_EMBEDDING_SOURCE", "external")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for external embedding source with no API key")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want wrapping ErrInvalidConfig", err)
	}
}

func TestLoadConfigRejectsInvalidEmbeddingSource(t *testing.T) {
	t.Setenv("HISTFIG_EMBEDDING_SOURCE", "remote")

	_, err := LoadConfig()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want wrapping ErrInvalidConfig", err)
	}
}

func TestLoadConfigRejectsNonIntegerOverride(t *testing.T) {
	t.Setenv("HISTFIG_MAX_CHUNK_CHARS", "not-a-number")

	_, err := LoadConfig()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want wrapping ErrInvalidConfig", err)
	}
}

func TestValidateRejectsChunkSizeBelowMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChunkChars = 50

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want wrapping ErrInvalidConfig", err)
	}
}

func TestValidateRejectsOverlapOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OverlapPercent = 75

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want wrapping ErrInvalidConfig", err)
	}
}
