// Package embedding turns text into vectors for dense retrieval. Both
// the local and external modes are HTTP calls to an OpenAI-compatible
// /embeddings endpoint; "local" simply targets a local server (Ollama,
// LM Studio) instead of a hosted one.
package embedding

import (
	"context"
	"strings"
)

// Mode selects which base URL/model defaults a Provider was built
// from. It has no effect on the request format itself.
type Mode string

const (
	ModeLocal    Mode = "local"
	ModeExternal Mode = "external"
)

// Config configures an HTTP-backed embedding Provider.
type Config struct {
	Mode    Mode
	BaseURL string
	APIKey  string
	Model   string
}

// Provider encodes documents and queries into dense vectors.
// Implementations may treat the two differently: Qwen-family models
// expect queries (not documents) to carry a "query: " instruction
// prefix.
type Provider interface {
	EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EncodeQueries(ctx context.Context, texts []string) ([][]float32, error)
}

// New builds the Provider for cfg. Both modes share one HTTP client
// implementation; they differ only in the base URL/model the caller
// configured and in whether the query prefix applies.
func New(cfg Config) Provider {
	return &httpProvider{cfg: cfg, client: newHTTPClient(cfg)}
}

type httpProvider struct {
	cfg    Config
	client *httpClient
}

func (p *httpProvider) EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return p.client.embed(ctx, texts)
}

func (p *httpProvider) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	if isQwenModel(p.cfg.Model) {
		prefixed := make([]string, len(texts))
		for i, t := range texts {
			prefixed[i] = "query: " + t
		}
		texts = prefixed
	}
	return p.client.embed(ctx, texts)
}

// isQwenModel reports whether modelName identifies a Qwen embedding
// model, which expects an instruction prefix on queries.
func isQwenModel(modelName string) bool {
	return strings.Contains(strings.ToLower(modelName), "qwen")
}
