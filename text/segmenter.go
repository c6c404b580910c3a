// Package text implements the mixed CJK/Latin tokenization pipeline
// shared by document indexing and query processing: segmentation,
// lemmatization, and stopword-aware n-gram emission.
package text

import (
	"strings"
	"sync"

	"github.com/yanyiwu/gojieba"
)

// Segmenter splits raw text into dictionary tokens. It exists as an
// interface so tests can substitute a deterministic fake instead of
// loading jieba's dictionary files.
type Segmenter interface {
	Cut(text string) []string
}

// jiebaSegmenter wraps gojieba's mixed-mode cut, which handles both
// CJK dictionary segmentation and Latin word boundaries in one pass.
type jiebaSegmenter struct {
	mu sync.Mutex
	jb *gojieba.Jieba
}

func newJiebaSegmenter() *jiebaSegmenter {
	return &jiebaSegmenter{jb: gojieba.NewJieba()}
}

func (s *jiebaSegmenter) Cut(text string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jb.Cut(text, true)
}

func (s *jiebaSegmenter) Close() {
	s.jb.Free()
}

// segmentText runs the segmenter and drops whitespace-only tokens,
// mirroring the original's filter on jieba.lcut output.
func segmentText(seg Segmenter, text string) []string {
	raw := seg.Cut(text)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		trimmed := strings.TrimSpace(tok)
		if trimmed == "" {
			continue
		}
		tokens = append(tokens, trimmed)
	}
	return tokens
}
