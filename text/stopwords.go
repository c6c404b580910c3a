package text

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// loadStopwords reads every *.txt file in dir, one stopword per line,
// and returns the lower-cased set. A missing directory is non-fatal:
// it degrades bigram quality but must not fail startup.
func loadStopwords(dir string) map[string]struct{} {
	stopwords := make(map[string]struct{})

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("text: stopwords directory not found", "dir", dir, "error", err)
		return stopwords
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("text: error loading stopwords file", "path", path, "error", err)
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			word := strings.TrimSpace(line)
			if word == "" {
				continue
			}
			stopwords[strings.ToLower(word)] = struct{}{}
		}
	}

	return stopwords
}

func isStopword(stopwords map[string]struct{}, token string) bool {
	_, ok := stopwords[strings.ToLower(token)]
	return ok
}
