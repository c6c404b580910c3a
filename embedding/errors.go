package embedding

import "errors"

// ErrRequestFailed wraps any transport or non-2xx failure talking to
// the embedding endpoint. Embedding calls are single-attempt; callers
// that need resilience retry at a higher level (e.g. per-file
// ingestion retry), not inside this package.
var ErrRequestFailed = errors.New("embedding: request failed")
