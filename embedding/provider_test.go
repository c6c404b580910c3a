package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func echoEmbeddingServer(t *testing.T) (*httptest.Server, *embeddingRequest) {
	t.Helper()
	captured := &embeddingRequest{}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		*captured = req

		resp := embeddingResponse{}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(len(text))}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	})
	return srv, captured
}

func TestEncodeDocumentsReturnsVectorsInOrder(t *testing.T) {
	srv, _ := echoEmbeddingServer(t)
	p := New(Config{BaseURL: srv.URL, Model: "text-embed"})

	vecs, err := p.EncodeDocuments(context.Background(), []string{"ab", "abcd"})
	if err != nil {
		t.Fatalf("EncodeDocuments returned error: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 2 || vecs[1][0] != 4 {
		t.Fatalf("unexpected vectors: %v", vecs)
	}
}

func TestEncodeQueriesAddsQwenPrefix(t *testing.T) {
	srv, captured := echoEmbeddingServer(t)
	p := New(Config{BaseURL: srv.URL, Model: "Qwen3-Embedding-0.6B"})

	if _, err := p.EncodeQueries(context.Background(), []string{"who is this"}); err != nil {
		t.Fatalf("EncodeQueries returned error: %v", err)
	}
	if captured.Input[0] != "query: who is this" {
		t.Fatalf("input = %q, want query-prefixed", captured.Input[0])
	}
}

func TestEncodeDocumentsDoesNotAddQwenPrefix(t *testing.T) {
	srv, captured := echoEmbeddingServer(t)
	p := New(Config{BaseURL: srv.URL, Model: "Qwen3-Embedding-0.6B"})

	if _, err := p.EncodeDocuments(context.Background(), []string{"some document"}); err != nil {
		t.Fatalf("EncodeDocuments returned error: %v", err)
	}
	if captured.Input[0] != "some document" {
		t.Fatalf("input = %q, want unprefixed", captured.Input[0])
	}
}

func TestEncodeQueriesNonQwenModelUnprefixed(t *testing.T) {
	srv, captured := echoEmbeddingServer(t)
	p := New(Config{BaseURL: srv.URL, Model: "nomic-embed-text"})

	if _, err := p.EncodeQueries(context.Background(), []string{"who is this"}); err != nil {
		t.Fatalf("EncodeQueries returned error: %v", err)
	}
	if captured.Input[0] != "who is this" {
		t.Fatalf("input = %q, want unprefixed", captured.Input[0])
	}
}

func TestEmbedPropagatesNon200AsRequestFailed(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})
	p := New(Config{BaseURL: srv.URL, Model: "m"})

	_, err := p.EncodeDocuments(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestEmbedEmptyInputReturnsNil(t *testing.T) {
	p := New(Config{BaseURL: "http://unused.invalid", Model: "m"})
	vecs, err := p.EncodeDocuments(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("EncodeDocuments(nil) = %v, %v, want nil, nil", vecs, err)
	}
}

func TestIsQwenModel(t *testing.T) {
	cases := map[string]bool{
		"Qwen3-Embedding-0.6B": true,
		"qwen2.5":              true,
		"nomic-embed-text":     false,
		"":                     false,
	}
	for model, want := range cases {
		if got := isQwenModel(model); got != want {
			t.Errorf("isQwenModel(%q) = %v, want %v", model, got, want)
		}
	}
}
