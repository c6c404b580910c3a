package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcjkurz/histfigrag"
	"github.com/mcjkurz/histfigrag/llm"
)

type handler struct {
	engine *histfigrag.Engine
}

func newHandler(e *histfigrag.Engine) *handler {
	return &handler{engine: e}
}

// POST /figures
func (h *handler) handleCreateFigure(w http.ResponseWriter, r *http.Request) {
	var in histfigrag.FigureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	f, err := h.engine.CreateFigure(r.Context(), in)
	if err != nil {
		writeEngineError(w, "CreateFigure", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// GET /figures
func (h *handler) handleListFigures(w http.ResponseWriter, r *http.Request) {
	figures, err := h.engine.ListFigures()
	if err != nil {
		writeEngineError(w, "ListFigures", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"figures": figures})
}

// GET /figures/{id}
func (h *handler) handleGetFigure(w http.ResponseWriter, r *http.Request) {
	f, err := h.engine.GetFigure(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, "GetFigure", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// PATCH /figures/{id}
func (h *handler) handleUpdateFigure(w http.ResponseWriter, r *http.Request) {
	var in histfigrag.FigureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	f, err := h.engine.UpdateFigure(r.PathValue("id"), in)
	if err != nil {
		writeEngineError(w, "UpdateFigure", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DELETE /figures/{id}
func (h *handler) handleDeleteFigure(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteFigure(r.Context(), r.PathValue("id")); err != nil {
		writeEngineError(w, "DeleteFigure", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /figures/{id}/documents/clear
func (h *handler) handleClearFigureDocuments(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearFigureDocuments(r.Context(), r.PathValue("id")); err != nil {
		writeEngineError(w, "ClearFigureDocuments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// POST /figures/{id}/ingest
// Accepts a multipart form with one or more "files" parts and streams
// ingestion progress back as Server-Sent Events.
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	figureID := r.PathValue("id")

	if err := r.ParseMultipartForm(500 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	formFiles := r.MultipartForm.File["files"]
	if len(formFiles) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var files []histfigrag.IngestFile
	for _, fh := range formFiles {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("opening %s: %v", fh.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("reading %s: %v", fh.Filename, err))
			return
		}
		files = append(files, histfigrag.IngestFile{
			Filename: fh.Filename,
			FileType: fileTypeFromName(fh.Filename),
			Content:  content,
		})
	}

	sse, flush, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	err := h.engine.IngestFiles(ctx, figureID, files, func(e histfigrag.IngestEvent) {
		sse(string(e.Type), e)
		flush()
	})
	if err != nil {
		slog.Error("ingest error", "figure_id", figureID, "error", err)
		sse("error", map[string]string{"error": err.Error()})
		flush()
	}
}

// POST /figures/{id}/search
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query               string   `json:"query"`
		NResults            int      `json:"n_results,omitempty"`
		MinCosineSimilarity *float64 `json:"min_cosine_similarity,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.engine.Search(r.Context(), r.PathValue("id"), req.Query, req.NResults, req.MinCosineSimilarity)
	if err != nil {
		writeEngineError(w, "Search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// POST /figures/{id}/chat
// Streams a chat completion as Server-Sent Events; each event carries
// one content delta, terminated by a "done" event, or by an "error"
// event if the stream fails.
func (h *handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages    []llm.Message `json:"messages"`
		Temperature float64       `json:"temperature,omitempty"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}

	sse, flush, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	err := h.engine.ChatStream(r.Context(), llm.ChatRequest{
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, func(delta string) error {
		sse("delta", map[string]string{"content": delta})
		flush()
		return nil
	})
	if err != nil {
		slog.Error("chat stream error", "figure_id", r.PathValue("id"), "error", err)
		sse("error", map[string]string{"error": err.Error()})
	} else {
		sse("done", map[string]string{})
	}
	flush()
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps a histfigrag.Error's Kind to an HTTP status,
// including field-level validation errors when present.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	var he *histfigrag.Error
	if !errors.As(err, &he) {
		slog.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch he.Kind {
	case histfigrag.KindValidation:
		body := map[string]interface{}{"error": he.Error()}
		if len(he.Fields) > 0 {
			body["fields"] = he.Fields
		}
		writeJSON(w, http.StatusBadRequest, body)
	case histfigrag.KindNotFound:
		writeError(w, http.StatusNotFound, he.Error())
	case histfigrag.KindDecode:
		writeError(w, http.StatusBadRequest, he.Error())
	case histfigrag.KindTransport:
		slog.Error(op, "error", err)
		writeError(w, http.StatusBadGateway, "upstream request failed")
	default:
		slog.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// newSSEWriter prepares the response for a Server-Sent Events stream
// and returns a function that writes one named JSON event plus a
// flush function. ok is false if the ResponseWriter can't be flushed.
func newSSEWriter(w http.ResponseWriter) (send func(event string, data interface{}), flush func(), ok bool) {
	f, flushable := w.(http.Flusher)
	if !flushable {
		return nil, nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send = func(event string, data interface{}) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\n", event)
		fmt.Fprintf(w, "data: %s\n\n", payload)
	}
	flush = func() { f.Flush() }
	return send, flush, true
}

func fileTypeFromName(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
	}
	return ""
}
