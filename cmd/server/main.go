package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcjkurz/histfigrag"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := histfigrag.LoadConfig()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	// Fallback: check well-known provider env vars for API keys.
	if cfg.ChatAPIKey == "" {
		switch cfg.ChatProvider {
		case "openai":
			cfg.ChatAPIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.ChatAPIKey = os.Getenv("GROQ_API_KEY")
		case "gemini":
			cfg.ChatAPIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	apiKey := os.Getenv("HISTFIG_API_KEY")
	corsOrigins := os.Getenv("HISTFIG_CORS_ORIGINS")

	engine, err := histfigrag.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /figures", h.handleCreateFigure)
	mux.HandleFunc("GET /figures", h.handleListFigures)
	mux.HandleFunc("GET /figures/{id}", h.handleGetFigure)
	mux.HandleFunc("PATCH /figures/{id}", h.handleUpdateFigure)
	mux.HandleFunc("DELETE /figures/{id}", h.handleDeleteFigure)
	mux.HandleFunc("POST /figures/{id}/documents/clear", h.handleClearFigureDocuments)
	mux.HandleFunc("POST /figures/{id}/ingest", h.handleIngest)
	mux.HandleFunc("POST /figures/{id}/search", h.handleSearch)
	mux.HandleFunc("POST /figures/{id}/chat", h.handleChatStream)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses (ingest, chat)
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
