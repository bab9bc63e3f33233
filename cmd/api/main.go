package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"handbook-ai/internal/blobstore"
	"handbook-ai/internal/config"
	"handbook-ai/internal/http"
	"handbook-ai/internal/llm"
	"handbook-ai/internal/rag"
	"handbook-ai/internal/storage"
	"handbook-ai/internal/vectorstore"
)

// General API information
//
// This API answers questions about the graduate student handbook using
// retrieval-augmented generation over a pre-built vector index, and keeps
// per-session chat history.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Handbook AI API
//   description: |
//     Question answering over the graduate student handbook. Ask questions,
//     get answers grounded in the handbook text with cited passages, and
//     keep chat history per session.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServing(); err != nil {
		log.Fatalf("Invalid serving configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// The blob store holds the index manifest written at ingest time.
	blobs, err := blobstore.NewAFSStore(cfg.BucketURL)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}
	manifest, err := vectorstore.LoadManifest(ctx, blobs)
	if err != nil {
		log.Fatalf("Failed to load index manifest (run the ingest job first): %v", err)
	}
	if err := manifest.Validate(cfg.EmbeddingModel, cfg.EmbeddingVectorSize); err != nil {
		log.Fatalf("Index manifest does not match configuration: %v", err)
	}
	slog.Info("Index manifest loaded", "model", manifest.EmbeddingModel, "chunks", manifest.ChunkCount)

	// Serving never writes to the index, so open it read-only.
	index, err := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection, true)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := index.EnsureCollection(ctx, cfg.EmbeddingVectorSize); err != nil {
		log.Fatalf("Qdrant collection not ready: %v", err)
	}
	count, err := index.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to query Qdrant collection: %v", err)
	}
	if count == 0 {
		log.Fatalf("Qdrant collection %q is empty: run the ingest job first", cfg.QdrantCollection)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "points", count)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, cfg.EmbeddingVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingVectorSize)

	sessions := newSessionStore(cfg)

	retriever, err := rag.NewRetriever(embedder, index, manifest, cfg.TopK)
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}
	chatClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	synthesizer := rag.NewSynthesizer(chatClient, rag.GroundingMode(cfg.GroundingMode))
	ragEngine := rag.NewEngine(retriever, synthesizer, sessions)
	slog.Info("RAG engine initialized", "grounding_mode", cfg.GroundingMode, "top_k", cfg.TopK)

	deps := &http.Deps{
		RAGEngine:    ragEngine,
		SessionStore: sessions,
		VectorIndex:  index,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// newSessionStore opens the configured session backend. If the durable
// SQLite backend cannot be opened, serving continues on the in-memory
// store so answering still works, at the cost of history durability.
func newSessionStore(cfg *config.Config) storage.SessionStore {
	if cfg.SessionBackend != "sqlite" {
		slog.Info("Using in-memory session store")
		return storage.NewMemorySessionStore()
	}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		slog.Warn("Failed to open session database, falling back to in-memory sessions", "path", cfg.DBPath, "error", err)
		return storage.NewMemorySessionStore()
	}
	if err := storage.Migrate(db); err != nil {
		slog.Warn("Failed to migrate session database, falling back to in-memory sessions", "path", cfg.DBPath, "error", err)
		_ = db.Close()
		return storage.NewMemorySessionStore()
	}
	slog.Info("Session database initialized", "path", cfg.DBPath)
	return storage.NewSessionRepo(db)
}
