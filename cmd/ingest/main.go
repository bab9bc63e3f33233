package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"handbook-ai/internal/blobstore"
	"handbook-ai/internal/config"
	"handbook-ai/internal/document"
	"handbook-ai/internal/indexer"
	"handbook-ai/internal/llm"
	"handbook-ai/internal/vectorstore"
)

func main() {
	var (
		docPath = flag.String("doc", "", "path to the handbook document (defaults to HANDBOOK_PATH)")
		fromKey = flag.String("from-key", "", "download the document from the blob store under this key instead of reading a local file")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	ctx := context.Background()

	blobs, err := blobstore.NewAFSStore(cfg.BucketURL)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	path := *docPath
	if path == "" {
		path = cfg.HandbookPath
	}
	if *fromKey != "" {
		path, err = fetchDocument(ctx, blobs, *fromKey)
		if err != nil {
			log.Fatalf("Failed to fetch document from blob store: %v", err)
		}
		defer os.Remove(path)
	}

	doc, err := document.Load(path)
	if err != nil {
		log.Fatalf("Failed to load document: %v", err)
	}
	slog.Info("Document loaded", "source", doc.Source, "runes", len([]rune(doc.Text)))

	index, err := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection, false)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := index.EnsureCollection(ctx, cfg.EmbeddingVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}

	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, cfg.EmbeddingVectorSize)

	pipeline := indexer.NewPipeline(chunker, embedder, index, blobs, cfg.QdrantCollection, cfg.EmbeddingVectorSize)
	result, err := pipeline.Run(ctx, doc)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	// Keep a copy of the source document next to the manifest so other
	// environments can re-ingest from the store.
	if *fromKey == "" {
		key := "handbook/" + filepath.Base(path)
		if err := blobs.Upload(ctx, path, key); err != nil {
			slog.Warn("Failed to upload source document to blob store", "key", key, "error", err)
		} else {
			slog.Info("Source document uploaded to blob store", "key", key)
		}
	}

	slog.Info("Ingestion complete",
		"source", result.Source,
		"chunks", result.ChunkCount,
		"min_chunk_runes", result.MinChunk,
		"max_chunk_runes", result.MaxChunk,
		"mean_chunk_runes", fmt.Sprintf("%.1f", result.MeanChunk),
		"collection", cfg.QdrantCollection,
	)
	fmt.Printf("Indexed %d chunks from %s into collection %q\n", result.ChunkCount, result.Source, cfg.QdrantCollection)
}

// fetchDocument downloads a blob-store object to a temp file and returns
// its path. The caller removes the file when done.
func fetchDocument(ctx context.Context, blobs blobstore.Store, key string) (string, error) {
	exists, err := blobs.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("no object stored under key %q", key)
	}

	tmp, err := os.CreateTemp("", "handbook-*"+filepath.Ext(key))
	if err != nil {
		return "", err
	}
	_ = tmp.Close()

	if err := blobs.Download(ctx, key, tmp.Name()); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	slog.Info("Document downloaded from blob store", "key", key, "path", tmp.Name())
	return tmp.Name(), nil
}
