package rag

import (
	"context"
	"fmt"

	"handbook-ai/internal/contextutil"
	"handbook-ai/internal/vectorstore"
)

// DefaultTopK is the number of chunks retrieved per question when no
// other value is configured.
const DefaultTopK = 4

// Retriever embeds a question and returns its nearest chunks, preserving
// the index's order and scores.
type Retriever struct {
	embedder Embedder
	index    vectorstore.VectorIndex
	topK     int
}

// NewRetriever creates a Retriever. The manifest pins the embedding model
// the index was built with; a different serving model would silently
// degrade retrieval, so the mismatch fails here instead.
func NewRetriever(embedder Embedder, index vectorstore.VectorIndex, manifest *vectorstore.Manifest, topK int) (*Retriever, error) {
	if manifest.EmbeddingModel != embedder.Model() {
		return nil, fmt.Errorf("embedding model mismatch: index was built with %q, retriever configured with %q",
			manifest.EmbeddingModel, embedder.Model())
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
	}, nil
}

// Retrieve returns the top-k chunks for the question, best first.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]vectorstore.ScoredPoint, error) {
	logger := contextutil.LoggerFromContext(ctx)

	vectors, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for question")
	}

	results, err := r.index.Search(ctx, vectors[0], r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	logger.DebugContext(ctx, "retrieval completed", "k", r.topK, "results", len(results))
	return results, nil
}
