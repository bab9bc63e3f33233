package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"handbook-ai/internal/blobstore"
	"handbook-ai/internal/contextutil"
	"handbook-ai/internal/document"
	"handbook-ai/internal/vectorstore"
)

const embedBatchSize = 64

// Embedder maps texts to fixed-dimension vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Pipeline ingests a document into the vector index: chunk, embed in
// batches, upsert, then publish a manifest describing the build.
type Pipeline struct {
	chunker    *Chunker
	embedder   Embedder
	index      vectorstore.VectorIndex
	blobs      blobstore.Store
	collection string
	vectorSize int
}

// Result summarises a completed ingest run.
type Result struct {
	Source     string
	ChunkCount int
	MinChunk   int
	MaxChunk   int
	MeanChunk  float64
}

// NewPipeline creates an ingestion Pipeline. blobs may be nil, in which
// case no manifest is written and serving cannot verify the build.
func NewPipeline(chunker *Chunker, embedder Embedder, index vectorstore.VectorIndex, blobs blobstore.Store, collection string, vectorSize int) *Pipeline {
	return &Pipeline{
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		blobs:      blobs,
		collection: collection,
		vectorSize: vectorSize,
	}
}

// Run ingests the document. A document that yields no chunks is an
// error: an empty index would make every later question unanswerable.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	chunks := p.chunker.Split(doc)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %q produced no chunks", doc.Source)
	}
	logger.InfoContext(ctx, "document chunked", "source", doc.Source, "chunks", len(chunks))

	embedded, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	points := make([]vectorstore.Point, len(embedded))
	for i, ec := range embedded {
		points[i] = vectorstore.Point{
			ID:         chunkID(ec.Source, ec.Index),
			Vector:     ec.Vector,
			Source:     ec.Source,
			ChunkIndex: ec.Index,
			Text:       ec.Text,
		}
	}
	if err := p.index.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("failed to upsert chunks: %w", err)
	}
	logger.InfoContext(ctx, "chunks indexed", "count", len(points), "collection", p.collection)

	if p.blobs != nil {
		manifest := &vectorstore.Manifest{
			EmbeddingModel: p.embedder.Model(),
			VectorSize:     p.vectorSize,
			ChunkCount:     len(chunks),
			Source:         doc.Source,
			Collection:     p.collection,
			CreatedAt:      time.Now().UTC(),
		}
		if err := vectorstore.SaveManifest(ctx, p.blobs, manifest); err != nil {
			return nil, fmt.Errorf("failed to publish manifest: %w", err)
		}
	}

	return buildResult(doc.Source, chunks), nil
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []Chunk) ([]EmbeddedChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	embedded := make([]EmbeddedChunk, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at chunk %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding batch starting at chunk %d: got %d vectors for %d texts", start, len(vectors), len(batch))
		}

		for i, c := range batch {
			embedded = append(embedded, EmbeddedChunk{Chunk: c, Vector: vectors[i]})
		}
		logger.DebugContext(ctx, "batch embedded", "from", start, "to", end)
	}
	return embedded, nil
}

// chunkID derives a stable identifier so re-ingesting the same document
// replaces points instead of duplicating them.
func chunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, index))).String()
}

func buildResult(source string, chunks []Chunk) *Result {
	r := &Result{Source: source, ChunkCount: len(chunks)}
	total := 0
	for i, c := range chunks {
		n := len([]rune(c.Text))
		total += n
		if i == 0 || n < r.MinChunk {
			r.MinChunk = n
		}
		if n > r.MaxChunk {
			r.MaxChunk = n
		}
	}
	r.MeanChunk = float64(total) / float64(len(chunks))
	return r
}
