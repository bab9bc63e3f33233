package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"handbook-ai/internal/blobstore"
	"handbook-ai/internal/document"
	"handbook-ai/internal/vectorstore"
)

type fakeEmbedder struct {
	model string
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return f.model }

func newTestPipeline(t *testing.T, embedder *fakeEmbedder) (*Pipeline, *vectorstore.MemoryIndex, blobstore.Store) {
	t.Helper()
	chunker, err := NewChunker(50, 10)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	index, err := vectorstore.NewMemoryIndex(3)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}
	blobs, err := blobstore.NewAFSStore("mem://localhost/pipeline-test")
	if err != nil {
		t.Fatalf("NewAFSStore: %v", err)
	}
	return NewPipeline(chunker, embedder, index, blobs, "handbook", 3), index, blobs
}

func TestPipelineRun(t *testing.T) {
	embedder := &fakeEmbedder{model: "text-embedding-3-small"}
	pipeline, index, blobs := newTestPipeline(t, embedder)

	doc := &document.Document{
		Source: "handbook.pdf",
		Text:   strings.Repeat("All graduate students must maintain good standing. ", 10),
	}

	result, err := pipeline.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ChunkCount < 2 {
		t.Fatalf("expected multiple chunks, got %d", result.ChunkCount)
	}
	if result.MinChunk <= 0 || result.MaxChunk > 50 {
		t.Errorf("chunk length stats out of range: min=%d max=%d", result.MinChunk, result.MaxChunk)
	}

	count, err := index.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if int(count) != result.ChunkCount {
		t.Errorf("index holds %d points, result says %d chunks", count, result.ChunkCount)
	}

	manifest, err := vectorstore.LoadManifest(context.Background(), blobs)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if manifest.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("manifest model %q", manifest.EmbeddingModel)
	}
	if manifest.ChunkCount != result.ChunkCount {
		t.Errorf("manifest chunk count %d, want %d", manifest.ChunkCount, result.ChunkCount)
	}
	if manifest.Source != "handbook.pdf" || manifest.Collection != "handbook" {
		t.Errorf("unexpected manifest metadata: %+v", manifest)
	}
	if manifest.VectorSize != 3 {
		t.Errorf("manifest vector size %d, want 3", manifest.VectorSize)
	}
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	embedder := &fakeEmbedder{model: "m"}
	pipeline, index, _ := newTestPipeline(t, embedder)

	doc := &document.Document{
		Source: "handbook.pdf",
		Text:   strings.Repeat("Course registration opens in August each year. ", 10),
	}

	first, err := pipeline.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := pipeline.Run(context.Background(), doc); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	count, err := index.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if int(count) != first.ChunkCount {
		t.Errorf("re-ingest duplicated points: %d points for %d chunks", count, first.ChunkCount)
	}
}

func TestPipelineRejectsEmptyDocument(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t, &fakeEmbedder{model: "m"})

	_, err := pipeline.Run(context.Background(), &document.Document{Source: "empty.pdf", Text: ""})
	if err == nil {
		t.Fatal("expected error for empty document, got nil")
	}
	if !strings.Contains(err.Error(), "no chunks") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPipelineEmbedderFailure(t *testing.T) {
	embedder := &fakeEmbedder{model: "m", err: errors.New("rate limited")}
	pipeline, index, _ := newTestPipeline(t, embedder)

	doc := &document.Document{Source: "handbook.pdf", Text: strings.Repeat("text ", 30)}
	if _, err := pipeline.Run(context.Background(), doc); err == nil {
		t.Fatal("expected error from failing embedder, got nil")
	}

	count, err := index.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("nothing should be indexed on embed failure, got %d points", count)
	}
}

// hashEmbedder maps equal texts to equal vectors, so querying with a
// chunk's exact text must retrieve that chunk first.
type hashEmbedder struct{}

func (hashEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		var v [3]float32
		for j, r := range text {
			v[j%3] += float32(r)
		}
		out[i] = v[:]
	}
	return out, nil
}

func (hashEmbedder) Model() string { return "hash" }

func TestIngestThenQueryRoundTrip(t *testing.T) {
	chunker, err := NewChunker(60, 10)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	index, err := vectorstore.NewMemoryIndex(3)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}
	embedder := hashEmbedder{}
	pipeline := NewPipeline(chunker, embedder, index, nil, "handbook", 3)

	doc := &document.Document{
		Source: "handbook.pdf",
		Text: "Admission requires a bachelor's degree in engineering.\n\n" +
			"The minimum GPA requirement for good standing is 3.0 overall.\n\n" +
			"Teaching assistants must enroll in the seminar every fall.",
	}
	result, err := pipeline.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Query with the verbatim text of each chunk.
	chunks := chunker.Split(doc)
	if len(chunks) != result.ChunkCount {
		t.Fatalf("re-split produced %d chunks, ingest reported %d", len(chunks), result.ChunkCount)
	}
	for _, c := range chunks {
		vecs, err := embedder.EmbedTexts(context.Background(), []string{c.Text})
		if err != nil {
			t.Fatalf("EmbedTexts: %v", err)
		}
		got, err := index.Search(context.Background(), vecs[0], 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 result, got %d", len(got))
		}
		if got[0].Source != "handbook.pdf" || got[0].ChunkIndex != c.Index {
			t.Errorf("querying chunk %d verbatim returned chunk %d of %q", c.Index, got[0].ChunkIndex, got[0].Source)
		}
	}
}

func TestChunkIDIsStable(t *testing.T) {
	a := chunkID("handbook.pdf", 3)
	b := chunkID("handbook.pdf", 3)
	c := chunkID("handbook.pdf", 4)
	if a != b {
		t.Errorf("same chunk produced different ids: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different chunks produced the same id")
	}
}
