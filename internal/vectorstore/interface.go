package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_index.go -package=mocks handbook-ai/internal/vectorstore VectorIndex

import (
	"context"
	"errors"
)

// ErrReadOnly is returned by Upsert on an index opened in read-only mode.
var ErrReadOnly = errors.New("vector index is read-only")

// Point is a stored embedding together with its chunk payload.
type Point struct {
	ID         string
	Vector     []float32
	Source     string
	ChunkIndex int
	Text       string
}

// ScoredPoint is a retrieved point with its similarity score.
type ScoredPoint struct {
	ID         string
	Score      float32
	Source     string
	ChunkIndex int
	Text       string
}

// VectorIndex persists embedded chunks and answers nearest-neighbor queries.
type VectorIndex interface {
	// Upsert adds or replaces points keyed by their IDs.
	Upsert(ctx context.Context, points []Point) error

	// Search returns the k nearest points to the query vector, best first.
	Search(ctx context.Context, query []float32, k int) ([]ScoredPoint, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (uint64, error)
}
