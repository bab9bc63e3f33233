package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory VectorIndex using brute-force cosine
// similarity. Results are deterministic: equal scores keep insertion order.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	order     []string
	points    map[string]Point
}

// NewMemoryIndex creates an empty in-memory index for vectors of the
// given dimension.
func NewMemoryIndex(dimension int) (*MemoryIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be greater than 0, got %d", dimension)
	}
	return &MemoryIndex{
		dimension: dimension,
		points:    make(map[string]Point),
	}, nil
}

// Upsert adds or replaces points. A replaced point keeps its original
// insertion position so ordering stays stable across rebuilds of the
// same ids.
func (s *MemoryIndex) Upsert(_ context.Context, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(p.Vector))
		}
		if _, exists := s.points[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.points[p.ID] = p
	}
	return nil
}

// Search returns the k nearest points by cosine similarity, best first.
// Ties break by insertion order (stable sort).
func (s *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]ScoredPoint, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]ScoredPoint, 0, len(s.order))
	for _, id := range s.order {
		p := s.points[id]
		scored = append(scored, ScoredPoint{
			ID:         p.ID,
			Score:      cosine(query, p.Vector),
			Source:     p.Source,
			ChunkIndex: p.ChunkIndex,
			Text:       p.Text,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Count returns the number of stored points.
func (s *MemoryIndex) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.points)), nil
}

func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
