package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"handbook-ai/internal/blobstore"
)

// ManifestKey is the blob-store key the index manifest lives under.
const ManifestKey = "index/manifest.json"

// Manifest records how the vector index was built. Serving compares it
// against its own configuration: querying with a different embedding
// model than the one used at ingest silently degrades retrieval, so the
// mismatch must fail loudly instead.
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	VectorSize     int       `json:"vector_size"`
	ChunkCount     int       `json:"chunk_count"`
	Source         string    `json:"source"`
	Collection     string    `json:"collection"`
	CreatedAt      time.Time `json:"created_at"`
}

// SaveManifest writes the manifest to the blob store.
func SaveManifest(ctx context.Context, store blobstore.Store, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("manifest-%d.json", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp)
	}()

	if err := store.Upload(ctx, tmp, ManifestKey); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest from the blob store.
func LoadManifest(ctx context.Context, store blobstore.Store) (*Manifest, error) {
	exists, err := store.Exists(ctx, ManifestKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check manifest: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("index manifest not found: run the ingest job first")
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("manifest-%d.json", time.Now().UnixNano()))
	if err := store.Download(ctx, ManifestKey, tmp); err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp)
	}()

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the manifest against the serving configuration.
func (m *Manifest) Validate(embeddingModel string, vectorSize int) error {
	if m.EmbeddingModel != embeddingModel {
		return fmt.Errorf("embedding model mismatch: index was built with %q, serving configured with %q; rebuild the index or fix EMBEDDING_MODEL",
			m.EmbeddingModel, embeddingModel)
	}
	if m.VectorSize != vectorSize {
		return fmt.Errorf("vector size mismatch: index has %d, serving configured with %d", m.VectorSize, vectorSize)
	}
	return nil
}
