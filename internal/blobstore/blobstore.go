package blobstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks handbook-ai/internal/blobstore Store

import "context"

// Store is the blob-store collaborator: five operations over keyed
// objects, independent of the backing service.
type Store interface {
	// Upload copies a local file to the store under key.
	Upload(ctx context.Context, localPath, key string) error
	// Download copies the object at key to a local file.
	Download(ctx context.Context, key, localPath string) error
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}
