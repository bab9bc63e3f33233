package blobstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"handbook-ai/internal/contextutil"
)

// AFSStore implements Store over the viant/afs abstract file storage.
// The base URL selects the backend by scheme (gs://, s3://, mem://, or a
// plain path for the local filesystem).
type AFSStore struct {
	fs      afs.Service
	baseURL string
}

// NewAFSStore creates a blob store rooted at baseURL.
func NewAFSStore(baseURL string) (*AFSStore, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("bucket URL must not be empty")
	}
	return &AFSStore{fs: afs.New(), baseURL: baseURL}, nil
}

// Upload copies a local file to the store under key.
func (s *AFSStore) Upload(ctx context.Context, localPath, key string) error {
	logger := contextutil.LoggerFromContext(ctx)

	reader, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	dest := url.Join(s.baseURL, key)
	if err := s.fs.Upload(ctx, dest, file.DefaultFileOsMode, reader); err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", localPath, dest, err)
	}

	logger.InfoContext(ctx, "uploaded object", "local_path", localPath, "url", dest)
	return nil
}

// Download copies the object at key to a local file.
func (s *AFSStore) Download(ctx context.Context, key, localPath string) error {
	logger := contextutil.LoggerFromContext(ctx)

	src := url.Join(s.baseURL, key)
	data, err := s.fs.DownloadWithURL(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", src, err)
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	logger.InfoContext(ctx, "downloaded object", "url", src, "local_path", localPath)
	return nil
}

// Exists reports whether an object is stored under key.
func (s *AFSStore) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.fs.Exists(ctx, url.Join(s.baseURL, key))
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return exists, nil
}

// List returns the keys under prefix, relative to the store root.
func (s *AFSStore) List(ctx context.Context, prefix string) ([]string, error) {
	location := s.baseURL
	if prefix != "" {
		location = url.Join(s.baseURL, prefix)
	}
	objects, err := s.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", location, err)
	}

	var keys []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		key := object.Name()
		if prefix != "" {
			key = strings.TrimSuffix(prefix, "/") + "/" + key
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Delete removes the object at key.
func (s *AFSStore) Delete(ctx context.Context, key string) error {
	dest := url.Join(s.baseURL, key)
	if err := s.fs.Delete(ctx, dest); err != nil {
		return fmt.Errorf("failed to delete %s: %w", dest, err)
	}
	return nil
}
