package catalog

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageStore is the opaque blob store for product images: it accepts a
// payload and hands back a stable URL, and can later delete by that URL.
type ImageStore interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// DiskImageStore keeps image blobs on the local filesystem and serves them
// under a configured base URL.
type DiskImageStore struct {
	dir     string
	baseURL string
}

func NewDiskImageStore(dir, baseURL string) *DiskImageStore {
	return &DiskImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *DiskImageStore) Put(ctx context.Context, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	// Stored name is unique; only the extension carries over from the
	// caller-supplied filename.
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

func (s *DiskImageStore) Delete(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, path.Base(url)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
