package objectclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fahmykhattab/docuai/internal/core"
)

// DiskStore keeps blobs under a media root on the local filesystem.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (core.BlobStore, error) {
	if root == "" {
		return nil, fmt.Errorf("media dir not set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *DiskStore) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	dest := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (s *DiskStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// LocalPath for disk blobs is the file itself; nothing to clean up.
func (s *DiskStore) LocalPath(ctx context.Context, path string) (string, func(), error) {
	abs := s.resolve(path)
	if _, err := os.Stat(abs); err != nil {
		return "", func() {}, fmt.Errorf("blob not accessible at %q: %w", abs, err)
	}
	return abs, func() {}, nil
}
