package objectclient

import (
	"context"
	"fmt"

	"github.com/fahmykhattab/docuai/internal/config"
	"github.com/fahmykhattab/docuai/internal/core"
)

// New selects the blob-store backend from configuration. The disk backend is
// the default; S3 keeps the same store-relative paths as object keys.
func New(ctx context.Context, cfg *config.Config) (core.BlobStore, error) {
	switch cfg.StorageBackend {
	case "", "disk":
		return NewDiskStore(cfg.MediaDir)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
