package storage

import (
	"context"
	"fmt"

	"formini/internal/config"
)

// New builds the backend selected by cfg.Driver and makes sure its bucket exists.
func New(ctx context.Context, cfg config.FileStoreConfig) (ObjectStorage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Driver {
	case "", "local":
		backend, err = NewLocalStore(cfg.LocalDir)
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown file store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("file store %s: %w", cfg.Driver, err)
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("file store %s: ensure bucket: %w", cfg.Driver, err)
	}
	return backend, nil
}
