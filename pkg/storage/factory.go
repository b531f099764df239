package storage

import (
	"context"
	"fmt"

	"github.com/noah-isme/linkvault-api/pkg/config"
)

// New returns the payload store selected by SHARE_STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (PayloadStore, error) {
	switch cfg.Shares.StorageDriver {
	case "", config.StorageDriverLocal:
		return NewLocalStorage(cfg.Shares.UploadDir)
	case config.StorageDriverS3:
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Shares.StorageDriver)
	}
}
