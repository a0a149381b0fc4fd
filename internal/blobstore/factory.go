package blobstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Hexidus/watchgraph/internal/config"
)

// NewFromConfig создаёт хранилище по WG_STORAGE_TYPE.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.StorageType {
	case config.StorageTypeS3:
		store, err := NewS3Store(ctx, S3Config{
			Bucket:               cfg.S3Bucket,
			Region:               cfg.S3Region,
			Endpoint:             cfg.S3Endpoint,
			ServerSideEncryption: cfg.S3ServerSideEncryption,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Хранилище evidence: S3",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return store, nil

	case config.StorageTypeGCS:
		store, err := NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		logger.Info("Хранилище evidence: GCS", slog.String("bucket", cfg.GCSBucket))
		return store, nil

	case config.StorageTypeFS:
		store, err := NewFSStore(cfg.FSDataDir, cfg.PublicBaseURL, []byte(cfg.FSSigningSecret))
		if err != nil {
			return nil, err
		}
		logger.Info("Хранилище evidence: локальная директория", slog.String("data_dir", cfg.FSDataDir))
		return store, nil
	}

	return nil, fmt.Errorf("неизвестный тип хранилища: %q", cfg.StorageType)
}
