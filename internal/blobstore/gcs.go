// gcs.go — blob-хранилище evidence в Google Cloud Storage.
package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStore — Store поверх cloud.google.com/go/storage.
// Шифрование на стороне сервера в GCS включено всегда (Google-managed keys).
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore создаёт хранилище с учётными данными ADC.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("создание клиента GCS: %w", err)
	}
	return NewGCSStoreFromClient(client, bucket), nil
}

// NewGCSStoreFromClient создаёт хранилище поверх готового клиента.
func NewGCSStoreFromClient(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket}
}

// Put записывает объект через resumable writer.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", key, err)
	}
	return nil
}

// PresignGet формирует подписанный URL V4 с response-content-disposition.
func (s *GCSStore) PresignGet(_ context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	signed, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Scheme:  storage.SigningSchemeV4,
		Expires: time.Now().Add(ttl),
		QueryParameters: url.Values{
			"response-content-disposition": {contentDisposition(fileName)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gcs sign %s: %w", key, err)
	}
	return signed, nil
}

// Close освобождает ресурсы клиента GCS.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
