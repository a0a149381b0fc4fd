// s3.go — blob-хранилище evidence в AWS S3.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config — параметры S3Store.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint — кастомный endpoint (MinIO, LocalStack); включает path-style адресацию
	Endpoint string
	// ServerSideEncryption — алгоритм SSE (AES256, aws:kms); пусто — не задавать
	ServerSideEncryption string
}

// S3Store — Store поверх aws-sdk-go-v2.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	sse     types.ServerSideEncryption
}

// NewS3Store создаёт хранилище, загружая учётные данные AWS из стандартной цепочки
// (переменные окружения, профиль, IRSA, метаданные инстанса).
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("загрузка конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // MinIO/LocalStack
		}
	})

	return NewS3StoreFromClient(client, cfg.Bucket, cfg.ServerSideEncryption), nil
}

// NewS3StoreFromClient создаёт хранилище поверх готового клиента.
func NewS3StoreFromClient(client *s3.Client, bucket, sse string) *S3Store {
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		sse:     types.ServerSideEncryption(sse),
	}
}

// Put загружает объект с server-side encryption и заданным Content-Type.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	if s.sse != "" {
		input.ServerSideEncryption = s.sse
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// PresignGet формирует presigned GET URL с Content-Disposition: attachment.
func (s *S3Store) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(contentDisposition(fileName)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return req.URL, nil
}
