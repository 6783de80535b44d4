package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"upscaler/config"
)

// CacheValue is an encoded upscale result.
type CacheValue struct {
	Body        []byte
	ContentType string
}

// S3Cache persists upscale results in an S3 bucket so that they survive
// restarts and are shared across replicas.
type S3Cache struct {
	Client  *minio.Client
	Bucket  string
	Prefix  string
	Enabled bool
}

// NewS3Cache connects to the configured bucket. With no endpoint configured it
// returns a disabled cache.
func NewS3Cache(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*S3Cache, error) {
	if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
		logger.Info("s3 cache disabled")
		return &S3Cache{}, nil
	}

	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check s3 bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist", cfg.S3Bucket)
	}

	logger.Info("s3 cache enabled", zap.String("endpoint", cfg.S3Endpoint), zap.String("bucket", cfg.S3Bucket), zap.String("prefix", cfg.S3Prefix))

	return &S3Cache{
		Client:  client,
		Bucket:  cfg.S3Bucket,
		Prefix:  cfg.S3Prefix,
		Enabled: true,
	}, nil
}

// ObjectKey maps a cache key to its object name under the prefix.
func ObjectKey(prefix, cacheKey string) string {
	sum := sha256.Sum256([]byte(cacheKey))
	name := hex.EncodeToString(sum[:])
	if prefix == "" {
		return name
	}
	return strings.TrimRight(prefix, "/") + "/" + name
}

// Get returns nil, nil when the object does not exist.
func (s *S3Cache) Get(ctx context.Context, cacheKey string) (*CacheValue, error) {
	if s == nil || !s.Enabled {
		return nil, nil
	}

	obj, err := s.Client.GetObject(ctx, s.Bucket, ObjectKey(s.Prefix, cacheKey), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}

	return &CacheValue{Body: body, ContentType: info.ContentType}, nil
}

// Put stores body under the cache key.
func (s *S3Cache) Put(ctx context.Context, cacheKey string, body []byte, contentType string) error {
	if s == nil || !s.Enabled {
		return nil
	}

	_, err := s.Client.PutObject(ctx, s.Bucket, ObjectKey(s.Prefix, cacheKey), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
