package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/rai/storefront-payments/modules/invoices/domain"
)

// GCSStorage uploads invoices to a Google Cloud Storage bucket and returns
// their public URL.
type GCSStorage struct {
	client  *storage.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewGCSStorage creates a client with application default credentials.
// publicBaseURL defaults to https://storage.googleapis.com/<bucket>.
func NewGCSStorage(ctx context.Context, bucket, publicBaseURL string, logger *slog.Logger) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket: %w", domain.ErrNotConfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSStorage{
		client:  client,
		bucket:  bucket,
		baseURL: PublicBaseURL(bucket, publicBaseURL),
		logger:  logger,
	}, nil
}

// Upload writes the object, overwriting an earlier upload of the same key.
func (s *GCSStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, max-age=0"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("writing gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing gs://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Debug("invoice uploaded", slog.String("bucket", s.bucket), slog.String("key", key), slog.Int("bytes", len(data)))
	return ObjectURL(s.baseURL, key), nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// PublicBaseURL returns the configured base URL or the bucket's default.
func PublicBaseURL(bucket, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	return "https://storage.googleapis.com/" + bucket
}

// ObjectURL joins base and key, escaping each key segment.
func ObjectURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(segments, "/")
}

// Unconfigured fails every upload with domain.ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "", fmt.Errorf("uploading %s: %w", key, domain.ErrNotConfigured)
}
