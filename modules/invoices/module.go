// Package invoices renders PDF invoices and stores them.
package invoices

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rai/storefront-payments/modules/invoices/domain"
	"github.com/rai/storefront-payments/modules/invoices/infrastructure/pdf"
	"github.com/rai/storefront-payments/modules/invoices/infrastructure/storage"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
)

const (
	StorageMemory = "memory"
	StorageGCS    = "gcs"
)

type Issuer = domain.Issuer

var ErrNotConfigured = domain.ErrNotConfigured

// Renderer turns a receipt into invoice bytes.
type Renderer interface {
	Render(r contracts.OrderReceipt) ([]byte, error)
}

// Storage persists invoice bytes and returns a public URL.
type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Module is the public API for the invoices bounded context.
type Module interface {
	Renderer() Renderer
	Storage() Storage
	Close() error
}

// Config holds the module configuration.
type Config struct {
	Issuer        Issuer
	Storage       string
	Bucket        string
	PublicBaseURL string
	Logger        *slog.Logger
}

type module struct {
	renderer Renderer
	storage  Storage
	closer   func() error
}

// New creates the invoices module. A GCS backend without a bucket is not a
// startup error: uploads fail with ErrNotConfigured and the invoice step
// records the failure.
func New(ctx context.Context, cfg Config) (Module, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "invoices")

	m := &module{renderer: pdf.NewBuilder(cfg.Issuer), closer: func() error { return nil }}

	switch cfg.Storage {
	case StorageMemory, "":
		logger.Warn("invoices are kept in memory and lost on restart")
		m.storage = storage.NewMemoryStorage(cfg.PublicBaseURL)
	case StorageGCS:
		if cfg.Bucket == "" {
			logger.Error("storage.bucket is not set; invoice uploads will fail")
			m.storage = storage.Unconfigured{}
			break
		}
		gcs, err := storage.NewGCSStorage(ctx, cfg.Bucket, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, err
		}
		m.storage = gcs
		m.closer = gcs.Close
	default:
		return nil, fmt.Errorf("unknown invoice storage %q", cfg.Storage)
	}
	return m, nil
}

func (m *module) Renderer() Renderer { return m.renderer }
func (m *module) Storage() Storage   { return m.storage }
func (m *module) Close() error       { return m.closer() }
