// Package catalog exposes the read-only product catalog used for pricing.
// Catalog CRUD lives outside this service; this module only reads.
package catalog

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rai/storefront-payments/modules/catalog/domain"
	"github.com/rai/storefront-payments/modules/catalog/infrastructure/cache"
)

// Module is the public API for the catalog bounded context.
type Module interface {
	// Products returns the reader pricing should use.
	Products() domain.Reader
}

// Config holds the module configuration.
type Config struct {
	Repository domain.Reader
	// Redis enables the cache-aside layer when non-nil.
	Redis    redis.Cmdable
	CacheTTL time.Duration
	Logger   *slog.Logger
}

type module struct {
	reader domain.Reader
}

// New creates a new catalog module.
func New(cfg Config) Module {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "catalog")

	reader := cfg.Repository
	if cfg.Redis != nil {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		reader = cache.NewRedisReader(reader, cfg.Redis, ttl, logger)
		logger.Info("catalog cache enabled", slog.Duration("ttl", ttl))
	}

	return &module{reader: reader}
}

func (m *module) Products() domain.Reader { return m.reader }
