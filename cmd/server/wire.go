package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	gcspanner "cloud.google.com/go/spanner"
	"github.com/redis/go-redis/v9"

	"github.com/rai/storefront-payments/internal/platform/config"
	"github.com/rai/storefront-payments/internal/platform/eventbus"
	"github.com/rai/storefront-payments/internal/platform/spanner"
	"github.com/rai/storefront-payments/internal/platform/sqlite"
	"github.com/rai/storefront-payments/modules/catalog"
	catalogdomain "github.com/rai/storefront-payments/modules/catalog/domain"
	catalogpersistence "github.com/rai/storefront-payments/modules/catalog/infrastructure/persistence"
	"github.com/rai/storefront-payments/modules/invoices"
	"github.com/rai/storefront-payments/modules/notifications"
	"github.com/rai/storefront-payments/modules/orders"
	"github.com/rai/storefront-payments/modules/orders/application/commands"
	"github.com/rai/storefront-payments/modules/orders/application/pricing"
	ordersdomain "github.com/rai/storefront-payments/modules/orders/domain"
	orderspersistence "github.com/rai/storefront-payments/modules/orders/infrastructure/persistence"
	"github.com/rai/storefront-payments/modules/payments"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
	"github.com/rai/storefront-payments/modules/shared/transaction"
)

// app holds the wired modules and the resources to release on exit.
type app struct {
	orders  orders.Module
	closers []func() error
}

func (a *app) onClose(fn func() error) { a.closers = append(a.closers, fn) }

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// buildApp wires every module from configuration. Missing secrets do not
// fail here; the collaborators that need them fail closed per call.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Initialize event bus (for inter-module communication)
	eventBus := eventbus.New(logger)
	if cfg.Events.AMQPURL != "" {
		conn, ch, err := eventbus.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			return nil, err
		}
		a.onClose(conn.Close)
		a.onClose(ch.Close)

		forwarder := eventbus.NewAMQPForwarder(ch, cfg.Events.Exchange, logger)
		if err := forwarder.Forward(eventBus,
			contracts.OrderPlacedEventType,
			contracts.PaymentConfirmedEventType,
			contracts.PaymentFailedEventType,
		); err != nil {
			return nil, err
		}
		logger.Info("forwarding integration events", slog.String("exchange", cfg.Events.Exchange))
	}

	st, err := openStore(ctx, a, cfg, logger)
	if err != nil {
		return nil, err
	}

	products, err := openCatalog(cfg, st, logger)
	if err != nil {
		return nil, err
	}
	catalogCfg := catalog.Config{Repository: products, CacheTTL: cfg.Catalog.CacheTTL, Logger: logger}
	if cfg.Catalog.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Catalog.RedisAddr})
		a.onClose(rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cache falls through to the repository on errors.
			logger.Warn("catalog cache unreachable", slog.String("addr", cfg.Catalog.RedisAddr), slog.Any("error", err))
		}
		catalogCfg.Redis = rdb
	}
	catalogModule := catalog.New(catalogCfg)

	gateway, err := payments.NewGateway(payments.Config{
		Gateway:   cfg.Payments.Gateway,
		KeyID:     cfg.Payments.KeyID,
		KeySecret: cfg.Payments.KeySecret,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	verifier, err := payments.NewVerifier(cfg.Payments.KeySecret, cfg.Payments.WebhookSecret, cfg.Payments.WebhookSignatureMode, logger)
	if err != nil {
		return nil, err
	}

	invoicesModule, err := invoices.New(ctx, invoices.Config{
		Issuer: invoices.Issuer{
			Name:         cfg.Invoice.IssuerName,
			AddressLines: cfg.Invoice.IssuerAddress,
			Email:        cfg.Invoice.IssuerEmail,
			TaxID:        cfg.Invoice.IssuerTaxID,
		},
		Storage:       cfg.Storage.Driver,
		Bucket:        cfg.Storage.Bucket,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(invoicesModule.Close)

	notificationsModule, err := notifications.New(notifications.Config{
		SMTPHost:        cfg.Mail.SMTPHost,
		SMTPPort:        cfg.Mail.SMTPPort,
		Username:        cfg.Mail.Username,
		Password:        cfg.Mail.Password,
		From:            cfg.Mail.From,
		AdminAddress:    cfg.Mail.AdminAddress,
		StoreName:       cfg.Invoice.IssuerName,
		Timeout:         cfg.Mail.Timeout,
		EventSubscriber: eventBus,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	a.orders = orders.New(orders.Config{
		Repository: st.orders,
		TxScope:    st.txScope,
		Catalog:    catalogPricing{reader: catalogModule.Products()},
		Gateway:    gateway,
		Verifier:   verifier,
		Renderer:   invoicesModule.Renderer(),
		Storage:    invoicesModule.Storage(),
		Notifier:   notificationsModule,

		EventPublisher: eventBus,

		Reconciler: commands.ReconcilerConfig{
			StepLease:         cfg.Payments.StepLease,
			MaxStepAttempts:   cfg.Payments.MaxStepAttempts,
			SideEffectTimeout: cfg.Payments.SideEffectTimeout,
		},
		ConfirmTimeout:  cfg.Payments.ConfirmTimeout,
		DefaultCurrency: cfg.Payments.DefaultCurrency,
		Logger:          logger,
	})
	return a, nil
}

// store is the selected persistence backend.
type store struct {
	orders  ordersdomain.OrderRepository
	txScope transaction.Scope
	db      *sql.DB
	spanner *gcspanner.Client
}

func openStore(ctx context.Context, a *app, cfg *config.Config, logger *slog.Logger) (store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return store{}, err
		}
		a.onClose(db.Close)
		if err := sqlite.Migrate(db, orderspersistence.SQLiteSchema, catalogpersistence.SQLiteSchema); err != nil {
			return store{}, err
		}
		logger.Info("using sqlite store", slog.String("path", cfg.Store.SQLitePath))
		return store{
			orders:  orderspersistence.NewSQLiteRepository(db),
			txScope: transaction.PassThrough{},
			db:      db,
		}, nil
	case "spanner":
		spannerCfg := spanner.Config{
			ProjectID:  cfg.Spanner.ProjectID,
			InstanceID: cfg.Spanner.InstanceID,
			DatabaseID: cfg.Spanner.DatabaseID,
		}
		client, err := spanner.NewClient(ctx, spannerCfg)
		if err != nil {
			return store{}, err
		}
		a.onClose(func() error { client.Close(); return nil })
		logger.Info("connected to spanner", slog.String("dsn", spannerCfg.DSN()))
		return store{
			orders:  orderspersistence.NewSpannerRepository(client),
			txScope: spanner.NewReadWriteTransactionScope(client),
			spanner: client,
		}, nil
	default:
		logger.Warn("orders are kept in memory and lost on restart")
		return store{
			orders:  orderspersistence.NewInMemoryRepository(),
			txScope: transaction.PassThrough{},
		}, nil
	}
}

func openCatalog(cfg *config.Config, st store, logger *slog.Logger) (catalogdomain.Reader, error) {
	switch cfg.Catalog.Source {
	case "sqlite":
		return catalogpersistence.NewSQLiteRepository(st.db), nil
	case "spanner":
		return catalogpersistence.NewSpannerRepository(st.spanner), nil
	default:
		if cfg.Catalog.SeedFile == "" {
			logger.Warn("catalog.seed_file is not set; every product lookup will fail")
			return catalogpersistence.NewInMemoryRepository(), nil
		}
		repo, err := catalogpersistence.LoadSeedFile(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("loading catalog seed: %w", err)
		}
		return repo, nil
	}
}

// catalogPricing adapts the catalog module to the pricing verifier.
type catalogPricing struct {
	reader catalogdomain.Reader
}

func (c catalogPricing) Products(ctx context.Context, ids []string) (map[string]pricing.Product, error) {
	found, err := c.reader.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]pricing.Product, len(found))
	for id, p := range found {
		out[id] = pricing.Product{ID: p.ID, Name: p.Name, Price: p.Price}
	}
	return out, nil
}
