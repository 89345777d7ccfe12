package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rai/storefront-payments/internal/platform/config"
	"github.com/rai/storefront-payments/internal/platform/httpserver"
	"github.com/rai/storefront-payments/modules/orders"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Examples:
  storefront serve --config storefront.yaml
  STOREFRONT_STORE_DRIVER=sqlite storefront serve`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("starting storefront payments service")

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	router := buildRouter(a.orders)
	handler := httpserver.Middleware(router,
		httpserver.Recovery(logger),
		httpserver.Logging(logger),
		httpserver.CORS(cfg.Server.AllowedOrigins),
		httpserver.BodyLimit(cfg.Server.MaxBodyBytes),
	)

	server := httpserver.New(httpserver.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, otelhttp.NewHandler(handler, "storefront"), logger)

	if err := server.Run(ctx); err != nil {
		return err
	}

	// Fulfillment started by client confirmations outlives their requests.
	logger.Info("waiting for background fulfillment")
	a.orders.Wait()
	logger.Info("server stopped")
	return nil
}

// buildRouter creates the main HTTP router with all module handlers.
func buildRouter(ordersModule orders.Module) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	ordersModule.RegisterRoutes(mux)

	return mux
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})), nil
}
