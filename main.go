package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appOrder "orderflow/internal/application/order"
	"orderflow/internal/domain/catalog"
	"orderflow/internal/domain/identity"
	domainOrder "orderflow/internal/domain/order"
	"orderflow/internal/domain/payment"
	"orderflow/internal/infrastructure/gateway"
	httptransport "orderflow/internal/infrastructure/http"
	"orderflow/internal/infrastructure/id"
	"orderflow/internal/infrastructure/memory"
	"orderflow/internal/infrastructure/postgres"
	"orderflow/internal/infrastructure/rediscache"
	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger := logging.MustNew(cfg.Service.Name, cfg.Service.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := buildOrderStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("order_store_init_failed", zap.Error(err))
	}
	defer cleanup()

	users, products, payments := buildGateways(cfg, logger)

	metrics := appOrder.NewMetrics(prometheus.DefaultRegisterer)
	orderService := appOrder.NewService(
		repo,
		users,
		products,
		payments,
		id.NewUUIDGenerator(),
		appOrder.WithCallTimeout(cfg.Gateways.CallTimeout),
		appOrder.WithMetrics(metrics),
	)

	handler := httptransport.NewHandler(orderService, logger)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("store_backend", cfg.Store.Backend),
			zap.String("gateway_mode", cfg.Gateways.Mode),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

func buildOrderStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (domainOrder.Repository, func(), error) {
	var repo domainOrder.Repository
	cleanup := func() {}

	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo = postgres.NewOrderRepository(pool)
		cleanup = pool.Close
	default:
		repo = memory.NewOrderRepository()
	}

	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		repo = rediscache.New(repo, client, cfg.Cache.TTL)
		logger.Info("order_cache_enabled",
			zap.String("redis_addr", cfg.Cache.RedisAddr),
		)
	}
	return repo, cleanup, nil
}

func buildGateways(cfg config.Config, logger *zap.Logger) (identity.Gateway, catalog.Gateway, payment.Gateway) {
	if cfg.Gateways.Mode == "http" {
		client := gateway.NewClient()
		var users identity.Gateway = gateway.NewIdentityGateway(client, cfg.Gateways.IdentityURL)
		if cfg.Gateways.IdentityFallback {
			users = gateway.NewFallbackIdentityGateway(users)
			logger.Warn("identity_fallback_enabled")
		}
		return users,
			gateway.NewCatalogGateway(client, cfg.Gateways.CatalogURL),
			gateway.NewPaymentGateway(client, cfg.Gateways.PaymentURL)
	}

	// Embedded mode: in-process collaborators seeded with demo data.
	users := memory.NewIdentityGateway(
		identity.User{ID: "u-1001", Name: "Demo User", Email: "demo@example.com"},
	)
	products := memory.NewCatalogGateway(
		catalog.Product{ID: "p-1001", Name: "Mechanical Keyboard", Price: 4999, StockQuantity: 25},
		catalog.Product{ID: "p-1002", Name: "Wireless Mouse", Price: 1999, StockQuantity: 40},
	)
	payments := memory.NewPaymentGateway()
	logger.Info("embedded_gateways_seeded")
	return users, products, payments
}
