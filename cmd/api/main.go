package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/gateway"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/instance"
	"github.com/angelmondragon/storefront/pkg/localstore"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	adminMetrics := metrics.NewAdminCallMetrics(registry)

	adminBase, legacy := cfg.Admin.BaseURL()
	if adminBase == "" {
		logg.Warn(ctx, "admin address not configured, checkout will answer 503")
	} else if legacy {
		logg.Warn(logg.WithField(ctx, "env", config.EnvLegacyPublicAPIURL), "admin address read from legacy variable")
	}

	checkoutGateway := gateway.NewGateway(adminBase, nil, logg, adminMetrics)
	catalogClient := catalog.NewClient(cfg.Admin.CatalogURL(),
		catalog.WithAdminURL(adminBase),
		catalog.WithLogger(logg),
		catalog.WithMetrics(adminMetrics),
	)

	deps := routes.Dependencies{
		Checkout: checkoutGateway,
		Catalog:  catalogClient,
		Admin:    catalogClient,
		Registry: registry,
		Pingers:  map[string]controllers.Pinger{},
	}

	var closers []func() error

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
		deps.Idempotency = redisClient
		deps.RateLimiter = redisClient
		deps.Pingers["redis"] = redisClient
		deps.CartBackend = func(token string) localstore.Store {
			return localstore.NewRedisStore(redisClient, token, cfg.Checkout.CartTTL)
		}
	} else {
		logg.Warn(ctx, "redis not configured, idempotency replay and commit rate limiting are off")

		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		closers = append(closers, dbClient.Close)
		sqlStore, err := localstore.NewSQLStore(ctx, dbClient)
		if err != nil {
			logg.Error(ctx, "failed to prepare cart storage", err)
			os.Exit(1)
		}
		deps.Pingers["db"] = dbClient
		deps.CartBackend = func(token string) localstore.Store {
			return localstore.NewScopedStore(sqlStore, "cart:"+token+":")
		}
	}

	addr := ":" + cfg.App.Port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "starting storefront api")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "storefront api stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutting down storefront api")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	for _, closeFn := range closers {
		err = multierr.Append(err, closeFn())
	}
	if err != nil {
		logg.Error(runCtx, "shutdown finished with errors", err)
		os.Exit(1)
	}
}
