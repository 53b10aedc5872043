// Command shop is a terminal storefront: it keeps a cart on disk and places
// orders through the storefront checkout proxy or the admin service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/gateway"
	"github.com/angelmondragon/storefront/internal/storesettings"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/localstore"
	"github.com/angelmondragon/storefront/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "storefront-shop",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, cleanup, err := newApp(ctx, cfg, logg, os.Stdout)
	if err != nil {
		logg.Error(ctx, "failed to start shop", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		cleanup()
		os.Exit(1)
	}
}

// newApp wires the cart, the toast printer and the checkout collaborators.
func newApp(ctx context.Context, cfg *config.Config, logg *logger.Logger, out io.Writer) (*app, func(), error) {
	cleanup := func() {}

	var store localstore.Store
	switch cfg.LocalStore.Backend {
	case config.LocalStoreFile:
		fileStore, err := localstore.NewFileStore(cfg.LocalStore.Dir)
		if err != nil {
			return nil, cleanup, err
		}
		store = fileStore
	default:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open cart database: %w", err)
		}
		cleanup = func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}
		sqlStore, err := localstore.NewSQLStore(ctx, dbClient)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		store = sqlStore
	}

	bus := events.NewBus()
	bus.Notifications.Subscribe(func(_ context.Context, n events.Notification) {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	})
	bus.CartItemAdded.Subscribe(func(_ context.Context, e events.CartItemAdded) {
		fmt.Fprintf(out, "added %d x %s\n", e.Quantity, e.Name)
	})

	adminBase, legacy := cfg.Admin.BaseURL()
	if legacy {
		logg.Warn(logg.WithField(ctx, "env", config.EnvLegacyPublicAPIURL), "admin address read from legacy variable")
	}
	direct := gateway.NewGateway(adminBase, nil, logg, nil)

	a := &app{
		out:      out,
		logg:     logg,
		bus:      bus,
		cart:     cart.NewStore(ctx, cart.NewKeyValuePersister(store), bus, logg),
		catalog:  catalog.NewClient(cfg.Admin.CatalogURL(), catalog.WithAdminURL(adminBase), catalog.WithLogger(logg)),
		sender:   gateway.NewClient(cfg.Storefront.PublicURL, direct, nil, logg, nil),
		settings: storesettings.NewResolver(cfg.Storefront.PublicURL, adminBase, nil, logg, nil),
		storeID:  cfg.Admin.StoreID,
	}
	return a, cleanup, nil
}
