package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mercatolabs/storefront-backend/api/routes"
	"github.com/mercatolabs/storefront-backend/internal/activity"
	"github.com/mercatolabs/storefront-backend/internal/addresses"
	"github.com/mercatolabs/storefront-backend/internal/auth"
	"github.com/mercatolabs/storefront-backend/internal/cart"
	"github.com/mercatolabs/storefront-backend/internal/catalog"
	"github.com/mercatolabs/storefront-backend/internal/categories"
	"github.com/mercatolabs/storefront-backend/internal/options"
	"github.com/mercatolabs/storefront-backend/internal/orders"
	"github.com/mercatolabs/storefront-backend/internal/paymentmethods"
	"github.com/mercatolabs/storefront-backend/internal/privacy"
	"github.com/mercatolabs/storefront-backend/internal/users"
	"github.com/mercatolabs/storefront-backend/internal/wishlist"
	"github.com/mercatolabs/storefront-backend/pkg/config"
	"github.com/mercatolabs/storefront-backend/pkg/db"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	"github.com/mercatolabs/storefront-backend/pkg/logger"
	"github.com/mercatolabs/storefront-backend/pkg/metrics"
	"github.com/mercatolabs/storefront-backend/pkg/migrate"
	"github.com/mercatolabs/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, httpMetrics, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gdb := dbClient.DB()

	userRepo := users.NewRepository(gdb)
	addressRepo := addresses.NewRepository(gdb)
	cartRepo := cart.NewRepository(gdb)
	catalogRepo := catalog.NewRepository(gdb)
	categoryRepo := categories.NewRepository(gdb)
	optionRepo := options.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	methodRepo := paymentmethods.NewRepository(gdb)
	privacyRepo := privacy.NewRepository(gdb)
	wishlistRepo := wishlist.NewRepository(gdb)
	activityRepo := activity.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	addressService, err := addresses.NewService(addresses.ServiceParams{
		Repo: addressRepo,
		Tx:   dbClient,
	})
	if err != nil {
		return routes.Services{}, err
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:    cartRepo,
		Catalog: catalogRepo,
		Tx:      dbClient,
	})
	if err != nil {
		return routes.Services{}, err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Carts:   cartRepo,
		Methods: methodRepo,
		Catalog: catalogRepo,
		Tx:      dbClient,
	})
	if err != nil {
		return routes.Services{}, err
	}

	categoryService, err := categories.NewService(categories.ServiceParams{
		Repo:    categoryRepo,
		Catalog: catalogRepo,
		Tx:      dbClient,
	})
	if err != nil {
		return routes.Services{}, err
	}

	optionService, err := options.NewService(options.ServiceParams{
		Repo:    optionRepo,
		Catalog: catalogRepo,
		Tx:      dbClient,
	})
	if err != nil {
		return routes.Services{}, err
	}

	methodService, err := paymentmethods.NewService(paymentmethods.ServiceParams{
		Repo:     methodRepo,
		Payments: orderRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:    wishlistRepo,
		Catalog: catalogRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}

	defaultSource, err := enums.ParseConsentSource(cfg.Privacy.DefaultConsentSource)
	if err != nil {
		defaultSource = enums.ConsentSourceAPI
	}
	privacyService, err := privacy.NewService(privacy.ServiceParams{
		Repo:          privacyRepo,
		Users:         userRepo,
		Addresses:     addressRepo,
		Wishlist:      wishlistRepo,
		Carts:         cartRepo,
		Orders:        orderRepo,
		Audit:         activityRepo,
		Log:           logg,
		DefaultSource: defaultSource,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:           authService,
		Addresses:      addressService,
		Cart:           cartService,
		Orders:         orderService,
		Categories:     categoryService,
		Options:        optionService,
		PaymentMethods: methodService,
		Privacy:        privacyService,
		Wishlist:       wishlistService,
	}, nil
}
