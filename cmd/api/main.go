package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/healios-dev/healios-backend/api/routes"
	"github.com/healios-dev/healios-backend/internal/cart"
	"github.com/healios-dev/healios-backend/internal/checkout"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/internal/orders"
	"github.com/healios-dev/healios-backend/internal/products"
	"github.com/healios-dev/healios-backend/pkg/config"
	"github.com/healios-dev/healios-backend/pkg/db"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/metrics"
	"github.com/healios-dev/healios-backend/pkg/migrate"
	"github.com/healios-dev/healios-backend/pkg/outbox"
	"github.com/healios-dev/healios-backend/pkg/redis"
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

	taxRate, err := cfg.Checkout.Rate()
	if err != nil {
		logg.Error(context.Background(), "invalid checkout config", err)
		os.Exit(1)
	}
	defaultShipping, err := cfg.Cart.Shipping()
	if err != nil {
		logg.Error(context.Background(), "invalid cart config", err)
		os.Exit(1)
	}
	loc, err := cfg.Discounts.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid discounts config", err)
		os.Exit(1)
	}

	codeRepo := discounts.NewCodeRepository(dbClient.DB())
	resolver, err := discounts.NewResolver(codeRepo, logg, cfg.Discounts.CaseSensitive, loc)
	if err != nil {
		logg.Error(context.Background(), "failed to create code resolver", err)
		os.Exit(1)
	}
	evaluator, err := discounts.NewEvaluator(codeRepo, cfg.Discounts.MaxStack)
	if err != nil {
		logg.Error(context.Background(), "failed to create eligibility evaluator", err)
		os.Exit(1)
	}
	discountMetrics := metrics.NewDiscountMetrics(prometheus.DefaultRegisterer)
	discountSvc, err := discounts.NewService(codeRepo, resolver, evaluator, logg, discountMetrics, taxRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}
	adminSvc, err := discounts.NewAdminService(codeRepo, cfg.Discounts.CaseSensitive)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount admin service", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	productSvc, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartSvc, err := cart.NewService(cartRepo, productSvc, discountSvc, defaultShipping)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderSvc, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	checkoutSvc, err := checkout.NewService(dbClient, cartSvc, cartRepo, orderRepo, discountSvc, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Products:  productSvc,
			Carts:     cartSvc,
			Discounts: discountSvc,
			Admin:     adminSvc,
			Checkout:  checkoutSvc,
			Orders:    orderSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
