package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/rahulmehra/mandiflow-backend/api/routes"
	"github.com/rahulmehra/mandiflow-backend/internal/b2b"
	"github.com/rahulmehra/mandiflow-backend/internal/cart"
	"github.com/rahulmehra/mandiflow-backend/internal/checkout"
	"github.com/rahulmehra/mandiflow-backend/internal/delivery"
	"github.com/rahulmehra/mandiflow-backend/internal/notifications"
	"github.com/rahulmehra/mandiflow-backend/internal/orders"
	"github.com/rahulmehra/mandiflow-backend/internal/payments"
	"github.com/rahulmehra/mandiflow-backend/internal/products"
	"github.com/rahulmehra/mandiflow-backend/internal/users"
	"github.com/rahulmehra/mandiflow-backend/pkg/config"
	"github.com/rahulmehra/mandiflow-backend/pkg/db"
	"github.com/rahulmehra/mandiflow-backend/pkg/logger"
	"github.com/rahulmehra/mandiflow-backend/pkg/migrate"
	"github.com/rahulmehra/mandiflow-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(dbClient.DB(), dbClient, cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(gormDB *gorm.DB, tx *db.Client, cfg *config.Config, logg *logger.Logger) (routes.Services, error) {
	notifSvc, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}
	userSvc, err := users.NewService(users.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}
	productSvc, err := products.NewService(products.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(cart.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}
	orderSvc, err := orders.NewService(orders.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}
	gateway := payments.NewSimulatedGateway(cfg.Payments)
	paymentSvc, err := payments.NewService(payments.NewRepository(gormDB), gateway, notifSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}
	checkoutSvc, err := checkout.NewService(tx, cart.NewRepository(gormDB), orders.NewRepository(gormDB), paymentSvc, notifSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}
	b2bSvc, err := b2b.NewService(tx, orders.NewRepository(gormDB), b2b.NewStockRepository(gormDB), users.NewRepository(gormDB), notifSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}
	deliverySvc, err := delivery.NewService(delivery.NewRepository(gormDB), orders.NewRepository(gormDB))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Users:         userSvc,
		Products:      productSvc,
		Cart:          cartSvc,
		Checkout:      checkoutSvc,
		Orders:        orderSvc,
		B2B:           b2bSvc,
		Delivery:      deliverySvc,
		Notifications: notifSvc,
	}, nil
}
