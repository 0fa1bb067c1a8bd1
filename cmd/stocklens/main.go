package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocklens/stocklens/internal/app"
	"github.com/stocklens/stocklens/internal/catalog/categories"
	"github.com/stocklens/stocklens/internal/catalog/products"
	"github.com/stocklens/stocklens/internal/dashboard"
	"github.com/stocklens/stocklens/internal/members"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/orders"
	"github.com/stocklens/stocklens/internal/platform/cache"
	"github.com/stocklens/stocklens/internal/platform/db"
	"github.com/stocklens/stocklens/internal/shared"
	"github.com/stocklens/stocklens/internal/stocks"
	"github.com/stocklens/stocklens/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	resolver := shared.NewTokenResolver(redisClient, cfg.AuthTokenTTL)

	productRepo, err := products.NewRepository(pool)
	if err != nil {
		logger.Error("init product repository", slog.Any("error", err))
		os.Exit(1)
	}
	categoryRepo, err := categories.NewRepository(pool)
	if err != nil {
		logger.Error("init category repository", slog.Any("error", err))
		os.Exit(1)
	}
	stockRepo, err := stocks.NewRepository(pool)
	if err != nil {
		logger.Error("init stock repository", slog.Any("error", err))
		os.Exit(1)
	}
	orderRepo, err := orders.NewRepository(pool)
	if err != nil {
		logger.Error("init order repository", slog.Any("error", err))
		os.Exit(1)
	}
	memberRepo, err := members.NewRepository(pool)
	if err != nil {
		logger.Error("init member repository", slog.Any("error", err))
		os.Exit(1)
	}

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := dashboardCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	dashboardRepo := dashboard.NewRepository(pool)
	dashboardService := dashboard.NewService(logger, dashboardRepo, dashboardCache,
		dashboard.WithWindowDays(cfg.DashboardWindowDays),
		dashboard.WithTopN(cfg.DashboardTopN),
	)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	orderService := orders.NewService(orderRepo, orders.WithChangeNotifier(func(ctx context.Context) {
		if _, err := jobClient.EnqueueDashboardBump(ctx); err != nil {
			logger.Warn("enqueue dashboard bump", slog.Any("error", err))
		}
	}))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Resolver:         resolver,
		ProductHandler:   products.NewHandler(logger, products.NewService(productRepo)),
		CategoryHandler:  categories.NewHandler(logger, categories.NewService(categoryRepo)),
		StockHandler:     stocks.NewHandler(logger, stocks.NewService(stockRepo)),
		OrderHandler:     orders.NewHandler(logger, orderService),
		MemberHandler:    members.NewHandler(logger, members.NewService(memberRepo)),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
