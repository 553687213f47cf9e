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

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/app"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/observability"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/partners"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/cache"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/db"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/products"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/reports"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/sales"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/vouchers"
	"github.com/fikrimamdouh/ElectronAccount-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	taxRate, err := cfg.TaxRate()
	if err != nil {
		logger.Error("parse tax rate", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	balances := ledger.NewMaintainer()
	poster := ledger.NewPoster(balances)

	ledgerStore := ledger.NewStore(dbpool)
	ledgerService := ledger.NewService(ledgerStore, poster, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, metrics)

	partnersRepo := partners.NewRepository(dbpool)
	partnersService := partners.NewService(partnersRepo, balances, logger)
	partnersHandler := partners.NewHandler(logger, partnersService)

	productsRepo := products.NewRepository(dbpool)
	productsService := products.NewService(productsRepo)
	productsHandler := products.NewHandler(logger, productsService)

	reportsRepo := reports.NewRepository(dbpool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache, logger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, poster, balances, taxRate, logger)
	salesHandler := sales.NewHandler(logger, salesService, reportsService, metrics)

	vouchersRepo := vouchers.NewRepository(dbpool)
	vouchersService := vouchers.NewService(vouchersRepo, poster, balances, logger)
	vouchersHandler := vouchers.NewHandler(logger, vouchersService, reportsService, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		LedgerHandler:   ledgerHandler,
		PartnersHandler: partnersHandler,
		ProductsHandler: productsHandler,
		SalesHandler:    salesHandler,
		VouchersHandler: vouchersHandler,
		ReportsHandler:  reportsHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
