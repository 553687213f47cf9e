package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/app"
	jobmetrics "github.com/fikrimamdouh/ElectronAccount-sub000/internal/jobs"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/cache"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/platform/db"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/reports"
	"github.com/fikrimamdouh/ElectronAccount-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache, logger)

	jobMetrics := jobmetrics.NewMetrics(nil)
	integrityJob := jobs.NewLedgerIntegrityJob(pool, logger, jobMetrics)
	warmupJob := jobs.NewDashboardWarmupJob(reportsService, logger, jobMetrics)

	scanTask, err := jobs.NewIntegrityScanTask(jobs.IntegrityScanPayload{})
	if err != nil {
		logger.Error("build integrity scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Integrity: integrityJob,
		Warmup:    warmupJob,
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/15 * * * *", Task: jobs.NewDashboardWarmupTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
