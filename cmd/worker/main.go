package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/renewtrack/renewtrack/internal/app"
	"github.com/renewtrack/renewtrack/internal/dashboard"
	"github.com/renewtrack/renewtrack/internal/insights"
	"github.com/renewtrack/renewtrack/internal/platform/cache"
	"github.com/renewtrack/renewtrack/internal/platform/db"
	"github.com/renewtrack/renewtrack/jobs"
)

// warmupCron refreshes the unfiltered narrative hourly.
const warmupCron = "0 * * * *"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if !cfg.InsightsEnabled() {
		logger.Error("worker requires INSIGHT_URL, nothing to warm")
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	} else {
		redisClient = client
		defer func() { _ = redisClient.Close() }()
	}

	dashboardService := dashboard.NewService(dashboard.NewRepository(pool))
	insightClient := insights.NewClient(cfg.InsightURL, cfg.InsightAPIKey, cfg.InsightTimeout)
	insightService := insights.NewService(insightClient, redisClient, cfg.InsightCacheTTL, logger)

	warmup := jobs.NewInsightsWarmupJob(dashboardService, insightService, logger)

	warmupTask, err := jobs.NewInsightsWarmupTask(jobs.InsightsWarmupPayload{Scope: "all"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	// Warm the unfiltered narrative immediately instead of waiting for the
	// first cron tick.
	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = queue.Close() }()
	if _, err := queue.EnqueueInsightsWarmup(ctx, jobs.InsightsWarmupPayload{Scope: "startup"}); err != nil {
		logger.Warn("enqueue startup warmup", slog.Any("error", err))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInsightsWarmup, Handler: warmup.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: warmupCron, Task: warmupTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
