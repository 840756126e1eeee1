package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fixflow-app/fixflow/internal/app"
	"github.com/fixflow-app/fixflow/internal/auth"
	jobmetrics "github.com/fixflow-app/fixflow/internal/jobs"
	"github.com/fixflow-app/fixflow/internal/platform/db"
	"github.com/fixflow-app/fixflow/internal/shared"
	"github.com/fixflow-app/fixflow/jobs"
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

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	auditLogger := shared.NewAuditLogger(pool)

	metrics := jobmetrics.NewMetrics(nil)
	sessionsJob := jobs.SessionsCleanupJob{Auth: authService, Logger: logger, Metrics: metrics}
	auditJob := jobs.AuditRetentionJob{Audit: auditLogger, Logger: logger, Metrics: metrics}

	sessionsTask, err := jobs.NewSessionsCleanupTask(time.Time{})
	if err != nil {
		logger.Error("build sessions cleanup task", slog.Any("error", err))
		os.Exit(1)
	}
	auditTask, err := jobs.NewAuditRetentionTask(cfg.AuditRetention)
	if err != nil {
		logger.Error("build audit retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsCleanup, Handler: sessionsJob.Handle},
			{Type: jobs.TaskAuditRetention, Handler: auditJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: sessionsTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
