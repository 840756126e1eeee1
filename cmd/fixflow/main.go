package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/fixflow-app/fixflow/internal/app"
	"github.com/fixflow-app/fixflow/internal/auth"
	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/observability"
	"github.com/fixflow-app/fixflow/internal/permcache"
	"github.com/fixflow-app/fixflow/internal/platform/cache"
	"github.com/fixflow-app/fixflow/internal/platform/db"
	"github.com/fixflow-app/fixflow/internal/shared"
	"github.com/fixflow-app/fixflow/internal/tickets"
	"github.com/fixflow-app/fixflow/internal/users"
	"github.com/fixflow-app/fixflow/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "fixflow_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)

	usersRepo := users.NewRepository(dbpool)
	engine := authz.NewEngine(usersRepo)
	pipeline := authz.Middleware{
		Engine: engine,
		Logger: logger,
		Audit:  app.AuditDenialRecorder{Audit: auditLogger, Logger: logger},
	}
	permissionsHandler := authz.NewHandler(logger, engine)

	permCache := permcache.NewCache(
		permcache.NewRedisStore(redisClient),
		permcache.FetcherFunc(engine.UserPermissions),
		permcache.WithTTL(cfg.PermCacheTTL),
		permcache.WithLogger(logger),
	)

	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, permCache)

	usersService := users.NewService(usersRepo, permCache, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, pipeline)

	ticketsRepo := tickets.NewRepository(dbpool)
	ticketsService := tickets.NewService(ticketsRepo)
	ticketsHandler := tickets.NewHandler(logger, ticketsService)

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
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobClient, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		TicketsHandler:     ticketsHandler,
		PermissionsHandler: permissionsHandler,
		JobsHandler:        jobsHandler,
		Pipeline:           pipeline,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
