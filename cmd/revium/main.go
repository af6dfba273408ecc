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

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/app"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/auth"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/departments"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/notifications"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/observability"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/platform/cache"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/platform/db"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/rbac"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/roles"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/tasks"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/users"
	"github.com/aysenur-23/revium-erp-suite-sub006/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "revium_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	permissionCache := authz.NewCache(authz.NewRepository(dbpool), logger, cfg.PermissionFetchTimeout)
	resolver := authz.NewResolver(permissionCache, logger, metrics)
	invalidator := authz.NewInvalidator(redisClient, permissionCache, logger)
	go func() {
		if err := invalidator.Listen(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("permission invalidation listener stopped", slog.Any("error", err))
		}
	}()

	rbacMiddleware := rbac.Middleware{Resolver: resolver, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)

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

	notificationRepo := notifications.NewRepository(dbpool)
	notificationService := notifications.NewService(notificationRepo)
	dispatcher := notifications.NewDispatcher(notificationRepo, jobClient, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationService, rbacMiddleware)

	departmentService := departments.NewService(departments.NewRepository(dbpool))
	departmentsHandler := departments.NewHandler(logger, departmentService, rbacMiddleware)

	taskService := tasks.NewService(tasks.NewRepository(dbpool), resolver, departmentService, logger, tasks.ServiceConfig{
		Approvals: approvalRecorder,
		Audit:     auditLogger,
		Notifier:  dispatcher,
		Observer:  metrics,
	})
	tasksHandler := tasks.NewHandler(logger, taskService, rbacMiddleware)

	userService := users.NewService(users.NewRepository(dbpool), invalidator)
	usersHandler := users.NewHandler(logger, userService, rbacMiddleware)

	roleService := roles.NewService(roles.NewRepository(dbpool), invalidator)
	rolesHandler := roles.NewHandler(logger, roleService, rbacMiddleware)

	permissionsHandler := rbac.NewPermissionsHandler(logger, resolver, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		Profiles:             authService,
		AuthHandler:          authHandler,
		TasksHandler:         tasksHandler,
		UsersHandler:         usersHandler,
		DepartmentsHandler:   departmentsHandler,
		RolesHandler:         rolesHandler,
		NotificationsHandler: notificationsHandler,
		PermissionsHandler:   permissionsHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
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
