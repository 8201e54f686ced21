package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/account-api/internal/api/http"
	"github.com/spec-kit/account-api/internal/api/http/handlers"
	"github.com/spec-kit/account-api/internal/auth"
	"github.com/spec-kit/account-api/internal/config"
	"github.com/spec-kit/account-api/internal/events"
	"github.com/spec-kit/account-api/internal/observability"
	"github.com/spec-kit/account-api/internal/persistence"
	"github.com/spec-kit/account-api/internal/repository"
	"github.com/spec-kit/account-api/internal/service"
	"github.com/spec-kit/account-api/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.App, cfg.Tracing)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.DB(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var userRepo repository.UserRepository
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.DB())
	} else {
		userRepo = repository.NewMemoryUserRepository()
	}
	keyPrefix := redis.Prefix()
	denylist := repository.NewRedisTokenDenylist(redis.Client, keyPrefix)
	var limiter repository.LoginLimiter
	if cfg.RateLimit.PerMinute > 0 {
		limiter = repository.NewRedisLoginLimiter(redis.Client, keyPrefix, cfg.RateLimit.PerMinute, time.Minute)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, logger)

	userService := service.NewUserService(cfg.Auth, service.UserDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		BcryptCost: cfg.Auth.BcryptCost,
		UserRepo:   userRepo,
		Tokens:     tokens,
		Denylist:   denylist,
		Limiter:    limiter,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	if err := userService.EnsureSuperuser(ctx, cfg.Auth); err != nil {
		logger.Fatal("failed to create first superuser", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, denylist, logger)

	app := fiber.New(fiber.Config{
		AppName:           cfg.App.Name,
		EnablePrintRoutes: cfg.App.Debug,
		ErrorHandler:      httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, cfg, logger, metrics)

	dependencies := map[string]handlers.Pinger{"redis": redis}
	if pg.Enabled() {
		dependencies["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Prefix:         cfg.App.APIPrefix,
		Root:           handlers.NewRootHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env),
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: authMiddleware,
		Gatherer:       registry,
	})

	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer tracerCancel()
	if err := shutdownTracer(tracerCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
