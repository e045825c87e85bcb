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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cloudsaver/cloudsaver/internal/auth"
	"github.com/cloudsaver/cloudsaver/internal/config"
	"github.com/cloudsaver/cloudsaver/internal/contacts"
	"github.com/cloudsaver/cloudsaver/internal/docstore"
	"github.com/cloudsaver/cloudsaver/internal/handlers"
	"github.com/cloudsaver/cloudsaver/internal/mail"
	appmw "github.com/cloudsaver/cloudsaver/internal/middleware"
	"github.com/cloudsaver/cloudsaver/internal/security"
	"github.com/cloudsaver/cloudsaver/internal/users"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("connect to database failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("ping database failed", slog.Any("error", err))
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("parse REDIS_URL failed", slog.Any("error", err))
			os.Exit(1)
		}
		redisClient = redis.NewClient(opt)
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed, live updates and mail queue disabled", slog.Any("error", err))
			redisClient = nil
		}
	}

	store := docstore.NewPostgres(pool, redisClient, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("ensure schema failed", slog.Any("error", err))
		os.Exit(1)
	}

	var mailer users.Mailer
	var mailWorker *mail.Worker
	if redisClient != nil {
		opt, _ := redis.ParseURL(cfg.Redis.URL)
		redisOpt := asynq.RedisClientOpt{Addr: opt.Addr, Password: opt.Password, DB: opt.DB}
		enqueuer := mail.NewEnqueuer(redisOpt, logger)
		defer func() { _ = enqueuer.Close() }()
		mailer = enqueuer
		mailWorker = mail.NewWorker(redisOpt, logger)
		go func() {
			if err := mailWorker.Run(); err != nil {
				logger.Warn("mail worker stopped", slog.Any("error", err))
			}
		}()
	} else {
		mailer = mail.NewNoopEnqueuer(logger)
	}

	hasher := security.NewHasher(cfg.Argon2.Memory, cfg.Argon2.Iterations, cfg.Argon2.Parallelism)
	userService := users.NewService(store, hasher, mailer, logger)
	contactService := contacts.NewService(store, logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.Use(echomw.Recover())
	e.Use(appmw.Metrics())

	requireAuth := auth.JWTMiddleware(cfg.JWT.Secret, nil)
	handlers.NewAuthHandler(userService, cfg.JWT.Secret, cfg.JWT.Expiry).Register(e)
	handlers.NewProfileHandler(userService).Register(e, requireAuth)
	handlers.NewContactsHandler(contactService).Register(e, requireAuth)
	handlers.NewHealthHandler(pool, redisClient).Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		logger.Info("server listening", slog.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if mailWorker != nil {
		mailWorker.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
}
