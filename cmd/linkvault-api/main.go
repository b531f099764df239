package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/linkvault-api/api/swagger"
	"github.com/noah-isme/linkvault-api/internal/handler"
	"github.com/noah-isme/linkvault-api/internal/repository"
	"github.com/noah-isme/linkvault-api/internal/router"
	"github.com/noah-isme/linkvault-api/internal/service"
	"github.com/noah-isme/linkvault-api/pkg/cache"
	"github.com/noah-isme/linkvault-api/pkg/config"
	"github.com/noah-isme/linkvault-api/pkg/database"
	"github.com/noah-isme/linkvault-api/pkg/jobs"
	"github.com/noah-isme/linkvault-api/pkg/logger"
	"github.com/noah-isme/linkvault-api/pkg/security"
	"github.com/noah-isme/linkvault-api/pkg/storage"
)

// @title LinkVault API
// @version 1.0.0
// @description Secret links for text snippets and files with expiry, passwords and view limits.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var cacheClient redis.UniversalClient
	if redisClient != nil {
		defer redisClient.Close()
		cacheClient = redisClient
	}

	payloads, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init payload store: %w", err)
	}

	publicURL := cfg.BaseURL + cfg.APIPrefix
	metrics := service.NewMetricsService()
	hasher := security.ScryptHasher{}
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	shareRepo := repository.NewShareRepository(db)
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(cacheClient), metrics, cfg.Cache.StatsTTL, logr, cacheClient != nil)

	cleaner := service.NewPayloadCleaner(payloads, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
	})

	authSvc := service.NewAuthService(userRepo, hasher, validate, cacheSvc, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiry:     cfg.JWT.Expiration,
		Issuer:     "linkvault-api",
		AdminEmail: cfg.Admin.Email,
	})
	shareSvc := service.NewShareService(shareRepo, payloads, cleaner, hasher, cacheSvc, metrics, logr, service.ShareConfig{
		PublicURL:     publicURL,
		DefaultExpiry: time.Duration(cfg.Shares.DefaultExpiryMinutes) * time.Minute,
		MaxFileSize:   cfg.Shares.MaxFileSizeBytes,
	})
	moderationSvc := service.NewModerationService(shareRepo, validate, logr, publicURL)
	adminSvc := service.NewAdminService(userRepo, shareRepo, cacheSvc, logr, service.AdminConfig{
		PublicURL: publicURL,
		StatsTTL:  cfg.Cache.StatsTTL,
	})
	reaper := service.NewReaperService(shareRepo, cleaner, cacheSvc, metrics, logr, service.ReaperConfig{
		Interval:  cfg.Shares.ReaperInterval,
		BatchSize: cfg.Shares.ReaperBatchSize,
	})

	if err := authSvc.EnsureAdmin(ctx, service.AdminAccount{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	readiness := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Authenticator:  authSvc,
		Auth:           handler.NewAuthHandler(authSvc),
		Shares:         handler.NewShareHandler(shareSvc, moderationSvc, cfg.Shares.MaxFileSizeBytes),
		Admin:          handler.NewAdminHandler(adminSvc, moderationSvc),
		Observer:       handler.NewMetricsHandler(metrics, readiness),
	})

	cleaner.Start(ctx)
	defer cleaner.Stop()
	reaper.Start(ctx)
	defer reaper.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
