package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sisacad-enrollment/api/swagger"
	"github.com/noah-isme/sisacad-enrollment/internal/handler"
	"github.com/noah-isme/sisacad-enrollment/internal/middleware"
	"github.com/noah-isme/sisacad-enrollment/internal/repository"
	"github.com/noah-isme/sisacad-enrollment/internal/service"
	"github.com/noah-isme/sisacad-enrollment/pkg/cache"
	"github.com/noah-isme/sisacad-enrollment/pkg/config"
	"github.com/noah-isme/sisacad-enrollment/pkg/database"
	"github.com/noah-isme/sisacad-enrollment/pkg/jobs"
	"github.com/noah-isme/sisacad-enrollment/pkg/logger"
	corsmiddleware "github.com/noah-isme/sisacad-enrollment/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sisacad-enrollment/pkg/middleware/requestid"
	"github.com/noah-isme/sisacad-enrollment/pkg/migrate"
)

// @title SISACAD Enrollment API
// @version 1.0.0
// @description Enrollment cart, seat reservations and confirmation
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	if err := migrate.MaybeAutoRun(ctx, cfg, logr, db.DB); err != nil {
		logr.Fatal("failed to run migrations", zap.Error(err))
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	readiness := []handler.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, offerings cache disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient)
		readiness = append(readiness, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	txManager := repository.NewTxManager(db)
	tx := service.NewTxRunner(txManager)

	attempts := service.NewAttemptService(repository.NewAttemptRepository(db), jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.Retries,
		RetryDelay: cfg.Audit.RetryDelay,
	}, metrics, logr)
	attempts.Start(ctx)

	capacity := service.NewCapacityService(tx, logr)
	reservations := service.NewReservationService(capacity, cfg.Enrollment.HoldDuration, metrics, logr)
	carts := service.NewCartService(tx, reservations, attempts, validator.New(), logr)
	confirmer := service.NewConfirmService(tx, capacity, attempts, metrics, logr)
	sweeper := service.NewSweepService(tx, metrics, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Enrollment.OfferingsCacheTTL, logr, cfg.Enrollment.CacheEnabled)
	catalog := service.NewCatalogService(repository.NewSectionRepository(db), cacheSvc, cfg.Enrollment.OfferingsCacheTTL, logr)
	tokens := service.NewTokenService(cfg.JWT.Secret)

	handlers := handler.Handlers{
		Catalog: handler.NewCatalogHandler(catalog, capacity),
		Cart:    handler.NewCartHandler(carts, confirmer, cfg.Enrollment.ActiveTermID),
		Admin:   handler.NewAdminHandler(attempts, sweeper),
		Metrics: handler.NewMetricsHandler(metrics, readiness...),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handlers.RegisterOps(r)
	handlers.Register(r.Group(cfg.APIPrefix), tokens)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	attempts.Stop()
	if redisClient != nil {
		shutdownErr = multierr.Append(shutdownErr, redisClient.Close())
	}
	shutdownErr = multierr.Append(shutdownErr, db.Close())
	if shutdownErr != nil {
		logr.Error("shutdown completed with errors", zap.Error(shutdownErr))
		return
	}
	logr.Info("shutdown complete")
}
