package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/cron"
	"github.com/noah-isme/sisacad-enrollment/internal/repository"
	"github.com/noah-isme/sisacad-enrollment/internal/service"
	"github.com/noah-isme/sisacad-enrollment/pkg/cache"
	"github.com/noah-isme/sisacad-enrollment/pkg/config"
	"github.com/noah-isme/sisacad-enrollment/pkg/database"
	"github.com/noah-isme/sisacad-enrollment/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	metricsAddr := flag.String("metrics-addr", ":9091", "listen address for /metrics (empty disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	logr = logr.With(zap.String("service", "sweeper"))

	if err := run(cfg, logr, *once, *metricsAddr); err != nil {
		for _, e := range multierr.Errors(err) {
			logr.Error("sweeper stopped with error", zap.Error(e))
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config, logr *zap.Logger, once bool, metricsAddr string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	metrics := service.NewMetricsService()
	sweeper := service.NewSweepService(service.NewTxRunner(repository.NewTxManager(db)), metrics, logr)

	job, err := cron.NewSweepJob(sweeper)
	if err != nil {
		return err
	}

	var lock cron.Lock = &cron.LocalLock{}
	redisClient, redisErr := cache.NewRedis(ctx, cfg.Redis)
	if redisErr != nil {
		logr.Warn("redis unavailable, sweeping without a cross-replica lock", zap.Error(redisErr))
	} else {
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		redisLock, lockErr := cron.NewRedisClientLock(redisClient, cfg.Sweeper.LockKey, cfg.Sweeper.LockTTL)
		if lockErr != nil {
			return fmt.Errorf("create sweeper lock: %w", lockErr)
		}
		lock = redisLock
	}

	svc, err := cron.NewService(cron.ServiceParams{
		Logger:   logr,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
		Metrics:  cron.NewJobMetrics(metrics.Registerer()),
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	if once {
		return svc.RunOnce(ctx)
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logr.Error("metrics server failed", zap.Error(serveErr))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		}()
	}

	logr.Info("sweeper starting", zap.Duration("interval", cfg.Sweeper.Interval), zap.String("lock_key", cfg.Sweeper.LockKey))
	if runErr := svc.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logr.Info("sweeper shutting down gracefully")
	return nil
}
