package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/4lch4/repo-feed/internal/config"
	"github.com/4lch4/repo-feed/internal/database"
	"github.com/4lch4/repo-feed/internal/logger"
	"github.com/4lch4/repo-feed/internal/metrics"
	"github.com/4lch4/repo-feed/internal/server"
	"github.com/4lch4/repo-feed/internal/simulator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Options{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		FilePath: cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	gin.SetMode(cfg.GinMode)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := buildStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize event store", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zl.Error("close event store", zap.Error(err))
		}
	}()

	srv := server.New(server.Options{
		DB:           db,
		Simulator:    simulator.NewClient(cfg.SimulatorURL(), cfg.DeliveryTimeout, zl.Named("simulator")),
		Logger:       zl,
		PollInterval: cfg.FeedPollInterval,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zl.Info("starting HTTP server",
			zap.String("addr", httpServer.Addr),
			zap.String("simulator_target", cfg.SimulatorURL()),
			zap.Bool("feed_cache", cfg.UseRedisCache()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
		return
	}
	zl.Info("server shutdown complete")
}

// buildStore opens the database and, when Redis is configured, layers the
// feed cache on top of it.
func buildStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (database.Service, error) {
	db, err := database.Open(ctx, cfg.DatabaseURL, zl.Named("database"))
	if err != nil {
		return nil, err
	}
	if !cfg.UseRedisCache() {
		return db, nil
	}

	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	zl.Info("feed cache enabled", zap.String("prefix", cfg.CachePrefix), zap.Duration("ttl", cfg.CacheTTL))
	return database.WithFeedCache(db, rdb, cfg.CachePrefix, cfg.CacheTTL, zl.Named("cache")), nil
}
