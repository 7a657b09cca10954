// cmd/historian is an asynchronous service that pops committed action records from the Redis
// queue and archives them in PostgreSQL.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/stakes/internal/cache"
	"github.com/jason-s-yu/stakes/internal/config"
	"github.com/jason-s-yu/stakes/internal/database"
	"github.com/jason-s-yu/stakes/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	archive := database.NewActionLog(pool)
	if err := archive.EnsureSchema(ctx); err != nil {
		logger.Fatalf("database: %v", err)
	}

	queue, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisQueue)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer queue.Close()

	h := &historian.Historian{
		Source:     queue,
		Sink:       archive,
		Log:        logger,
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}
	if err := h.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("historian: %v", err)
	}
	logger.Info("historian shutdown complete")
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
