// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/stakes/internal/auth"
	"github.com/jason-s-yu/stakes/internal/cache"
	"github.com/jason-s-yu/stakes/internal/config"
	"github.com/jason-s-yu/stakes/internal/database"
	"github.com/jason-s-yu/stakes/internal/handlers"
	"github.com/jason-s-yu/stakes/internal/reaper"
	"github.com/jason-s-yu/stakes/internal/service"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		err = auth.InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenTTL)
	} else {
		logger.Warn("JWT key paths not set; generating an ephemeral key pair")
		err = auth.Init(cfg.TokenTTL)
	}
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using the in-memory store; state is lost on exit")
		st = store.NewMemory()
	default:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		docs := database.NewDocumentStore(pool)
		if err := docs.EnsureSchema(ctx); err != nil {
			logger.Fatalf("database: %v", err)
		}
		st = docs
	}

	var bus cache.Bus = cache.NewLocal()
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisQueue)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		bus = rdb
	} else {
		logger.Warn("REDIS_ADDR not set; updates stay in this process and nothing reaches the historian")
	}

	fees := cfg.Fees
	svc := service.New(st, logger, service.Options{
		Fees:   &fees,
		Admins: cfg.Admins,
		Bus:    bus,
	})

	r := &reaper.Reaper{
		Store:        st,
		Games:        svc,
		Log:          logger,
		Interval:     cfg.ReaperInterval,
		WaitingTTL:   cfg.WaitingTTL,
		AbandonedTTL: cfg.AbandonedTTL,
		Concurrency:  cfg.ReaperConcurrency,
	}
	go func() {
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("reaper exited")
		}
	}()

	h := handlers.New(svc, logger, auth.AuthenticateJWT, handlers.HMACVerifier{Secret: []byte(cfg.PaymentWebhookSecret)})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("server shutdown")
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
