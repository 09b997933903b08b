package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/adapters/eventbus"
	"github.com/IANDYI/tracking-sync/internal/adapters/metrics"
	"github.com/IANDYI/tracking-sync/internal/adapters/repository"
	"github.com/IANDYI/tracking-sync/internal/config"
	"github.com/IANDYI/tracking-sync/internal/connection"
	"github.com/IANDYI/tracking-sync/internal/core/services"
)

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer logger.Sync()

	ctx := context.Background()
	policy := connection.RetryPolicy{
		MaxAttempts:      cfg.ConnectRetries,
		Interval:         cfg.ConnectInterval,
		FallbackInterval: cfg.FallbackInterval,
	}

	// Store connection. If the store is down at boot the manager keeps
	// retrying in the background.
	store := connection.NewStoreManager(cfg.DatabaseURL, policy, logger)
	store.OnStateChange(func(state connection.State) {
		if state == connection.StateConnected {
			metrics.ConnectionUp.WithLabelValues("store").Set(1)
		} else {
			metrics.ConnectionUp.WithLabelValues("store").Set(0)
		}
	})
	// The schema bootstrap re-runs on every reconnect until one pass
	// succeeds, so a connection lost mid-bootstrap is retried instead of
	// abandoned.
	store.RunOnConnect(func(db *sql.DB) error {
		if err := config.InitDatabase(db, logger); err != nil {
			logger.Error("database bootstrap failed", zap.Error(err))
			return err
		}
		return nil
	})
	if err := store.Connect(ctx); err != nil {
		logger.Warn("store not reachable yet, continuing with background retry", zap.Error(err))
	}
	defer store.Dispose()

	// Repositories share the store manager; each owns its own breaker.
	activityRepo := repository.NewActivityRepository(store, logger)
	sleepRepo := repository.NewSleepRepository(store, logger)
	weightRepo := repository.NewWeightRepository(store, logger)
	bodyFatRepo := repository.NewBodyFatRepository(store, logger)
	logRepo := repository.NewLogRepository(store, logger)
	environmentRepo := repository.NewEnvironmentRepository(store, logger)

	// Broker connection with its own retry policy.
	busOpts := eventbus.Options{
		Retries:             cfg.ConnectRetries,
		Interval:            cfg.ConnectInterval,
		ReceiveFromYourself: cfg.ReceiveFromYourself,
	}
	if cfg.RabbitMQCAPath != "" {
		tlsConfig, err := eventbus.NewTLSConfig(cfg.RabbitMQCAPath)
		if err != nil {
			logger.Fatal("failed to load broker CA bundle", zap.Error(err))
		}
		busOpts.TLS = tlsConfig
	}

	bus := eventbus.NewClient(logger)
	if err := bus.Initialize(ctx, cfg.RabbitMQURL, busOpts); err != nil {
		logger.Warn("broker not reachable yet, continuing with background retry", zap.Error(err))
	}
	bus.OnStateChange(func(state connection.State) {
		if state == connection.StateConnected {
			metrics.ConnectionUp.WithLabelValues("broker").Set(1)
		} else {
			metrics.ConnectionUp.WithLabelValues("broker").Set(0)
		}
	})
	if bus.State() == connection.StateConnected {
		metrics.ConnectionUp.WithLabelValues("broker").Set(1)
	}
	defer bus.Dispose()

	task := services.NewSubscribeTask(bus, activityRepo, sleepRepo, weightRepo,
		bodyFatRepo, logRepo, environmentRepo, logger)
	if err := task.Run(); err != nil {
		logger.Fatal("failed to start subscribe task", zap.Error(err))
	}

	// Observability endpoints; no authenticated API surface here.
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("tracking sync service listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	if err := task.Stop(); err != nil {
		logger.Warn("subscribe task stop failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server forced to shut down", zap.Error(err))
	}

	logger.Info("service exited")
}
