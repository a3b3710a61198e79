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

	"github.com/joho/godotenv"

	"github.com/kirillkom/vault-quizbot/internal/bootstrap"
	"github.com/kirillkom/vault-quizbot/internal/config"
	"github.com/kirillkom/vault-quizbot/internal/observability/logging"
	"github.com/kirillkom/vault-quizbot/internal/observability/metrics"
)

const indexJobTimeout = 30 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))
	if cfg.NATSURL == "" {
		slog.Error("worker_config_error", "error", "NATS_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Observer:     workerMetrics.Pipeline(),
		ConnectQueue: true,
		OnQueueLag: func(lag time.Duration) {
			workerMetrics.ObserveQueueLag("worker", lag)
		},
	})
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "collection", cfg.Collection)
	err = app.Queue.SubscribeIndexRequested(ctx, func(handlerCtx context.Context, collection string) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, indexJobTimeout)
		defer cancel()

		workerMetrics.StartJob()
		started := time.Now()
		_, err := app.IndexUC.IndexVault(jobCtx, collection)
		workerMetrics.FinishJob("worker", time.Since(started), err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_error", "error", err)
		os.Exit(1)
	}
}
