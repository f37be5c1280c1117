package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corvelia/finrag/internal/bootstrap"
	"github.com/corvelia/finrag/internal/config"
	"github.com/corvelia/finrag/internal/observability/logging"
	"github.com/corvelia/finrag/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeChunkBatch(ctx, func(handlerCtx context.Context, batchID string) error {
		ingestCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartBatch()
		start := time.Now()
		report, err := app.IngestUC.IngestBatch(ingestCtx, batchID)
		workerMetrics.FinishBatch("worker", time.Since(start), err)

		if report != nil {
			workerMetrics.RecordIndexed("worker", "all", report.Indexed)
			workerMetrics.RecordRejected("worker", "all", len(report.Rejected))
			slog.Info("batch_ingested",
				"batch_id", report.BatchID,
				"indexed", report.Indexed,
				"rejected", len(report.Rejected),
			)
		}
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
