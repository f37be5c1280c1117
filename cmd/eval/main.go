package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvelia/finrag/internal/bootstrap"
	"github.com/corvelia/finrag/internal/config"
	"github.com/corvelia/finrag/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("eval", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	report, err := app.EvaluateUC.EvaluateAll(ctx)
	if err != nil {
		slog.Error("evaluation_failed", "error", err)
		os.Exit(1)
	}

	slog.Info("evaluation_finished",
		"run_id", report.RunID,
		"examples", report.Examples,
		"failed", report.Failed,
	)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		slog.Error("report_encode_failed", "error", err)
		os.Exit(1)
	}
}
