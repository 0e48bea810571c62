package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"expensetrack/internal/amqp"
	"expensetrack/internal/cli"
	"expensetrack/internal/export"
	applog "expensetrack/internal/log"
	"expensetrack/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Worker error", applog.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelInfo, os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel(), os.Stdout)

	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the report worker")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	logger.Info("Starting report-worker", "report_dir", cfg.ReportDir, applog.FieldBackend, cfg.DataBackend)

	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewReportWorker(store, export.New(cfg.ReportDir), loc, logger)

	// Catch up on changes made while the worker was down.
	if err := w.StartupSnapshot(ctx); err != nil {
		logger.Error("Startup snapshot failed", applog.FieldError, err)
	}

	err = client.ConsumeChanges(ctx, w.HandleChange)
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
		logger.Info("Worker shutdown complete")
		return nil
	}
	return err
}
