package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetrack/internal/amqp"
	"expensetrack/internal/backend"
	"expensetrack/internal/cache"
	"expensetrack/internal/cli"
	apphttp "expensetrack/internal/http"
	applog "expensetrack/internal/log"
	"expensetrack/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelInfo, os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel(), os.Stdout)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()

	svcOpts := []services.Option{
		services.WithLocation(loc),
		services.WithLogger(logger),
	}
	srvOpts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
	}
	if pinger, ok := store.Backend.KV.(interface{ Ping(context.Context) error }); ok {
		srvOpts = append(srvOpts, apphttp.WithReadinessCheck("store", pinger.Ping))
	}

	// Change events are optional: the server keeps running without a broker.
	var listener *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			svcOpts = append(svcOpts, services.WithNotifier(client))
			srvOpts = append(srvOpts, apphttp.WithReadinessCheck("amqp", func(context.Context) error {
				return client.Ping()
			}))
			logger.Info("AMQP change events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

			// Events from the CLI and other servers invalidate cached summaries.
			if l, err := amqp.NewListener(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
				logger.Warn("AMQP listener unavailable", applog.FieldError, err)
			} else {
				defer l.Close()
				listener = l
			}
		}
	}

	// Other processes can write a shared store; cached summaries are only
	// safe when their change events reach this server.
	if !backend.BackendType(cfg.DataBackend).Shared() || listener != nil {
		summaryCache := cache.NewLRUCache[*services.SummaryView](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
		cacheManager := cache.NewManager(logger.Logger.With(applog.FieldComponent, applog.ComponentCache))
		cacheManager.Register(summaryCache)
		cacheManager.StartCleanup(time.Minute)
		defer cacheManager.Stop()
		svcOpts = append(svcOpts, services.WithSummaryCache(summaryCache))
	} else {
		logger.Info("Summary cache disabled: shared store without change events",
			applog.FieldBackend, cfg.DataBackend)
	}

	svc := services.NewExpenseService(store, svcOpts...)
	srv, err := apphttp.NewServer(":"+cfg.Port, svc, srvOpts...)
	if err != nil {
		return err
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expensetrack server",
			"port", cfg.Port, applog.FieldBackend, cfg.DataBackend, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if listener != nil {
		g.Go(func() error {
			if err := listener.ConsumeChanges(gctx, svc.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := cli.ShutdownContext(30 * time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
