package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"tally/internal/amqp"
	"tally/internal/backend"
	"tally/internal/cache"
	"tally/internal/cli"
	apphttp "tally/internal/http"
	"tally/internal/ledger"
	"tally/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("server")

	logger.Info("Starting tally server")

	cfg := cli.LoadAndValidateConfig(logger)

	result, err := backend.Create(backend.Config{
		Type:         backend.Type(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
	}, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer result.Cleanup()

	// Event publishing is optional: without an AMQP URL the ledger still
	// works, only snapshot maintenance is skipped.
	var events ledger.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			events = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	mirror := session.NewStore(cfg.CacheMaxEntries, cfg.CacheTTL)
	svc := ledger.NewService(result.Gateway, events, mirror)

	caches := cache.NewManager()
	caches.Register(mirror)
	caches.StartCleanup(cfg.CacheTTL)
	defer caches.Stop()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		AllowedOrigins:    cfg.AllowedOrigins,
		RequestsPerMinute: 120,
		SpendingWarnRatio: cfg.SpendingWarnRatio,
	}, svc)

	ctx, stop := cli.SignalContext()
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting HTTP server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
