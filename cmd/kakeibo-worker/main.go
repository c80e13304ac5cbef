package main

import (
	"context"
	"os"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/backend"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	applog "kakeibo/internal/log"
	"kakeibo/internal/storage"
	"kakeibo/internal/worker"
)

const (
	shutdownTimeout = 15 * time.Second
	statsInterval   = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)

	logger.Info("Starting kakeibo-worker")

	if !cfg.PublishingEnabled() {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx := context.Background()

	mirror, err := backend.NewFactory(logger.Logger).CreateMirror(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", applog.FieldError, err)
		os.Exit(1)
	}
	mw := worker.NewMirrorWorker(mirror)

	if cfg.ReconcileOnStart {
		if err := reconcile(ctx, cfg, mw); err != nil {
			// events still flow; the next start retries
			logger.Error("Startup reconcile failed", applog.FieldError, err)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("Failed to close AMQP client", applog.FieldError, err)
		}
	}()

	consumer := cli.Service{
		Name: "consumer",
		Start: func(ctx context.Context) error {
			return client.Consume(ctx, mw.HandleEvent)
		},
	}
	stats := cli.Service{
		Name: "stats",
		Start: func(ctx context.Context) error {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					processed, failed := mw.Stats()
					logger.Info("Mirror worker stats", "processed", processed, "failed", failed)
				}
			}
		},
	}

	if err := cli.Run(ctx, logger, shutdownTimeout, consumer, stats); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	processed, failed := mw.Stats()
	logger.Info("Worker stopped", "processed", processed, "failed", failed)
}

// reconcile pushes the persisted list to the mirror. Only the SQLite backend
// is shared with the web process, so a memory backend has nothing to read.
func reconcile(ctx context.Context, cfg *config.Config, mw *worker.MirrorWorker) error {
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		applog.FromContext(ctx).Warn("Reconcile skipped, backend is not shared", "backend", cfg.DataBackend)
		return nil
	}
	kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer kv.Close()
	return mw.Reconcile(ctx, storage.NewTransactionStore(kv, cfg.StorageKey))
}
