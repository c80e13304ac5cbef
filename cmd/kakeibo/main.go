package main

import (
	"context"
	"os"
	"time"

	"kakeibo/internal/backend"
	"kakeibo/internal/cli"
	apphttp "kakeibo/internal/http"
	applog "kakeibo/internal/log"
	"kakeibo/internal/todo"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	budget, err := backend.NewFactory(logger.Logger).CreateBudget(cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := budget.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		TrustedProxies:     cfg.TrustedProxies,
		Ready:              budget.Ping,
	}, budget.Service, todo.NewBoard())
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting kakeibo server",
		"addr", cfg.Addr(),
		"backend", cfg.DataBackend,
		"publishing", budget.Publisher != nil)

	if err := cli.Run(context.Background(), logger, shutdownTimeout, cli.HTTPService(srv)); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err)
		// os.Exit skips deferred calls
		_ = budget.Close()
		os.Exit(1)
	}
}
