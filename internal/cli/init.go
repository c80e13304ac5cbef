// Package cli provides the start-up and shutdown plumbing shared by
// cmd/kakeibo and cmd/kakeibo-worker.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/config"
	applog "kakeibo/internal/log"
)

// SetupLogger builds the process logger at the given level and installs it
// as the slog default. An unknown level falls back to info with a warning.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	lvl, err := applog.ParseLevel(level)
	cfg.Level = lvl

	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it
// does not validate.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Service is a long running part of a process. Start blocks until the
// service ends or ctx is cancelled. Stop, when set, is called once during
// shutdown with a deadline.
type Service struct {
	Name  string
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}

// Run starts every service in an errgroup and waits. SIGINT, SIGTERM,
// cancellation of ctx, or the first service error trigger shutdown, which
// stops services in reverse order within timeout.
func Run(ctx context.Context, logger *applog.Logger, timeout time.Duration, services ...Service) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		g.Go(func() error {
			logger.Info("Starting service", "service", svc.Name)
			err := svc.Start(gctx)
			if isCleanExit(err) {
				return nil
			}
			logger.Error("Service failed", "service", svc.Name, "error", err)
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		for i := len(services) - 1; i >= 0; i-- {
			svc := services[i]
			if svc.Stop == nil {
				continue
			}
			if err := svc.Stop(shutdownCtx); err != nil {
				logger.Error("Service shutdown error", "service", svc.Name, "error", err)
				errs = append(errs, err)
			}
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	if err == nil {
		logger.Info("Shutdown complete")
	}
	return err
}

func isCleanExit(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, http.ErrServerClosed)
}

// Server is satisfied by *http.Server and types embedding it.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs srv until shutdown.
func HTTPService(srv Server) Service {
	return Service{
		Name:  "http",
		Start: func(context.Context) error { return srv.ListenAndServe() },
		Stop:  srv.Shutdown,
	}
}
