// Package backend assembles the persistence and messaging pieces selected by
// configuration: the key/value store behind the transaction list, the optional
// AMQP publisher, and the mirror the worker writes to.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/config"
	"kakeibo/internal/services"
	"kakeibo/internal/sheets"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/sheets/memory"
	"kakeibo/internal/storage"
)

type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	return t == SQLiteBackend || t == MemoryBackend
}

// Budget holds everything the web server needs for transactions.
type Budget struct {
	Type      Type
	KV        storage.KV
	Store     *storage.TransactionStore
	Service   *services.BudgetService
	Publisher *amqp.Client
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the storage backend. Stores without a connection always pass.
func (b *Budget) Ping(ctx context.Context) error {
	if p, ok := b.KV.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the publisher and the store.
func (b *Budget) Close() error {
	var errs []error
	if b.Publisher != nil {
		errs = append(errs, b.Publisher.Close())
	}
	if b.KV != nil {
		errs = append(errs, b.KV.Close())
	}
	return errors.Join(errs...)
}

// Factory builds backends from the application config.
type Factory struct {
	logger *slog.Logger

	// overridable in tests
	newPublisher func(url, exchange, queue string) (*amqp.Client, error)
	newMirror    func(ctx context.Context) (sheets.TransactionMirror, error)
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		logger:       logger,
		newPublisher: amqp.NewClient,
		newMirror: func(ctx context.Context) (sheets.TransactionMirror, error) {
			return gsheet.NewFromEnv(ctx)
		},
	}
}

// CreateBudget opens the configured store and, when AMQP_URL is set, the
// event publisher. A publisher that cannot connect is logged and skipped.
func (f *Factory) CreateBudget(cfg *config.Config) (*Budget, error) {
	if cfg == nil {
		return nil, errors.New("app config is nil")
	}
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	var kv storage.KV
	switch t {
	case SQLiteBackend:
		sqliteKV, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend",
			"db_path", cfg.SQLiteDBPath,
			"schema_version", sqliteKV.SchemaVersion())
		kv = sqliteKV
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		kv = storage.NewMemoryKV()
	}

	b := &Budget{Type: t, KV: kv, Store: storage.NewTransactionStore(kv, cfg.StorageKey)}

	if cfg.PublishingEnabled() {
		client, err := f.newPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			b.Publisher = client
		}
	}

	// a typed nil would pass the service's nil check
	if b.Publisher != nil {
		b.Service = services.NewBudgetService(b.Store, b.Publisher)
	} else {
		b.Service = services.NewBudgetService(b.Store, nil)
	}
	return b, nil
}

// CreateMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-process mirror otherwise.
func (f *Factory) CreateMirror(ctx context.Context, cfg *config.Config) (sheets.TransactionMirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		f.logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
		return memory.New(), nil
	}
	m, err := f.newMirror(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets mirror: %w", err)
	}
	f.logger.Info("Initialized Google Sheets mirror",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return m, nil
}
