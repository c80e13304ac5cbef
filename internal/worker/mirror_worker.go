package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/sheets"
)

// TransactionSource lists the current transactions for a full reconcile.
type TransactionSource interface {
	All(ctx context.Context) []core.Transaction
}

// MirrorWorker applies transaction events to an external mirror.
type MirrorWorker struct {
	mirror sheets.TransactionMirror

	processed atomic.Int64
	failed    atomic.Int64
}

func NewMirrorWorker(mirror sheets.TransactionMirror) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleEvent mirrors one event. A returned error asks for redelivery.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	var err error
	switch ev.Kind {
	case amqp.EventCreated, amqp.EventUpdated:
		err = w.mirror.Upsert(ctx, ev.Transaction)
	case amqp.EventDeleted:
		err = w.mirror.Remove(ctx, ev.Transaction.ID)
	default:
		slog.WarnContext(ctx, "Ignoring event with unknown kind", "kind", ev.Kind, "id", ev.Transaction.ID)
		return nil
	}
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("mirror %s %s: %w", ev.Kind, ev.Transaction.ID, err)
	}
	w.processed.Add(1)
	slog.InfoContext(ctx, "Mirrored transaction event",
		"kind", ev.Kind,
		"id", ev.Transaction.ID,
		"published_at", ev.Timestamp)
	return nil
}

// Reconcile upserts every transaction from src. It recovers from events
// lost while the worker was down; rows for deleted transactions are left.
func (w *MirrorWorker) Reconcile(ctx context.Context, src TransactionSource) error {
	txs := src.All(ctx)
	if len(txs) == 0 {
		slog.InfoContext(ctx, "No transactions to reconcile")
		return nil
	}

	slog.InfoContext(ctx, "Reconciling mirror", "count", len(txs))
	synced, errorCount := 0, 0
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror.Upsert(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile transaction", "id", tx.ID, "error", err)
			errorCount++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Reconcile completed",
		"total", len(txs),
		"synced", synced,
		"errors", errorCount)
	if errorCount > 0 {
		return fmt.Errorf("reconcile: %d of %d transactions failed", errorCount, len(txs))
	}
	return nil
}

// Stats returns the number of events mirrored and failed so far.
func (w *MirrorWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}
