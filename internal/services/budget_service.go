package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// Publisher receives an event after every successful write.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.TransactionEvent) error
}

// MonthReport is everything the budget page shows for one month.
type MonthReport struct {
	Year         int
	Month        int
	Transactions []core.Transaction
	Summary      core.MonthlySummary
	Income       []core.CategoryBreakdown
	Expense      []core.CategoryBreakdown
}

// BudgetService orchestrates transaction writes across the store and the
// event publisher.
type BudgetService struct {
	store     *storage.TransactionStore
	publisher Publisher
}

// NewBudgetService builds the service. publisher may be nil.
func NewBudgetService(store *storage.TransactionStore, publisher Publisher) *BudgetService {
	return &BudgetService{store: store, publisher: publisher}
}

func (s *BudgetService) Create(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	tx, err := s.store.Add(ctx, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	s.publish(ctx, amqp.EventCreated, tx)
	return tx, nil
}

func (s *BudgetService) Update(ctx context.Context, id string, p core.TransactionPatch) (core.Transaction, error) {
	tx, err := s.store.Update(ctx, id, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	s.publish(ctx, amqp.EventUpdated, tx)
	return tx, nil
}

// Delete removes a transaction. Unknown ids succeed without an event.
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	tx, found, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if found {
		s.publish(ctx, amqp.EventDeleted, tx)
	}
	return nil
}

func (s *BudgetService) All(ctx context.Context) []core.Transaction {
	return s.store.All(ctx)
}

func (s *BudgetService) Get(ctx context.Context, id string) (core.Transaction, error) {
	for _, tx := range s.store.All(ctx) {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, storage.ErrNotFound
}

// MonthReport returns the month's transactions, newest first, with their
// summary and category breakdowns.
func (s *BudgetService) MonthReport(ctx context.Context, year, month int) MonthReport {
	txs := s.store.ByMonth(ctx, year, month)
	return MonthReport{
		Year:         year,
		Month:        month,
		Transactions: core.SortByDateDesc(txs),
		Summary:      core.CalculateMonthlySummary(txs),
		Income:       core.CalculateCategoryBreakdown(txs, core.Income),
		Expense:      core.CalculateCategoryBreakdown(txs, core.Expense),
	}
}

func (s *BudgetService) publish(ctx context.Context, kind amqp.EventKind, tx core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "kind", kind, "id", tx.ID)
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewTransactionEvent(kind, tx)); err != nil {
		// the write already succeeded
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind,
			"id", tx.ID,
			"error", err)
	}
}

// IsValidationError reports whether err comes from rejected user input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidType,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrEmptyCategory,
		core.ErrUnknownCategory,
		core.ErrDescriptionLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
