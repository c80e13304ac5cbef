package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"kakeibo/internal/core"
)

// DefaultKey is the key the transaction list is stored under.
const DefaultKey = "budget_transactions"

var ErrNotFound = errors.New("transaction not found")

// TransactionStore keeps the whole transaction list as one JSON array under a
// single key. Read-modify-write cycles are serialised.
type TransactionStore struct {
	kv    KV
	key   string
	mu    sync.Mutex
	newID func() string
}

func NewTransactionStore(kv KV, key string) *TransactionStore {
	if key == "" {
		key = DefaultKey
	}
	return &TransactionStore{kv: kv, key: key, newID: uuid.NewString}
}

// All returns every stored transaction. A missing key, read failure or
// malformed payload yields an empty list.
func (s *TransactionStore) All(ctx context.Context) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.load(ctx)
	if err != nil {
		return []core.Transaction{}
	}
	return txs
}

// load reads the stored list. Only a failed read is an error: writes must not
// replace a list they could not see.
func (s *TransactionStore) load(ctx context.Context) ([]core.Transaction, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read transactions", "key", s.key, "error", err)
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	if !ok || raw == "" {
		return []core.Transaction{}, nil
	}
	var txs []core.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		slog.ErrorContext(ctx, "Failed to decode transactions", "key", s.key, "error", err)
		return []core.Transaction{}, nil
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Save replaces the stored list.
func (s *TransactionStore) Save(ctx context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, txs)
}

func (s *TransactionStore) save(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode transactions", "error", err)
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		slog.ErrorContext(ctx, "Failed to save transactions", "key", s.key, "error", err)
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

// Add validates n, assigns a fresh id and appends it.
func (s *TransactionStore) Add(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := n.WithID(s.newID())
	if err := s.save(ctx, append(txs, tx)); err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction added", "id", tx.ID, "type", tx.Type, "amount", tx.Amount)
	return tx, nil
}

// Update applies the patch to the transaction with the given id. Nothing is
// written when the id is unknown or the result does not validate.
func (s *TransactionStore) Update(ctx context.Context, id string, p core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		updated := txs[i].Apply(p)
		if err := updated.Validate(); err != nil {
			return core.Transaction{}, err
		}
		txs[i] = updated
		if err := s.save(ctx, txs); err != nil {
			return core.Transaction{}, err
		}
		slog.InfoContext(ctx, "Transaction updated", "id", id)
		return updated, nil
	}
	return core.Transaction{}, ErrNotFound
}

// Delete removes the transaction with the given id and returns it. An
// unknown id is a no-op and reports found=false.
func (s *TransactionStore) Delete(ctx context.Context, id string) (core.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.load(ctx)
	if err != nil {
		return core.Transaction{}, false, err
	}
	kept := make([]core.Transaction, 0, len(txs))
	var removed core.Transaction
	found := false
	for _, tx := range txs {
		if tx.ID == id {
			removed, found = tx, true
			continue
		}
		kept = append(kept, tx)
	}
	if !found {
		return core.Transaction{}, false, nil
	}
	if err := s.save(ctx, kept); err != nil {
		return core.Transaction{}, false, err
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return removed, true, nil
}

// ByMonth returns the transactions dated in the given month.
func (s *TransactionStore) ByMonth(ctx context.Context, year, month int) []core.Transaction {
	return core.FilterByMonth(s.All(ctx), year, month)
}
