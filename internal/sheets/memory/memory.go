// Package memory is an in-process TransactionMirror used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"
)

type Mirror struct {
	mu    sync.Mutex
	order []string
	rows  map[string]core.Transaction
}

var _ ports.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: make(map[string]core.Transaction)}
}

func (m *Mirror) Upsert(_ context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tx.ID]; !ok {
		m.order = append(m.order, tx.ID)
	}
	m.rows[tx.ID] = tx
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored transactions in first-written order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}
