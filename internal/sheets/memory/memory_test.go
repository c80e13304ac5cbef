package memory

import (
	"context"
	"testing"

	"kakeibo/internal/core"
)

func TestMirrorUpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	m := New()

	a := core.Transaction{ID: "a", Type: core.Expense, Amount: 100, Date: "2026-01-01", Category: "食費"}
	b := core.Transaction{ID: "b", Type: core.Income, Amount: 200, Date: "2026-01-02", Category: "給与"}
	if err := m.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert a: %v", err)
	}
	if err := m.Upsert(ctx, b); err != nil {
		t.Fatalf("Upsert b: %v", err)
	}

	a.Amount = 150
	if err := m.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert a again: %v", err)
	}
	rows := m.Rows()
	if len(rows) != 2 || rows[0].ID != "a" || rows[0].Amount != 150 || rows[1].ID != "b" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := m.Remove(ctx, "missing"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	if rows := m.Rows(); len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("unexpected rows after remove: %+v", rows)
	}

	if err := m.Upsert(ctx, core.Transaction{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}
