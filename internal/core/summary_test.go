package core

import (
	"math"
	"testing"
)

func sampleTransactions() []Transaction {
	return []Transaction{
		{ID: "1", Type: Income, Amount: 300000, Date: "2026-01-25", Category: "給与"},
		{ID: "2", Type: Expense, Amount: 1200, Date: "2026-01-03", Category: "食費"},
		{ID: "3", Type: Expense, Amount: 80000, Date: "2026-01-01", Category: "住居費"},
		{ID: "4", Type: Expense, Amount: 800, Date: "2026-01-10", Category: "食費"},
		{ID: "5", Type: Income, Amount: 20000, Date: "2026-01-15", Category: "副業"},
		{ID: "6", Type: Expense, Amount: 5000, Date: "2026-02-01", Category: "娯楽"},
	}
}

func TestCalculateMonthlySummary(t *testing.T) {
	s := CalculateMonthlySummary(sampleTransactions())
	if s.Income != 320000 || s.Expense != 87000 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.Balance != s.Income-s.Expense {
		t.Fatalf("balance %d != income-expense", s.Balance)
	}
	if s.IncomeCount != 2 || s.ExpenseCount != 4 {
		t.Fatalf("unexpected counts: %+v", s)
	}

	neg := CalculateMonthlySummary([]Transaction{{Type: Expense, Amount: 10}})
	if neg.Balance != -10 {
		t.Fatalf("expected negative balance, got %d", neg.Balance)
	}
	if empty := CalculateMonthlySummary(nil); empty != (MonthlySummary{}) {
		t.Fatalf("empty input should give zero summary, got %+v", empty)
	}
}

func TestCalculateCategoryBreakdown(t *testing.T) {
	b := CalculateCategoryBreakdown(sampleTransactions(), Expense)
	if len(b) != 3 {
		t.Fatalf("expected 3 categories, got %d: %+v", len(b), b)
	}
	// first-seen order
	wantOrder := []string{"食費", "住居費", "娯楽"}
	for i, c := range wantOrder {
		if b[i].Category != c {
			t.Fatalf("entry %d: got %q, want %q", i, b[i].Category, c)
		}
	}
	if b[0].Amount != 2000 {
		t.Fatalf("食費 should aggregate to 2000, got %d", b[0].Amount)
	}

	var sum float64
	for _, e := range b {
		sum += e.Percentage
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("percentages sum to %v", sum)
	}
	if BreakdownTotal(b) != 87000 {
		t.Fatalf("breakdown total %d", BreakdownTotal(b))
	}
}

func TestCalculateCategoryBreakdownZeroTotal(t *testing.T) {
	if b := CalculateCategoryBreakdown(nil, Income); len(b) != 0 {
		t.Fatalf("expected no entries, got %+v", b)
	}
	zeros := []Transaction{{Type: Income, Amount: 0, Category: "給与"}}
	if b := CalculateCategoryBreakdown(zeros, Income); len(b) != 0 {
		t.Fatalf("zero total should give no entries, got %+v", b)
	}
}

func TestSummaryAtAmountCap(t *testing.T) {
	txs := make([]Transaction, 1000)
	for i := range txs {
		txs[i] = Transaction{ID: "x", Type: Income, Amount: MaxAmount, Date: "2026-01-01", Category: "給与"}
		if err := txs[i].Validate(); err != nil {
			t.Fatalf("capped amount rejected: %v", err)
		}
	}
	s := CalculateMonthlySummary(txs)
	if s.Income != 1000*MaxAmount || s.Balance <= 0 {
		t.Fatalf("sum overflowed: %+v", s)
	}
	b := CalculateCategoryBreakdown(txs, Income)
	if len(b) != 1 || b[0].Percentage != 100 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
}

func TestFilterByMonth(t *testing.T) {
	txs := append(sampleTransactions(), Transaction{ID: "bad", Type: Expense, Amount: 1, Date: "not a date"})
	jan := FilterByMonth(txs, 2026, 1)
	if len(jan) != 5 {
		t.Fatalf("expected 5 January records, got %d", len(jan))
	}
	for _, tx := range jan {
		if tx.ID == "6" || tx.ID == "bad" {
			t.Fatalf("unexpected record %q in January", tx.ID)
		}
	}
	if got := FilterByMonth(txs, 2025, 1); len(got) != 0 {
		t.Fatalf("expected no records for 2025-01, got %d", len(got))
	}
}

func TestSortByDateDesc(t *testing.T) {
	txs := []Transaction{
		{ID: "a", Date: "2026-01-01"},
		{ID: "b", Date: "2026-01-20"},
		{ID: "c", Date: "2026-01-20"},
		{ID: "d", Date: "garbage"},
		{ID: "e", Date: "2026-01-10"},
	}
	got := SortByDateDesc(txs)
	want := []string{"b", "c", "e", "a", "d"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %q, want %q (%v)", i, got[i].ID, id, got)
		}
	}
	if txs[0].ID != "a" {
		t.Fatalf("input slice was reordered")
	}
}

func TestShiftMonth(t *testing.T) {
	cases := []struct{ y, m, d, wy, wm int }{
		{2026, 1, -1, 2025, 12},
		{2026, 12, 1, 2027, 1},
		{2026, 6, 0, 2026, 6},
		{2026, 3, 13, 2027, 4},
	}
	for _, tc := range cases {
		y, m := ShiftMonth(tc.y, tc.m, tc.d)
		if y != tc.wy || m != tc.wm {
			t.Fatalf("ShiftMonth(%d,%d,%d) = %d-%d, want %d-%d", tc.y, tc.m, tc.d, y, m, tc.wy, tc.wm)
		}
	}
}
