package core

import (
	"sort"
	"time"
)

// MonthlySummary is the income/expense balance for a set of transactions.
type MonthlySummary struct {
	Income       int64
	Expense      int64
	Balance      int64
	IncomeCount  int
	ExpenseCount int
}

// CategoryBreakdown is one category's share of a transaction type's total.
type CategoryBreakdown struct {
	Category   string
	Amount     int64
	Percentage float64
}

// CalculateMonthlySummary sums amounts per type. Balance is income minus expense.
func CalculateMonthlySummary(txs []Transaction) MonthlySummary {
	var s MonthlySummary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income += t.Amount
			s.IncomeCount++
		case Expense:
			s.Expense += t.Amount
			s.ExpenseCount++
		}
	}
	s.Balance = s.Income - s.Expense
	return s
}

// CalculateCategoryBreakdown groups the transactions of type t by category,
// in the order each category first appears. A zero total yields no entries.
func CalculateCategoryBreakdown(txs []Transaction, t TransactionType) []CategoryBreakdown {
	var (
		total int64
		order []string
		sums  = map[string]int64{}
	)
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		if _, seen := sums[tx.Category]; !seen {
			order = append(order, tx.Category)
		}
		sums[tx.Category] += tx.Amount
		total += tx.Amount
	}
	if total <= 0 {
		return nil
	}

	out := make([]CategoryBreakdown, 0, len(order))
	for _, c := range order {
		out = append(out, CategoryBreakdown{
			Category:   c,
			Amount:     sums[c],
			Percentage: float64(sums[c]) / float64(total) * 100,
		})
	}
	return out
}

// BreakdownTotal sums the amounts of a breakdown.
func BreakdownTotal(b []CategoryBreakdown) int64 {
	var total int64
	for _, e := range b {
		total += e.Amount
	}
	return total
}

// FilterByMonth keeps the transactions dated in the given year and month (1-12).
// Records whose date does not parse are skipped.
func FilterByMonth(txs []Transaction, year, month int) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		d, err := ParseDate(t.Date)
		if err != nil {
			continue
		}
		if d.Year() == year && int(d.Month()) == month {
			out = append(out, t)
		}
	}
	return out
}

// SortByDateDesc returns a copy of txs, newest first. Equal dates keep their order.
func SortByDateDesc(txs []Transaction) []Transaction {
	type keyed struct {
		tx    Transaction
		date  time.Time
		valid bool
	}
	ks := make([]keyed, len(txs))
	for i, tx := range txs {
		d, err := ParseDate(tx.Date)
		ks[i] = keyed{tx: tx, date: d, valid: err == nil}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if !ks[i].valid || !ks[j].valid {
			return ks[i].valid && !ks[j].valid
		}
		return ks[i].date.After(ks[j].date)
	})

	out := make([]Transaction, len(ks))
	for i, k := range ks {
		out[i] = k.tx
	}
	return out
}

// ShiftMonth moves (year, month) by delta months.
func ShiftMonth(year, month, delta int) (int, int) {
	t := time.Date(year, time.Month(month)+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), int(t.Month())
}
