package http

import (
	"net/http"

	"kakeibo/internal/core"
)

// handleExportTransactions returns the persisted list as JSON. With year and
// month it returns that month only, newest first.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var txs []core.Transaction
	if q.Has("year") || q.Has("month") {
		params := ParseMonthParams(q, s.now())
		txs = s.monthReport(r.Context(), params.Year, params.Month).Transactions
	} else {
		txs = s.budget.All(r.Context())
	}
	if txs == nil {
		txs = []core.Transaction{}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, txs)
}
