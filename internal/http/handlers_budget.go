package http

import (
	"net/http"
	"net/url"

	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/budget", http.StatusFound)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ParseMonthParams(q, s.now())
	s.renderBudget(w, r, http.StatusOK, budgetQuery{
		Tab:    parseTab(q.Get("tab")),
		Year:   params.Year,
		Month:  params.Month,
		EditID: q.Get("edit"),
	}, formState{Date: s.now().Format(core.DateLayout)}, "")
}

func (s *Server) renderBudget(w http.ResponseWriter, r *http.Request, status int, q budgetQuery, form formState, flash string) {
	report := s.monthReport(r.Context(), q.Year, q.Month)
	s.render(w, r, "budget.html", status, newBudgetPage(q, report, form, flash))
}

// returnQuery reads the hidden tab/year/month fields a form posts back so an
// error can re-render the page the user was on.
func (s *Server) returnQuery(p *RequestBodyParser, defaultTab string) budgetQuery {
	params := ParseMonthParams(url.Values{
		"year":  {p.Get("year")},
		"month": {p.Get("month")},
	}, s.now())
	tab := defaultTab
	if p.Has("tab") {
		tab = parseTab(p.Get("tab"))
	}
	return budgetQuery{Tab: tab, Year: params.Year, Month: params.Month}
}

func formStateFrom(p *RequestBodyParser) formState {
	return formState{
		Type:        p.Get("type"),
		Amount:      p.Get("amount"),
		Date:        p.Get("date"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
	}
}

// budgetFailure answers a failed write. htmx gets the alert fragment swapped
// into #flash; a plain form post gets the page again with the message.
func (s *Server) budgetFailure(w http.ResponseWriter, r *http.Request, err error, q budgetQuery, form formState) {
	status, msg := s.classifyWriteError(r, err, applog.ComponentBudget)
	if isHTMX(r) {
		ErrorResponse(status, msg).
			Retarget("#flash").
			TriggerErrorNotification(msg).
			Write(w)
		return
	}
	if status == http.StatusInternalServerError {
		InternalServerError(msg).Write(w)
		return
	}
	s.renderBudget(w, r, status, q, form, msg)
}

// classifyWriteError maps an error to a status and user message, logging it
// at the level it deserves.
func (s *Server) classifyWriteError(r *http.Request, err error, component string) (int, string) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(component)
	switch {
	case isNotFound(err):
		logger.InfoContext(ctx, "Write target not found",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeNotFound)
		return http.StatusNotFound, validationMessage(err)
	case services.IsValidationError(err) || isRequestError(err):
		logger.InfoContext(ctx, "Rejected input",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeValidation)
		return http.StatusUnprocessableEntity, validationMessage(err)
	}
	logger.ErrorContext(ctx, "Write failed",
		applog.FieldError, err,
		applog.FieldErrorType, applog.ErrorTypeDatabase)
	return http.StatusInternalServerError, "保存に失敗しました"
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("リクエストを解析できません").Write(w)
		return
	}
	q := s.returnQuery(p, tabOverview)

	n, err := parseNewTransaction(p)
	if err == nil {
		var tx core.Transaction
		tx, err = s.budget.Create(r.Context(), n)
		if err == nil {
			s.transactionWritten(r, applog.OpCreate, tx)
			y, m, _ := monthOf(tx.Date)
			NewHTMXResponse().
				TriggerTransactionCreated(y, m).
				TriggerFormReset().
				TriggerSuccessNotification("取引を追加しました").
				Finish(w, r, budgetURL(q.Tab, y, m))
			return
		}
	}
	s.budgetFailure(w, r, err, q, formStateFrom(p))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("リクエストを解析できません").Write(w)
		return
	}
	q := s.returnQuery(p, tabHistory)

	id, patch, err := parseTransactionPatch(p)
	if err == nil {
		var tx core.Transaction
		tx, err = s.budget.Update(r.Context(), id, patch)
		if err == nil {
			s.transactionWritten(r, applog.OpUpdate, tx)
			y, m, _ := monthOf(tx.Date)
			NewHTMXResponse().
				TriggerTransactionUpdated(y, m).
				TriggerSuccessNotification("取引を更新しました").
				Finish(w, r, budgetURL(q.Tab, q.Year, q.Month))
			return
		}
	}
	q.EditID = id
	s.budgetFailure(w, r, err, q, formState{})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("リクエストを解析できません").Write(w)
		return
	}
	q := s.returnQuery(p, tabHistory)

	id := p.Get("id")
	if id == "" {
		s.budgetFailure(w, r, errMissingID, q, formState{})
		return
	}

	// Deleting an unknown id is not an error; there is nothing to log.
	existing, lookupErr := s.budget.Get(r.Context(), id)
	if err := s.budget.Delete(r.Context(), id); err != nil {
		s.budgetFailure(w, r, err, q, formState{})
		return
	}
	if lookupErr == nil {
		s.transactionWritten(r, applog.OpDelete, existing)
	}

	NewHTMXResponse().
		TriggerTransactionDeleted(q.Year, q.Month).
		TriggerSuccessNotification("取引を削除しました").
		Finish(w, r, budgetURL(q.Tab, q.Year, q.Month))
}

func (s *Server) transactionWritten(r *http.Request, op string, tx core.Transaction) {
	s.invalidateReports()
	s.appMetrics.transactionsWritten.Add(1)
	eventLog(r.Context()).LogTransactionWritten(r.Context(), op, tx)
}
