package http

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"kakeibo/internal/chart"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/todo"
)

const (
	tabOverview  = "overview"
	tabHistory   = "history"
	tabBreakdown = "breakdown"
)

var budgetTabs = []struct{ Key, Label string }{
	{tabOverview, "📈 概要"},
	{tabHistory, "≡ 取引履歴"},
	{tabBreakdown, "⏱ カテゴリ内訳"},
}

func parseTab(s string) string {
	switch s {
	case tabHistory, tabBreakdown:
		return s
	}
	return tabOverview
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"yen":         core.FormatYen,
		"statusClass": todo.StatusClass,
		"statuses":    func() []todo.Status { return todo.Statuses },
	}
}

// page carries the fields every layout needs.
type page struct {
	Title string
	Nav   string
	Flash string
}

type tabLink struct {
	Label  string
	URL    string
	Active bool
}

// formState is the add/edit form content, kept on validation failure.
type formState struct {
	Type        string
	Amount      string
	Date        string
	Category    string
	Description string
}

type txRow struct {
	core.Transaction
	Signed    string
	DateLabel string
	EditURL   string
	Editing   bool
}

type breakdownView struct {
	Title     string
	TotalName string
	Empty     string
	Class     string
	Total     string
	Slices    []chart.Slice
	Legend    []chart.LegendEntry
}

type budgetPage struct {
	page
	Tab        string
	Tabs       []tabLink
	Year       int
	Month      int
	MonthLabel string
	PrevURL    string
	NextURL    string
	ReturnURL  string

	Summary      core.MonthlySummary
	Balance      string
	BalanceClass string
	Form         formState
	Categories   map[string][]string

	Rows   []txRow
	EditID string

	ViewBox string
	Income  breakdownView
	Expense breakdownView
}

type budgetQuery struct {
	Tab    string
	Year   int
	Month  int
	EditID string
}

func newBudgetPage(q budgetQuery, report services.MonthReport, form formState, flash string) budgetPage {
	py, pm := core.ShiftMonth(q.Year, q.Month, -1)
	ny, nm := core.ShiftMonth(q.Year, q.Month, 1)

	p := budgetPage{
		page:       page{Title: "家計簿アプリ", Nav: "budget", Flash: flash},
		Tab:        q.Tab,
		Year:       q.Year,
		Month:      q.Month,
		MonthLabel: core.MonthLabel(q.Year, q.Month),
		PrevURL:    budgetURL(q.Tab, py, pm),
		NextURL:    budgetURL(q.Tab, ny, nm),
		ReturnURL:  budgetURL(q.Tab, q.Year, q.Month),
		Summary:    report.Summary,
		Balance:    core.FormatYen(report.Summary.Balance),
		Form:       form,
		Categories: map[string][]string{
			string(core.Income):  core.CategoriesFor(core.Income),
			string(core.Expense): core.CategoriesFor(core.Expense),
		},
		EditID:  q.EditID,
		ViewBox: chart.ViewBox,
		Income: newBreakdownView("収入の内訳", "合計収入", "収入データがありません", "income",
			report.Income),
		Expense: newBreakdownView("支出の内訳", "合計支出", "支出データがありません", "expense",
			report.Expense),
	}
	if report.Summary.Balance >= 0 {
		p.BalanceClass = "income"
	} else {
		p.BalanceClass = "expense"
	}
	if p.Form.Type == "" {
		p.Form.Type = string(core.Expense)
	}

	for _, b := range budgetTabs {
		p.Tabs = append(p.Tabs, tabLink{
			Label:  b.Label,
			URL:    budgetURL(b.Key, q.Year, q.Month),
			Active: b.Key == q.Tab,
		})
	}

	for _, tx := range report.Transactions {
		sign := "+"
		if tx.Type == core.Expense {
			sign = "-"
		}
		p.Rows = append(p.Rows, txRow{
			Transaction: tx,
			Signed:      sign + core.FormatYen(tx.Amount),
			DateLabel:   core.FormatJapaneseDate(tx.Date),
			EditURL:     p.ReturnURL + "&edit=" + url.QueryEscape(tx.ID),
			Editing:     tx.ID == q.EditID,
		})
	}
	return p
}

func newBreakdownView(title, totalName, empty, class string, data []core.CategoryBreakdown) breakdownView {
	return breakdownView{
		Title:     title,
		TotalName: totalName,
		Empty:     empty,
		Class:     class,
		Total:     core.FormatYen(core.BreakdownTotal(data)),
		Slices:    chart.Pie(data),
		Legend:    chart.Legend(data),
	}
}

// Breakdowns lists the income chart before the expense chart.
func (p budgetPage) Breakdowns() []breakdownView {
	return []breakdownView{p.Income, p.Expense}
}

type todoPage struct {
	page
	Tasks  []todo.Task
	EditID string
}

// render executes a template into a buffer so a failure still produces a
// clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data any) {
	ctx := r.Context()
	if s.templates == nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentTemplate).ErrorContext(ctx, "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentTemplate).ErrorContext(ctx, "Template execution failed",
			applog.FieldError, err,
			"template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
