package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
	"kakeibo/internal/todo"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// budgetURL builds the /budget link for a tab and month.
func budgetURL(tab string, year, month int) string {
	q := url.Values{}
	q.Set("tab", tab)
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	return "/budget?" + q.Encode()
}

// monthOf returns the year and month of a YYYY-MM-DD date, or ok=false.
func monthOf(date string) (year, month int, ok bool) {
	d, err := core.ParseDate(date)
	if err != nil {
		return 0, 0, false
	}
	return d.Year(), int(d.Month()), true
}

// validationMessage maps domain errors to the message shown to the user.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidType):
		return "取引種類が不正です"
	case errors.Is(err, core.ErrInvalidAmount):
		return "金額は0以上の整数で入力してください"
	case errors.Is(err, core.ErrInvalidDate):
		return "日付はYYYY-MM-DD形式で入力してください"
	case errors.Is(err, core.ErrEmptyCategory):
		return "カテゴリを選択してください"
	case errors.Is(err, core.ErrUnknownCategory):
		return "カテゴリが取引種類と一致しません"
	case errors.Is(err, core.ErrDescriptionLong):
		return "説明は500文字以内で入力してください"
	case errors.Is(err, errMissingID):
		return "IDが指定されていません"
	case errors.Is(err, storage.ErrNotFound):
		return "取引が見つかりません"
	case errors.Is(err, todo.ErrEmptyTitle):
		return "タイトルを入力してください"
	case errors.Is(err, todo.ErrInvalidStatus):
		return "ステータスが不正です"
	case errors.Is(err, todo.ErrTaskNotFound):
		return "タスクが見つかりません"
	case errors.Is(err, todo.ErrSubtaskNotFound):
		return "サブタスクが見つかりません"
	}
	return "入力内容を確認してください"
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, todo.ErrTaskNotFound) ||
		errors.Is(err, todo.ErrSubtaskNotFound)
}

// isRequestError reports input problems caught before the domain layer.
func isRequestError(err error) bool {
	return errors.Is(err, errMissingID) ||
		errors.Is(err, todo.ErrEmptyTitle) ||
		errors.Is(err, todo.ErrInvalidStatus)
}
