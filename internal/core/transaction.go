package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the ISO calendar date used for persisted transactions.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Transaction is the persisted record. JSON tags define the stored layout.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      int64           `json:"amount"`
		Date        string          `json:"date"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
	}

	// NewTransaction carries user input before an ID is assigned.
	NewTransaction struct {
		Type        TransactionType
		Amount      int64
		Date        string
		Category    string
		Description string
	}

	// TransactionPatch replaces only the non-nil fields.
	TransactionPatch struct {
		Type        *TransactionType
		Amount      *int64
		Date        *string
		Category    *string
		Description *string
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategory   = errors.New("empty category")
	ErrUnknownCategory = errors.New("unknown category")
	ErrDescriptionLong = errors.New("description too long (max 500 characters)")
)

const maxDescriptionLen = 500

// MaxAmount caps a single amount at one trillion yen. Any realistic list of
// capped amounts sums without overflowing int64.
const MaxAmount int64 = 1_000_000_000_000

// Categories lists the selectable categories per transaction type.
var Categories = map[TransactionType][]string{
	Income:  {"給与", "副業", "その他"},
	Expense: {"食費", "交通費", "住居費", "光熱費", "娯楽", "その他"},
}

// CategoriesFor returns a copy of the categories for t, or nil for an unknown type.
func CategoriesFor(t TransactionType) []string {
	cats, ok := Categories[t]
	if !ok {
		return nil
	}
	return append([]string(nil), cats...)
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// Label is the display name of the type.
func (t TransactionType) Label() string {
	switch t {
	case Income:
		return "収入"
	case Expense:
		return "支出"
	}
	return string(t)
}

// ParseTransactionType accepts "income" or "expense" (case-insensitive).
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func validateFields(t TransactionType, amount int64, date, category, description string) error {
	if !t.IsValid() {
		return ErrInvalidType
	}
	if amount < 0 || amount > MaxAmount {
		return ErrInvalidAmount
	}
	if _, err := ParseDate(date); err != nil {
		return err
	}
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	known := false
	for _, c := range Categories[t] {
		if c == category {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownCategory
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	return nil
}

func (n NewTransaction) Validate() error {
	return validateFields(n.Type, n.Amount, n.Date, n.Category, n.Description)
}

func (t Transaction) Validate() error {
	return validateFields(t.Type, t.Amount, t.Date, t.Category, t.Description)
}

// WithID builds the stored record for n.
func (n NewTransaction) WithID(id string) Transaction {
	return Transaction{
		ID:          id,
		Type:        n.Type,
		Amount:      n.Amount,
		Date:        n.Date,
		Category:    n.Category,
		Description: n.Description,
	}
}

// Apply returns t with the patch fields replaced. The ID never changes.
func (t Transaction) Apply(p TransactionPatch) Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	return t
}

// UnmarshalJSON also accepts numeric ids, as written by the millisecond
// timestamp generator of older data.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transaction(raw.plain)
	id := bytes.TrimSpace(raw.ID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		t.ID = ""
	case id[0] == '"':
		return json.Unmarshal(id, &t.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("transaction id: %w", err)
		}
		t.ID = n.String()
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Type == nil && p.Amount == nil && p.Date == nil && p.Category == nil && p.Description == nil
}

// ParseAmount reads the leading integer of s the way a browser number field
// does: "1200" -> 1200, "12abc" -> 12, "" or "abc" -> 0. Negative values and
// values above MaxAmount are rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.TrimPrefix(s, "+")

	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int64(r-'0')
		if n > MaxAmount {
			return 0, ErrInvalidAmount
		}
	}
	return n, nil
}
