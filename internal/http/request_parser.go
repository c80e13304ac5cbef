// This file implements utilities for parsing and validating HTTP request data:
// month navigation parameters and transaction / task form bodies sent either
// form-encoded or as JSON.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
)

const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters. Missing or
// invalid values fall back to now. A month outside 1..12 also falls back.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y >= 1 && y <= 9999 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}
	return params
}

// RequestBodyParser reads a request body once and serves values from it as
// JSON or form data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body as JSON when it starts with '{', otherwise as a
// form-encoded string.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a sanitized, trimmed value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

var errMissingID = errors.New("missing id")

// parseNewTransaction builds form input for a new transaction. Validation is
// left to the store.
func parseNewTransaction(p *RequestBodyParser) (core.NewTransaction, error) {
	t, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.NewTransaction{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Type:        t,
		Amount:      amount,
		Date:        p.Get("date"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
	}, nil
}

// parseTransactionPatch reads the id and the fields that were sent. Fields
// absent from the body stay unchanged.
func parseTransactionPatch(p *RequestBodyParser) (string, core.TransactionPatch, error) {
	id := p.Get("id")
	if id == "" {
		return "", core.TransactionPatch{}, errMissingID
	}

	var patch core.TransactionPatch
	if p.Has("type") {
		t, err := core.ParseTransactionType(p.Get("type"))
		if err != nil {
			return id, patch, err
		}
		patch.Type = &t
	}
	if p.Has("amount") {
		amount, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return id, patch, err
		}
		patch.Amount = &amount
	}
	if p.Has("date") {
		date := p.Get("date")
		patch.Date = &date
	}
	if p.Has("category") {
		category := p.Get("category")
		patch.Category = &category
	}
	if p.Has("description") {
		description := p.Get("description")
		patch.Description = &description
	}
	return id, patch, nil
}
