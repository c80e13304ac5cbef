package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetName = "Transactions"
	lastColumn       = "F"
	rowCacheSize     = 1024
	rowCacheTTL      = 10 * time.Minute
)

// header is written to row 1 of an empty sheet.
var header = []any{"ID", "日付", "種別", "カテゴリ", "金額", "メモ"}

// valuesAPI is the subset of the Sheets values API the mirror uses.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
}

// Client mirrors transactions into one sheet, column A holding the id.
type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string

	// serialises row allocation
	mu   sync.Mutex
	rows *cache.LRUCache[int]
}

var _ ports.TransactionMirror = (*Client)(nil)

// NewFromEnv creates a Sheets mirror from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Transactions")
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	opts, err := credentialOptions(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"), opts...)
}

// New creates a mirror for the given spreadsheet and sheet.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return newClient(serviceValues{svc: svc}, spreadsheetID, sheetName), nil
}

func newClient(values valuesAPI, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		values:        values,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rows:          cache.NewLRUCache[int](rowCacheSize, rowCacheTTL),
	}
}

// credentialOptions picks service account credentials from the environment.
func credentialOptions(ctx context.Context) ([]goption.ClientOption, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	return []goption.ClientOption{goption.WithCredentialsJSON(credentialsJSON)}, nil
}

func (c *Client) Upsert(ctx context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction without id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, tx.ID)
	if err != nil {
		return err
	}
	if row == 0 {
		if row, err = c.nextRow(ctx); err != nil {
			return err
		}
	}

	rng := c.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
	if err := c.values.Update(ctx, c.spreadsheetID, rng, [][]any{rowValues(tx)}); err != nil {
		c.rows.Delete(tx.ID)
		return fmt.Errorf("write %s: %w", rng, err)
	}
	c.rows.Set(tx.ID, row)
	slog.InfoContext(ctx, "Transaction mirrored", "id", tx.ID, "row", row, "sheet", c.sheetName)
	return nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.DebugContext(ctx, "Transaction not in sheet, nothing to clear", "id", id)
		return nil
	}

	rng := c.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
	if err := c.values.Clear(ctx, c.spreadsheetID, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.rows.Delete(id)
	slog.InfoContext(ctx, "Transaction row cleared", "id", id, "row", row, "sheet", c.sheetName)
	return nil
}

// findRow returns the 1-based row holding id in column A, or 0.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	if row, ok := c.rows.Get(id); ok {
		return row, nil
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return 0, err
	}
	found := 0
	for i, v := range ids {
		// row 1 is the header
		if i == 0 || v == "" {
			continue
		}
		c.rows.Set(v, i+1)
		if v == id {
			found = i + 1
		}
	}
	return found, nil
}

// nextRow returns the first row after the data, writing the header first
// when the sheet is empty.
func (c *Client) nextRow(ctx context.Context) (int, error) {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		rng := c.a1("A1:" + lastColumn + "1")
		if err := c.values.Update(ctx, c.spreadsheetID, rng, [][]any{header}); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
		return 2, nil
	}
	return len(ids) + 1, nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := c.a1("A:A")
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func (c *Client) a1(rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), rng)
}

func rowValues(tx core.Transaction) []any {
	return []any{tx.ID, tx.Date, tx.Type.Label(), tx.Category, tx.Amount, tx.Description}
}

// serviceValues adapts the generated Sheets client to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
