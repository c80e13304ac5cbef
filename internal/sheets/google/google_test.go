package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"kakeibo/internal/core"
)

// fakeValues is an in-memory grid addressed with A1 ranges like 'Sheet'!A2:F2.
type fakeValues struct {
	mu      sync.Mutex
	grid    map[int][]any
	gets    int
	failGet error
	failSet error
}

func newFakeValues() *fakeValues {
	return &fakeValues{grid: map[int][]any{}}
}

var rowRange = regexp.MustCompile(`!A(\d+):F(\d+)$`)

func (f *fakeValues) Get(_ context.Context, _, rng string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return nil, f.failGet
	}
	last := 0
	for r, v := range f.grid {
		if len(v) > 0 && r > last {
			last = r
		}
	}
	out := make([][]any, last)
	for r := 1; r <= last; r++ {
		if v := f.grid[r]; len(v) > 0 {
			out[r-1] = []any{v[0]}
		} else {
			out[r-1] = []any{}
		}
	}
	return out, nil
}

func (f *fakeValues) Update(_ context.Context, _, rng string, values [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	f.grid[parseRow(rng)] = values[0]
	return nil
}

func (f *fakeValues) Clear(_ context.Context, _, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.grid, parseRow(rng))
	return nil
}

func parseRow(rng string) int {
	m := rowRange.FindStringSubmatch(rng)
	if m == nil {
		return -1
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func tx(id string, amount int64) core.Transaction {
	return core.Transaction{ID: id, Type: core.Expense, Amount: amount, Date: "2026-01-15", Category: "食費", Description: "ランチ"}
}

func TestClient_UpsertAppendsWithHeader(t *testing.T) {
	fv := newFakeValues()
	c := newClient(fv, "sheet-id", "")

	if err := c.Upsert(context.Background(), tx("a", 1200)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := fv.grid[1]; len(got) == 0 || got[0] != "ID" {
		t.Fatalf("header not written: %v", got)
	}
	row := fv.grid[2]
	if len(row) != 6 || row[0] != "a" || row[2] != "支出" || row[4] != int64(1200) {
		t.Fatalf("unexpected row: %v", row)
	}

	if err := c.Upsert(context.Background(), tx("b", 800)); err != nil {
		t.Fatalf("Upsert b: %v", err)
	}
	if fv.grid[3][0] != "b" {
		t.Fatalf("second transaction should land in row 3, grid=%v", fv.grid)
	}
}

func TestClient_UpsertRewritesExistingRow(t *testing.T) {
	fv := newFakeValues()
	fv.grid[1] = header
	fv.grid[2] = []any{"a", "2026-01-01", "支出", "食費", int64(1), ""}
	fv.grid[3] = []any{"b", "2026-01-01", "支出", "食費", int64(2), ""}
	c := newClient(fv, "sheet-id", "Kakeibo")

	if err := c.Upsert(context.Background(), tx("a", 999)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if fv.grid[2][4] != int64(999) {
		t.Fatalf("row 2 not rewritten: %v", fv.grid[2])
	}
	if len(fv.grid) != 3 {
		t.Fatalf("update must not append, grid=%v", fv.grid)
	}

	// the row index is cached after the first lookup
	gets := fv.gets
	if err := c.Upsert(context.Background(), tx("b", 5)); err != nil {
		t.Fatalf("Upsert b: %v", err)
	}
	if fv.gets != gets {
		t.Fatalf("expected cached row lookup, got %d extra reads", fv.gets-gets)
	}
}

func TestClient_Remove(t *testing.T) {
	fv := newFakeValues()
	c := newClient(fv, "sheet-id", "")
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := c.Upsert(ctx, tx(id, 1)); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	if err := c.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := fv.grid[3]; ok {
		t.Fatalf("row 3 should be cleared: %v", fv.grid)
	}
	if fv.grid[4][0] != "c" {
		t.Fatalf("rows below must not move: %v", fv.grid)
	}
	if err := c.Remove(ctx, "missing"); err != nil {
		t.Fatalf("Remove of unknown id should be a no-op, got %v", err)
	}

	// re-adding b appends instead of reusing a stale cached row
	if err := c.Upsert(ctx, tx("b", 2)); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}
	if fv.grid[5][0] != "b" {
		t.Fatalf("expected b in row 5, grid=%v", fv.grid)
	}
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	fv := newFakeValues()
	fv.failGet = errors.New("quota")
	if err := newClient(fv, "id", "").Upsert(ctx, tx("a", 1)); err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected read error, got %v", err)
	}

	fv = newFakeValues()
	fv.failSet = errors.New("permission denied")
	if err := newClient(fv, "id", "").Upsert(ctx, tx("a", 1)); err == nil {
		t.Fatal("expected write error")
	}

	if err := newClient(newFakeValues(), "id", "").Upsert(ctx, core.Transaction{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestClient_A1Quoting(t *testing.T) {
	c := newClient(newFakeValues(), "id", "Bob's 2026")
	if got, want := c.a1("A:A"), "'Bob''s 2026'!A:A"; got != want {
		t.Fatalf("a1 = %q, want %q", got, want)
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestClient_AgainstSheetsAPI drives the generated Sheets client against a
// local stand-in for the values endpoints.
func TestClient_AgainstSheetsAPI(t *testing.T) {
	var (
		mu      sync.Mutex
		rows    [][]any
		updates []string
		clears  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path := r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
			_ = json.NewEncoder(w).Encode(map[string]any{"range": "A:A", "majorDimension": "ROWS", "values": rows})
		case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
			body, _ := io.ReadAll(r.Body)
			var vr struct {
				Values [][]any `json:"values"`
			}
			_ = json.Unmarshal(body, &vr)
			updates = append(updates, path[strings.Index(path, "/values/")+len("/values/"):])
			if len(vr.Values) > 0 {
				rows = append(rows, []any{vr.Values[0][0]})
			}
			if r.URL.Query().Get("valueInputOption") != "RAW" {
				t.Errorf("valueInputOption = %q", r.URL.Query().Get("valueInputOption"))
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": 1})
		case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
			clears = append(clears, path)
			_ = json.NewEncoder(w).Encode(map[string]any{"clearedRange": "x"})
		default:
			http.Error(w, fmt.Sprintf("unexpected %s %s", r.Method, path), http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := New(ctx, "sheet-id", "Transactions",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Upsert(ctx, tx("a", 1200)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := c.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 2 || !strings.HasSuffix(updates[0], "!A1:F1") || !strings.HasSuffix(updates[1], "!A2:F2") {
		t.Fatalf("unexpected updates: %v", updates)
	}
	if len(clears) != 1 || !strings.Contains(clears[0], "!A2:F2") {
		t.Fatalf("unexpected clears: %v", clears)
	}
}
