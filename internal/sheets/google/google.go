package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pocketflow/internal/cache"
	"pocketflow/internal/core"
	ports "pocketflow/internal/sheets"
)

const lastColumn = "G"

// valueInput stores cells exactly as sent. Descriptions and tags are user
// text and must never be parsed as formulas, and ids must stay strings.
const valueInput = "RAW"

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	RowCacheSize    int
	RowCacheTTL     time.Duration
}

// Client mirrors records into one sheet, one row per record keyed by ID in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	sheetID       *int64

	// record id -> 1-based row number
	rows *cache.LRUCache[int]
}

var _ ports.RecordMirror = (*Client)(nil)

// New creates a Sheets client using service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet", cfg.SheetName)
	return newWithService(svc, cfg), nil
}

func newWithService(svc *gsheet.Service, cfg Config) *Client {
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Records"
	}
	size, ttl := cfg.RowCacheSize, cfg.RowCacheTTL
	if size <= 0 {
		size = 1000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		rows:          cache.NewLRUCache[int](size, ttl),
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// RowCache exposes the row index cache for periodic cleanup.
func (c *Client) RowCache() cache.Cleaner { return c.rows }

func (c *Client) a1(rng string) string {
	return quoteSheet(c.sheetName) + "!" + rng
}

// EnsureHeader writes the header row when A1 is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A1:"+lastColumn+"1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{headerValues()}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A1:"+lastColumn+"1"), vr).
		ValueInputOption(valueInput).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Upsert overwrites the record's row, or appends one when the record is new.
func (c *Client) Upsert(ctx context.Context, r core.FinancialRecord) error {
	if r.ID == "" {
		return core.NewValidationError("id", "is required")
	}
	row, err := c.locate(ctx, r.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{toValues(r)}}

	if row > 0 {
		rng := c.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption(valueInput).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:"+lastColumn), vr).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append record %s: %w", r.ID, err)
	}
	if resp.Updates != nil {
		if n, err := rowFromRange(resp.Updates.UpdatedRange); err == nil {
			c.rows.Set(r.ID, n)
		}
	}
	return nil
}

// Remove deletes the record's row. Row numbers below it shift, so the row cache is reset.
func (c *Client) Remove(ctx context.Context, id string) error {
	row, err := c.locate(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.DebugContext(ctx, "Record not present in sheet", "record_id", id)
		return nil
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	c.rows.Clear()
	return nil
}

// locate returns the row for id, or 0. Cached rows are verified before use.
func (c *Client) locate(ctx context.Context, id string) (int, error) {
	if row, ok := c.rows.Get(id); ok {
		rng := c.a1(fmt.Sprintf("A%d", row))
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", rng, err)
		}
		if findRow(resp.Values, id) == 1 {
			return row, nil
		}
		c.rows.Delete(id)
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("scan ids: %w", err)
	}
	row := findRow(resp.Values, id)
	if row > 0 {
		c.rows.Set(id, row)
	}
	return row, nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}
