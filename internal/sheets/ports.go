// Package sheets holds the spreadsheet mirror of committed records.
package sheets

import (
	"context"

	"pocketflow/internal/core"
)

// RecordMirror keeps one row per record in an external sheet.
type RecordMirror interface {
	// Upsert writes r, replacing the row with the same ID if present.
	Upsert(ctx context.Context, r core.FinancialRecord) error
	// Remove deletes the row for id. A missing row is not an error.
	Remove(ctx context.Context, id string) error
}

// Header is the first row of a mirror sheet.
var Header = []string{"ID", "Owner", "Date", "Description", "Amount", "Category", "Payment Method"}

// Row renders r in Header column order.
func Row(r core.FinancialRecord) []string {
	return []string{
		r.ID,
		r.OwnerID,
		r.Date.UTC().Format("2006-01-02"),
		r.Description,
		core.FormatAmount(r.Amount),
		r.Category,
		r.PaymentMethod,
	}
}
