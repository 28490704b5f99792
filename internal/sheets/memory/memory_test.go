package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocketflow/internal/core"
)

func TestMirrorUpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	m := New()
	r := core.FinancialRecord{
		ID:            "r1",
		OwnerID:       "u1",
		Date:          time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
		Description:   "Salary",
		Amount:        decimal.RequireFromString("2500"),
		Category:      "Income",
		PaymentMethod: "Bank Transfer",
	}
	if err := m.Upsert(ctx, r); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	r.Amount = decimal.RequireFromString("2600.5")
	if err := m.Upsert(ctx, r); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows := m.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %v", rows)
	}
	if rows[0][0] != "ID" || rows[1][0] != "r1" || rows[1][2] != "2025-04-05" || rows[1][4] != "2600.50" {
		t.Fatalf("unexpected rows %v", rows)
	}

	if err := m.Remove(ctx, "r1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.Remove(ctx, "r1"); err != nil {
		t.Fatalf("removing a missing row should be a no-op: %v", err)
	}
	if len(m.Rows()) != 1 {
		t.Fatalf("expected only the header, got %v", m.Rows())
	}
}

func TestMirrorRejectsRecordWithoutID(t *testing.T) {
	if err := New().Upsert(context.Background(), core.FinancialRecord{}); err == nil {
		t.Fatal("expected error for record without id")
	}
}
