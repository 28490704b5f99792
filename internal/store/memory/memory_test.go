package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocketflow/internal/core"
)

func rec(owner, desc string, amount int64) core.FinancialRecord {
	return core.FinancialRecord{
		OwnerID:       owner,
		Date:          time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Description:   desc,
		Amount:        decimal.NewFromInt(amount),
		Category:      "General",
		PaymentMethod: "Cash",
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.ListByOwner(ctx, "u1")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %v err=%v", got, err)
	}

	a, err := s.Create(ctx, rec("u1", "Paycheck", 100))
	if err != nil || a.ID == "" {
		t.Fatalf("unexpected create: %+v err=%v", a, err)
	}
	b, _ := s.Create(ctx, rec("u1", "Lunch", -12))
	_, _ = s.Create(ctx, rec("u2", "Other owner", 5))

	got, _ = s.ListByOwner(ctx, "u1")
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("unexpected list order: %+v", got)
	}

	amt := decimal.NewFromInt(-15)
	upd, err := s.Update(ctx, b.ID, core.RecordPatch{Amount: &amt})
	if err != nil || !upd.Amount.Equal(amt) || upd.Description != "Lunch" {
		t.Fatalf("unexpected update: %+v err=%v", upd, err)
	}

	del, err := s.Delete(ctx, a.ID)
	if err != nil || del.ID != a.ID {
		t.Fatalf("unexpected delete: %+v err=%v", del, err)
	}
	got, _ = s.ListByOwner(ctx, "u1")
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("unexpected list after delete: %+v", got)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Delete(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	desc := "x"
	if _, err := s.Update(ctx, "missing", core.RecordPatch{Description: &desc}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewWithRecords(rec("u1", "Seed", 1))
	bad := rec("u1", "", 1)
	if _, err := s.Create(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	list, _ := s.ListByOwner(ctx, "u1")
	empty := ""
	if _, err := s.Update(ctx, list[0].ID, core.RecordPatch{Category: &empty}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMemoryStoreConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Create(ctx, rec("u1", "r", 1))
		}()
	}
	wg.Wait()
	got, _ := s.ListByOwner(ctx, "u1")
	if len(got) != 50 {
		t.Fatalf("expected 50 records, got %d", len(got))
	}
}
