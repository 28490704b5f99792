package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocketflow/internal/amqp"
	"pocketflow/internal/core"
	"pocketflow/internal/store/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.RecordEvent
	err    error
}

func (f *fakePublisher) PublishRecordEvent(_ context.Context, ev *amqp.RecordEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func newRecord() core.FinancialRecord {
	return core.FinancialRecord{
		OwnerID:       "u1",
		Date:          time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Description:   " Groceries ",
		Amount:        decimal.RequireFromString("-42.10"),
		Category:      "Food",
		PaymentMethod: "Card",
	}
}

func TestRecordService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewRecordService(memory.New(), pub, nil)

	created, err := svc.Create(ctx, newRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Description != "Groceries" {
		t.Fatalf("description not trimmed: %q", created.Description)
	}

	desc := "Supermarket"
	if _, err := svc.Update(ctx, created.ID, core.RecordPatch{Description: &desc}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []amqp.EventType{amqp.EventRecordCreated, amqp.EventRecordUpdated, amqp.EventRecordDeleted}
	if len(pub.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(pub.events))
	}
	for i, ev := range pub.events {
		if ev.Type != want[i] || ev.RecordID != created.ID || ev.OwnerID != "u1" {
			t.Fatalf("event %d unexpected: %+v", i, ev)
		}
	}
	if pub.events[1].Record.Description != "Supermarket" {
		t.Fatalf("update event should carry the new value")
	}
}

func TestRecordService_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewRecordService(memory.New(), pub, nil)
	if _, err := svc.Create(context.Background(), newRecord()); err != nil {
		t.Fatalf("create should succeed when publishing fails: %v", err)
	}
}

func TestRecordService_ErrorsAreNotPublished(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewRecordService(memory.New(), pub, nil)

	bad := newRecord()
	bad.Category = ""
	if _, err := svc.Create(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Delete(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	empty := ""
	if _, err := svc.Update(ctx, "missing", core.RecordPatch{PaymentMethod: &empty}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("validation should run before lookup, got %v", err)
	}
	if _, err := svc.ListByOwner(ctx, ""); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for empty owner, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events expected, got %d", len(pub.events))
	}
}

func TestRecordService_NilPublisherAndClose(t *testing.T) {
	svc := NewRecordService(memory.New(), nil, nil)
	if _, err := svc.Create(context.Background(), newRecord()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
