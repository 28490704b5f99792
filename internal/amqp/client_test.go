package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocketflow/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	if client.isCircuitOpen() {
		t.Fatal("circuit breaker should be closed initially")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("circuit breaker should be open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should allow a trial call after the open timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatal("state should be half-open after the timeout")
	}

	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("a failed trial call should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestPublishRecordEvent_Guards(t *testing.T) {
	ev := NewRecordEvent(EventRecordCreated, sampleRecord())

	t.Run("circuit open", func(t *testing.T) {
		client := &Client{exchangeName: "x", queueName: "q", state: StateOpen, lastFailure: time.Now()}
		err := client.PublishRecordEvent(context.Background(), ev)
		if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Fatalf("expected circuit breaker error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := &Client{exchangeName: "x", queueName: "q"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := client.PublishRecordEvent(ctx, ev); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func sampleRecord() core.FinancialRecord {
	return core.FinancialRecord{
		ID:            "r1",
		OwnerID:       "u1",
		Date:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Description:   "Paycheck",
		Amount:        decimal.RequireFromString("100.50"),
		Category:      "Salary",
		PaymentMethod: "Bank Transfer",
	}
}

func TestRecordEvent_JSON(t *testing.T) {
	ev := NewRecordEvent(EventRecordUpdated, sampleRecord())
	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(body), `"record_id":"r1"`) || !strings.Contains(string(body), `"type":"record.updated"`) {
		t.Fatalf("unexpected body %s", body)
	}

	parsed, err := RecordEventFromJSON(body)
	if err != nil {
		t.Fatalf("RecordEventFromJSON() error = %v", err)
	}
	if parsed.OwnerID != "u1" || parsed.Record == nil || !parsed.Record.Amount.Equal(ev.Record.Amount) {
		t.Fatalf("unexpected event %+v", parsed)
	}
}

func TestRecordEventFromJSON_Invalid(t *testing.T) {
	cases := []string{
		`not json`,
		`{"type":"record.exploded","record_id":"r1"}`,
		`{"type":"record.created"}`,
		`{"type":"record.created","record_id":"r1"}`,
	}
	for _, c := range cases {
		if _, err := RecordEventFromJSON([]byte(c)); err == nil {
			t.Errorf("expected error for %s", c)
		}
	}
	if _, err := RecordEventFromJSON([]byte(`{"type":"record.deleted","record_id":"r1"}`)); err != nil {
		t.Errorf("delete without record should be accepted: %v", err)
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestSettle(t *testing.T) {
	good, _ := NewRecordEvent(EventRecordCreated, sampleRecord()).ToJSON()
	ok := func(context.Context, *RecordEvent) error { return nil }
	fail := func(context.Context, *RecordEvent) error { return errors.New("sheets down") }

	tests := []struct {
		name     string
		body     []byte
		handler  func(context.Context, *RecordEvent) error
		acked    bool
		requeued bool
	}{
		{"handled", good, ok, true, false},
		{"undecodable is dropped", []byte("{"), ok, false, false},
		{"handler failure requeues", good, fail, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAck{}
			settle(context.Background(), a, tt.body, tt.handler)
			if a.acked != tt.acked || a.requeued != tt.requeued || a.acked == a.nacked {
				t.Fatalf("unexpected settlement %+v", a)
			}
		})
	}
}
