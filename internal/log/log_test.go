package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentStorage})
	l.Info("hello", FieldCount, 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json output %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentStorage || entry[FieldCount] != float64(3) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	sl := NewStructuredLogger(l)
	req := httptest.NewRequest("GET", "/financial-records/getAllByUserId/u1", nil)

	sl.LogHTTPEnd(context.Background(), req, 404, 3, "127.0.0.1")
	var entry map[string]any
	_ = json.Unmarshal(buf.Bytes(), &entry)
	if entry["level"] != "WARN" || entry[FieldStatusCode] != float64(404) {
		t.Fatalf("unexpected entry %v", entry)
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk full"), ComponentStorage, OpCreate, nil)
	entry = nil
	_ = json.Unmarshal(buf.Bytes(), &entry)
	if entry["level"] != "ERROR" || entry[FieldError] != "disk full" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected fallback logger")
	}
}
