package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half away from zero
		{"-1.005", "-1.01", true},
		{" 2.50 ", "2.50", true},
		{"-20", "-20.00", true},
		{"+7", "7.00", true},
		{"0", "0.00", true},
		{"--1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", tc.in, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2025 || d.Month() != 3 || d.Day() != 14 {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate("2025-03-14T10:00:00+02:00"); err != nil {
		t.Fatalf("rfc3339 should parse: %v", err)
	}
	for _, bad := range []string{"", "14/03/2025", "2025-13-01"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", bad, err)
		}
	}
}

func TestMustAmount(t *testing.T) {
	if got := FormatAmount(MustAmount("-3,5")); got != "-3.50" {
		t.Fatalf("MustAmount = %s", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for malformed amount")
		}
	}()
	MustAmount("abc")
}
