package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if FormatDate(got) != "2024-10-10" {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateTimestamp(t *testing.T) {
	for _, s := range []string{"2024-10-10T10:10:10Z", "2024-10-10 10:10:10"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("expected ok for %q", s)
		}
		if FormatDate(got) != "2024-10-10" {
			t.Fatalf("unexpected date %v for %q", got, s)
		}
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	got := ParseDateDefault("not-a-date", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestNextBusinessDay(t *testing.T) {
	cases := map[string]string{
		"2025-01-30": "2025-01-31", // Thu
		"2025-01-31": "2025-02-03", // Fri
		"2025-02-01": "2025-02-03", // Sat
		"2025-02-02": "2025-02-03", // Sun
	}
	for in, want := range cases {
		d, _ := ParseDate(in)
		if got := FormatDate(NextBusinessDay(d)); got != want {
			t.Fatalf("NextBusinessDay(%s) = %s, want %s", in, got, want)
		}
	}
}
