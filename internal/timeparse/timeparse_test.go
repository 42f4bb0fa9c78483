package timeparse

import (
	"testing"
	"time"
)

func TestParseDateTime(t *testing.T) {
	loc := time.UTC
	// A Sunday.
	now := time.Date(2026, 2, 8, 15, 0, 0, 0, loc)

	cases := []struct {
		in   string
		want string
	}{
		{"today", "2026-02-08T00:00:00Z"},
		{"Tomorrow", "2026-02-09T00:00:00Z"},
		{"yesterday", "2026-02-07T00:00:00Z"},
		{"now", "2026-02-08T15:00:00Z"},
		{"+7d", "2026-02-15T00:00:00Z"},
		{"-2d", "2026-02-06T00:00:00Z"},
		{"+2w", "2026-02-22T00:00:00Z"},
		{"friday", "2026-02-13T00:00:00Z"},
		{"sunday", "2026-02-08T00:00:00Z"},
		{"next sunday", "2026-02-15T00:00:00Z"},
		{"2026-02-20", "2026-02-20T00:00:00Z"},
		{"2026-02-20 09:30", "2026-02-20T09:30:00Z"},
		{"2026-02-20T09:30", "2026-02-20T09:30:00Z"},
		{"2026-02-20T09:30:00+02:00", "2026-02-20T07:30:00Z"},
	}

	for _, tc := range cases {
		got, err := ParseDateTime(tc.in, now, loc)
		if err != nil {
			t.Fatalf("ParseDateTime(%q) error: %v", tc.in, err)
		}
		if got.UTC().Format(time.RFC3339) != tc.want {
			t.Fatalf("ParseDateTime(%q) = %s, want %s", tc.in, got.UTC().Format(time.RFC3339), tc.want)
		}
	}
	for _, bad := range []string{"", "someday", "+3", "+xd", "next week", "2026-13-01"} {
		if _, err := ParseDateTime(bad, now, loc); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseDateTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, 2, 8, 23, 0, 0, 0, time.UTC)
	got, err := ParseDateTime("today", now, loc)
	if err != nil {
		t.Fatalf("ParseDateTime error: %v", err)
	}
	if want := "2026-02-09T00:00:00+03:00"; got.Format(time.RFC3339) != want {
		t.Fatalf("today in loc got=%s want=%s", got.Format(time.RFC3339), want)
	}
}

func TestParseClock(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 8, 15, 0, 0, 0, loc)

	cases := []struct {
		in   string
		want string
	}{
		{"14:30", "2026-02-08T14:30:00Z"},
		{"2:30pm", "2026-02-08T14:30:00Z"},
		{"2:30 PM", "2026-02-08T14:30:00Z"},
		{"12:05am", "2026-02-08T00:05:00Z"},
		{"9am", "2026-02-08T09:00:00Z"},
		{"noon", "2026-02-08T12:00:00Z"},
		{"midnight", "2026-02-08T00:00:00Z"},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in, now, loc)
		if err != nil {
			t.Fatalf("ParseClock(%q) error: %v", tc.in, err)
		}
		if got.Format(time.RFC3339) != tc.want {
			t.Fatalf("ParseClock(%q) = %s, want %s", tc.in, got.Format(time.RFC3339), tc.want)
		}
	}
	if _, err := ParseClock("25:00", now, loc); err == nil {
		t.Fatalf("expected error for invalid hour")
	}
}
