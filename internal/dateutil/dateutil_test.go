package dateutil

import (
	"testing"
	"time"
)

var loc = time.FixedZone("EST", -5*3600)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func ptr(t time.Time) *time.Time { return &t }

func TestClearTime(t *testing.T) {
	in := time.Date(2024, 3, 10, 17, 42, 13, 999_000_000, loc)
	got := ClearTime(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("time not cleared: %s", got)
	}
	if y, m, d := got.Date(); y != 2024 || m != time.March || d != 10 {
		t.Fatalf("date changed: %s", got)
	}
	if got.Location() != loc {
		t.Fatalf("location changed: %s", got.Location())
	}
}

func TestCombineWithTime(t *testing.T) {
	date := time.Date(2024, 3, 10, 8, 1, 30, 5, loc)
	clock := time.Date(1999, 12, 31, 14, 45, 59, 123, loc)
	got := CombineWithTime(date, clock)
	want := at(2024, 3, 10, 14, 45)
	if !got.Equal(want) {
		t.Fatalf("CombineWithTime = %s, want %s", got, want)
	}
	if again := CombineWithTime(got, clock); !again.Equal(got) {
		t.Fatalf("expected idempotent combine: %s vs %s", again, got)
	}
	if swapped := CombineWithDate(clock, date); !swapped.Equal(want) {
		t.Fatalf("CombineWithDate = %s, want %s", swapped, want)
	}
}

func TestFixTimeToBeAfter(t *testing.T) {
	cases := []struct {
		name      string
		candidate time.Time
		start     time.Time
		want      time.Time
	}{
		{"same day", at(2020, 5, 5, 13, 30), at(2024, 1, 1, 9, 0), at(2024, 1, 1, 13, 30)},
		{"crosses midnight", at(2020, 5, 5, 0, 30), at(2024, 1, 1, 23, 0), at(2024, 1, 2, 0, 30)},
		{"equal to start", at(2020, 5, 5, 9, 0), at(2024, 1, 1, 9, 0), at(2024, 1, 1, 9, 0)},
		{"far future date collapses", at(2030, 5, 5, 10, 0), at(2024, 1, 1, 9, 0), at(2024, 1, 1, 10, 0)},
		{"month rollover", at(2020, 1, 1, 1, 0), at(2024, 1, 31, 22, 0), at(2024, 2, 1, 1, 0)},
	}
	for _, tc := range cases {
		got := FixTimeToBeAfter(tc.candidate, tc.start)
		if !got.Equal(tc.want) {
			t.Fatalf("%s: got=%s want=%s", tc.name, got, tc.want)
		}
		if got.Hour() != tc.candidate.Hour() || got.Minute() != tc.candidate.Minute() {
			t.Fatalf("%s: time of day changed: %s", tc.name, got)
		}
	}
}

func TestNewEndTimeKeepsDuration(t *testing.T) {
	origStart := at(2024, 3, 10, 10, 0)
	origEnd := at(2024, 3, 10, 11, 0)
	got := NewEndTime(origEnd, origStart, at(1970, 1, 1, 14, 0))
	if want := at(2024, 3, 10, 15, 0); !got.Equal(want) {
		t.Fatalf("NewEndTime = %s, want %s", got, want)
	}
}

func TestOrNow(t *testing.T) {
	v := at(2024, 3, 10, 10, 0)
	if got := OrNow(&v); !got.Equal(v) {
		t.Fatalf("OrNow(&v) = %s", got)
	}
	before := time.Now()
	if got := OrNow(nil); got.Before(before) {
		t.Fatalf("OrNow(nil) returned past instant %s", got)
	}
}

func TestFormatting(t *testing.T) {
	v := time.Date(2021, 4, 1, 15, 42, 0, 0, loc)
	if got, want := FullDateString(v), "Thursday April 1, 2021"; got != want {
		t.Fatalf("FullDateString = %q, want %q", got, want)
	}
	if got, want := DateString(v), "April 1, 2021"; got != want {
		t.Fatalf("DateString = %q, want %q", got, want)
	}
	if got, want := TimeString(v), "3:42 PM"; got != want {
		t.Fatalf("TimeString = %q, want %q", got, want)
	}
}

func TestCreateDateAndTime(t *testing.T) {
	if got, want := CreateDate(2024, time.March, 10, loc), at(2024, 3, 10, 0, 0); !got.Equal(want) {
		t.Fatalf("CreateDate = %s, want %s", got, want)
	}
	got := CreateTime(7, 5, loc)
	if got.Hour() != 7 || got.Minute() != 5 || got.Second() != 0 {
		t.Fatalf("CreateTime = %s", got)
	}
}

func TestOccursOnDay(t *testing.T) {
	day := at(2024, 3, 10, 0, 0)
	cases := []struct {
		name  string
		start time.Time
		end   *time.Time
		want  bool
	}{
		{"inside day", at(2024, 3, 10, 8, 0), ptr(at(2024, 3, 10, 9, 0)), true},
		{"spans midnight into day", at(2024, 3, 9, 23, 30), ptr(at(2024, 3, 10, 0, 15)), true},
		{"spans whole day", at(2024, 3, 9, 12, 0), ptr(at(2024, 3, 11, 12, 0)), true},
		{"due date next midnight", at(2024, 3, 11, 0, 0), nil, false},
		{"due date inside day", at(2024, 3, 10, 17, 0), nil, true},
		{"due date at midnight", day, nil, true},
		{"ends exactly at day start", at(2024, 3, 9, 22, 0), ptr(day), false},
		{"ends 1ms after day start", at(2024, 3, 9, 22, 0), ptr(day.Add(time.Millisecond)), false},
		{"ends 2ms after day start", at(2024, 3, 9, 22, 0), ptr(day.Add(2 * time.Millisecond)), true},
		{"starts at next midnight", at(2024, 3, 11, 0, 0), ptr(at(2024, 3, 11, 1, 0)), false},
		{"starts 1ms before next midnight", day.Add(Day - time.Millisecond), ptr(at(2024, 3, 11, 1, 0)), false},
		{"starts 2ms before next midnight", day.Add(Day - 2*time.Millisecond), ptr(at(2024, 3, 11, 1, 0)), true},
		{"due date 1ms before next midnight", day.Add(Day - time.Millisecond), nil, true},
	}
	for _, tc := range cases {
		if got := OccursOnDay(tc.start, tc.end, day); got != tc.want {
			t.Fatalf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestDayWindow(t *testing.T) {
	start, end := DayWindow(at(2024, 3, 10, 14, 30))
	if !start.Equal(at(2024, 3, 10, 0, 0)) || !end.Equal(at(2024, 3, 11, 0, 0)) {
		t.Fatalf("unexpected window: %s - %s", start, end)
	}
}
