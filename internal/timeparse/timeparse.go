// Package timeparse reads the day selectors and times of day accepted on
// the command line.
package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agis/mocal/internal/dateutil"
)

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

var clockLayouts = []string{"15:04", "3:04PM", "3PM", "1504"}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// ParseDateTime accepts now, today, tomorrow, yesterday, +Nd/-Nd, +Nw/-Nw,
// a weekday name (today or the next one), "next <weekday>" (strictly after
// today) and the absolute layouts above. Day selectors return local
// midnight in loc.
func ParseDateTime(input string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	today := dateutil.ClearTime(now.In(loc))

	switch s {
	case "now":
		return now.In(loc), nil
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}
	if wd, ok := weekdays[s]; ok {
		return today.AddDate(0, 0, daysUntil(today.Weekday(), wd, false)), nil
	}
	if rest, ok := strings.CutPrefix(s, "next "); ok {
		if wd, ok := weekdays[strings.TrimSpace(rest)]; ok {
			return today.AddDate(0, 0, daysUntil(today.Weekday(), wd, true)), nil
		}
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		days, err := relativeDays(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative day: %s", input)
		}
		return today.AddDate(0, 0, days), nil
	}

	for _, layout := range dateTimeLayouts {
		if ts, err := time.ParseInLocation(layout, strings.TrimSpace(input), loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime format: %s", input)
}

// relativeDays reads +Nd, -Nd, +Nw or -Nw.
func relativeDays(s string) (int, error) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	raw := s[1:]
	unit := 1
	switch {
	case strings.HasSuffix(raw, "d"):
		raw = strings.TrimSuffix(raw, "d")
	case strings.HasSuffix(raw, "w"):
		raw = strings.TrimSuffix(raw, "w")
		unit = 7
	default:
		return 0, fmt.Errorf("missing unit")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return sign * n * unit, nil
}

func daysUntil(from, to time.Weekday, strict bool) int {
	d := (int(to) - int(from) + 7) % 7
	if d == 0 && strict {
		d = 7
	}
	return d
}

// ParseClock reads a time of day such as "14:30", "2:30pm" or "2:30 PM" and
// returns it on now's date in loc.
func ParseClock(input string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input), " ", ""))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time of day")
	}
	switch s {
	case "NOON":
		s = "12:00"
	case "MIDNIGHT":
		s = "00:00"
	}
	for _, layout := range clockLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return dateutil.CombineWithTime(now.In(loc), ts), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time of day: %s", input)
}
