// Package dateutil keeps the date axis (year, month, day) and the time axis
// (hour, minute) of an instant independently editable. Every combination is
// expressed as "date from A, time from B" in the location of A.
package dateutil

import "time"

const (
	fullDateLayout = "Monday January 2, 2006"
	dateLayout     = "January 2, 2006"
	timeLayout     = "3:04 PM"
)

// Day is the length of the day window used by the selector. It is a fixed
// 24 hours, not a calendar day.
const Day = 24 * time.Hour

// ClearTime returns midnight at the start of t's calendar day.
func ClearTime(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CombineWithTime takes the date of date and the hour and minute of clock.
// Seconds and below are reset.
func CombineWithTime(date, clock time.Time) time.Time {
	y, m, d := date.Date()
	clock = clock.In(date.Location())
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, date.Location())
}

// CombineWithDate is CombineWithTime with the arguments reversed.
func CombineWithDate(clock, date time.Time) time.Time {
	return CombineWithTime(date, clock)
}

// CreateDate returns midnight of the given day in loc. Month is 1-12.
func CreateDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// CreateTime returns hour:minute on the current day in loc.
func CreateTime(hour, minute int, loc *time.Location) time.Time {
	y, m, d := time.Now().In(loc).Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

// FixTimeToBeAfter puts the time of day of candidate on start's date. When
// that lands before start the date moves forward one day; the time of day is
// never changed.
func FixTimeToBeAfter(candidate, start time.Time) time.Time {
	end := CombineWithTime(start, candidate)
	if end.Before(start) {
		return end.AddDate(0, 0, 1)
	}
	return end
}

// NewEndTime returns the end that keeps origEnd-origStart constant after the
// start's time of day moves to newTime on origStart's date.
func NewEndTime(origEnd, origStart, newTime time.Time) time.Time {
	return CombineWithDate(newTime, origStart).Add(origEnd.Sub(origStart))
}

// OrNow returns *t, or the current instant when t is nil.
func OrNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now()
	}
	return *t
}

// FullDateString renders like "Thursday April 1, 2021".
func FullDateString(t time.Time) string { return t.Format(fullDateLayout) }

// DateString renders like "April 1, 2021".
func DateString(t time.Time) string { return t.Format(dateLayout) }

// TimeString renders like "3:42 PM".
func TimeString(t time.Time) string { return t.Format(timeLayout) }

// DayWindow returns [start, start+24h) for the day containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := ClearTime(t)
	return start, start.Add(Day)
}

// OccursOnDay reports whether an event touches the 24 hour window beginning
// at dayStart. Timed events overlap the window with 1ms of slack at both
// edges; due-date events (end nil) must start inside [dayStart,
// dayStart+24h-1ms].
func OccursOnDay(start time.Time, end *time.Time, dayStart time.Time) bool {
	d := dayStart.UnixMilli()
	last := d + Day.Milliseconds() - 1
	s := start.UnixMilli()
	if end != nil {
		return s < last && end.UnixMilli() > d+1
	}
	return s >= d && s <= last
}
