package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form accepted on query surfaces.
const DateLayout = "2006-01-02"

// TimeRange is a half-open [Start, End) window. A zero Start or End leaves that side unbounded.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// AllTime returns an unbounded range.
func AllTime() TimeRange {
	return TimeRange{}
}

// Since returns [start, +inf).
func Since(start time.Time) TimeRange {
	return TimeRange{Start: start}
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayRange returns [startOfDay(day), next midnight) in loc.
func DayRange(day time.Time, loc *time.Location) TimeRange {
	start := StartOfDay(day, loc)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// DateRange covers every calendar day from first through last inclusive. Timestamps carry
// millisecond precision, so ending at the next midnight matches an inclusive 23:59:59.999 bound.
func DateRange(first, last time.Time, loc *time.Location) (TimeRange, error) {
	start := StartOfDay(first, loc)
	end := StartOfDay(last, loc).AddDate(0, 0, 1)
	if !end.After(start) {
		return TimeRange{}, ErrInvalidRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Contains reports whether t lies inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want %s)", ErrInvalidDate, value, DateLayout)
	}
	return day, nil
}
