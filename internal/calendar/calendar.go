// Package calendar holds the business-date arithmetic shared by the gap-fill
// engines. All dates are calendar days normalized to midnight UTC.
package calendar

import (
	"fmt"
	"slices"
	"time"
)

// DateLayout is the storage and wire format of a calendar date.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at midnight UTC, keeping t's own
// year/month/day rather than converting the instant to UTC first.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse parses a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return t, nil
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// IsBusinessDay reports whether t falls on Monday through Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDatesInRange returns the Monday-Friday dates from start to end
// inclusive, ascending. It returns nil when start is after end.
func BusinessDatesInRange(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return nil
	}

	dates := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// MissingDates returns requested - cached - excluded.
func MissingDates(requested []time.Time, cached, excluded Set) Set {
	missing := make(Set, len(requested))
	for _, d := range requested {
		if cached.Has(d) || excluded.Has(d) {
			continue
		}
		missing.Add(d)
	}
	return missing
}

// Set is an unordered set of calendar dates.
type Set map[time.Time]struct{}

// NewSet builds a set from dates.
func NewSet(dates ...time.Time) Set {
	s := make(Set, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

// Add inserts d.
func (s Set) Add(d time.Time) {
	s[Day(d)] = struct{}{}
}

// Has reports whether d is in the set.
func (s Set) Has(d time.Time) bool {
	_, ok := s[Day(d)]
	return ok
}

// Remove deletes d.
func (s Set) Remove(d time.Time) {
	delete(s, Day(d))
}

// Sorted returns the dates in ascending order.
func (s Set) Sorted() []time.Time {
	dates := make([]time.Time, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}

// Span returns the earliest and latest date of the set. ok is false for an
// empty set.
func (s Set) Span() (start, end time.Time, ok bool) {
	for d := range s {
		if !ok || d.Before(start) {
			start = d
		}
		if !ok || d.After(end) {
			end = d
		}
		ok = true
	}
	return start, end, ok
}

// SpanOf returns the earliest and latest of dates. ok is false when dates is empty.
func SpanOf(dates []time.Time) (start, end time.Time, ok bool) {
	if len(dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end = Day(dates[0]), Day(dates[0])
	for _, d := range dates[1:] {
		d = Day(d)
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	return start, end, true
}
