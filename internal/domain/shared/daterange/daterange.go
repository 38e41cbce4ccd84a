package daterange

import (
	"errors"
	"time"
)

var ErrEndBeforeStart = errors.New("daterange: end date is before start date")

// DateRange is an inclusive calendar-day interval. Both endpoints count as
// rented days, so Start == End is a one-day range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New normalizes both endpoints to midnight UTC and validates ordering.
func New(start, end time.Time) (DateRange, error) {
	s := truncateToDay(start)
	e := truncateToDay(end)
	if e.Before(s) {
		return DateRange{}, ErrEndBeforeStart
	}
	return DateRange{Start: s, End: e}, nil
}

// Must builds a range and panics on invalid input; for tests and fixtures.
func Must(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

// Days returns the inclusive day count of the range.
func (r DateRange) Days() int64 {
	return int64(r.End.Sub(r.Start)/(24*time.Hour)) + 1
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Contains reports whether the given instant falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	day := truncateToDay(t)
	return !day.Before(r.Start) && !day.After(r.End)
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
