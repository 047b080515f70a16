// Package calendar turns calendar days and months into inclusive instant
// ranges in a given time zone. Every aggregation uses these boundaries.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidMonth = errors.New("invalid month")
)

// Range is a closed interval: both Start and End belong to it.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, endpoints included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r Range) StartMillis() int64 { return r.Start.UnixMilli() }
func (r Range) EndMillis() int64   { return r.End.UnixMilli() }

// Span returns the smallest range covering both a and b.
func Span(a, b Range) Range {
	out := a
	if b.Start.Before(out.Start) {
		out.Start = b.Start
	}
	if b.End.After(out.End) {
		out.End = b.End
	}
	return out
}

// Date is a whole calendar day without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day t falls on in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

// Midnight is the instant the day starts in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Range spans local midnight to one millisecond before the next local midnight.
func (d Date) Range(loc *time.Location) Range {
	start := d.Midnight(loc)
	next := time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: next.Add(-time.Millisecond)}
}

func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year, Month: d.Month}
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func YearMonthOf(t time.Time, loc *time.Location) YearMonth {
	y, m, _ := t.In(loc).Date()
	return YearMonth{Year: y, Month: m}
}

// ParseYearMonth parses "2006-01".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

func (m YearMonth) Validate() error {
	if m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	return nil
}

// AddMonths moves n months forward (negative n moves back).
func (m YearMonth) AddMonths(n int) YearMonth {
	t := time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Range spans the first day's local midnight through the last day's final millisecond.
func (m YearMonth) Range(loc *time.Location) Range {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	next := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: next.Add(-time.Millisecond)}
}

// Window returns n consecutive months ending at anchor, oldest first.
func Window(anchor YearMonth, n int) []YearMonth {
	if n <= 0 {
		return nil
	}
	out := make([]YearMonth, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, anchor.AddMonths(-i))
	}
	return out
}

// WindowRange covers every month of Window(anchor, n).
func WindowRange(anchor YearMonth, n int, loc *time.Location) Range {
	if n <= 0 {
		n = 1
	}
	return Range{
		Start: anchor.AddMonths(-(n - 1)).Range(loc).Start,
		End:   anchor.Range(loc).End,
	}
}

// FromMillis converts a stored epoch-millisecond instant back to a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}
