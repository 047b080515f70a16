package calendar_test

import (
	"testing"
	"time"

	"projecttracker/internal/calendar"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	return loc
}

func TestDateRangeIsInclusiveDay(t *testing.T) {
	loc := mustLoad(t, "Europe/Belgrade")
	d := calendar.Date{Year: 2025, Month: time.March, Day: 14}
	r := d.Range(loc)

	wantStart := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2025, 3, 15, 0, 0, 0, 0, loc).Add(-time.Millisecond)
	if !r.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", r.Start, wantStart)
	}
	if !r.End.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", r.End, wantEnd)
	}
	if !r.Contains(r.Start) || !r.Contains(r.End) {
		t.Error("range must contain both endpoints")
	}
	if r.Contains(r.End.Add(time.Millisecond)) {
		t.Error("range must not contain next midnight")
	}
}

func TestDateRangeAcrossDSTChange(t *testing.T) {
	loc := mustLoad(t, "Europe/Belgrade")
	// Clocks move forward on 2025-03-30, so the day is 23 hours long.
	r := calendar.Date{Year: 2025, Month: time.March, Day: 30}.Range(loc)
	if got := r.End.Sub(r.Start) + time.Millisecond; got != 23*time.Hour {
		t.Errorf("day length = %v, want 23h", got)
	}
}

func TestYearMonthRange(t *testing.T) {
	tests := []struct {
		month   calendar.YearMonth
		lastDay int
	}{
		{calendar.YearMonth{Year: 2024, Month: time.February}, 29},
		{calendar.YearMonth{Year: 2025, Month: time.February}, 28},
		{calendar.YearMonth{Year: 2025, Month: time.December}, 31},
		{calendar.YearMonth{Year: 2025, Month: time.April}, 30},
	}
	for _, tt := range tests {
		r := tt.month.Range(time.UTC)
		if r.Start.Day() != 1 || r.Start.Hour() != 0 {
			t.Errorf("%s start = %v", tt.month, r.Start)
		}
		if r.End.Day() != tt.lastDay || r.End.Month() != tt.month.Month {
			t.Errorf("%s end = %v, want day %d", tt.month, r.End, tt.lastDay)
		}
		if r.End.Nanosecond() != int(999*time.Millisecond) {
			t.Errorf("%s end should be last millisecond, got %v", tt.month, r.End)
		}
	}
}

func TestAddMonthsCrossesYears(t *testing.T) {
	jan := calendar.YearMonth{Year: 2025, Month: time.January}
	if got := jan.AddMonths(-1); got != (calendar.YearMonth{Year: 2024, Month: time.December}) {
		t.Errorf("AddMonths(-1) = %v", got)
	}
	if got := jan.AddMonths(-13); got != (calendar.YearMonth{Year: 2023, Month: time.December}) {
		t.Errorf("AddMonths(-13) = %v", got)
	}
	if got := jan.AddMonths(12); got != (calendar.YearMonth{Year: 2026, Month: time.January}) {
		t.Errorf("AddMonths(12) = %v", got)
	}
}

func TestWindowOldestFirst(t *testing.T) {
	anchor := calendar.YearMonth{Year: 2025, Month: time.February}
	got := calendar.Window(anchor, 4)
	want := []calendar.YearMonth{
		{Year: 2024, Month: time.November},
		{Year: 2024, Month: time.December},
		{Year: 2025, Month: time.January},
		{Year: 2025, Month: time.February},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	wr := calendar.WindowRange(anchor, 4, time.UTC)
	if !wr.Start.Equal(want[0].Range(time.UTC).Start) || !wr.End.Equal(anchor.Range(time.UTC).End) {
		t.Errorf("WindowRange = %v..%v", wr.Start, wr.End)
	}
}

func TestParse(t *testing.T) {
	d, err := calendar.ParseDate("2025-07-09")
	if err != nil || d != (calendar.Date{Year: 2025, Month: time.July, Day: 9}) {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	if d.String() != "2025-07-09" {
		t.Errorf("String = %q", d.String())
	}
	if _, err := calendar.ParseDate("09.07.2025"); err == nil {
		t.Error("expected error for wrong layout")
	}

	m, err := calendar.ParseYearMonth("2025-11")
	if err != nil || m != (calendar.YearMonth{Year: 2025, Month: time.November}) {
		t.Fatalf("ParseYearMonth = %v, %v", m, err)
	}
	if _, err := calendar.ParseYearMonth("2025-13"); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	instant := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC) // still May 31 in New York
	if got := calendar.DateOf(instant, loc); got != (calendar.Date{Year: 2025, Month: time.May, Day: 31}) {
		t.Errorf("DateOf = %v", got)
	}
}
