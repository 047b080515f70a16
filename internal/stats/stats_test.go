package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
)

var loc = time.UTC

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func eq(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestProjectTotalsExample(t *testing.T) {
	day := at(2025, 3, 10)
	a := core.Project{ID: 1, Name: "A", AgreedAmount: d("10000")}
	s := Snapshot{
		Hours:    []core.HourEntry{{ProjectID: 1, Date: day, Hours: d("5.0")}},
		Expenses: []core.Expense{{ProjectID: 1, Date: day, Amount: d("1000"), Note: "tiles"}},
		Payments: []core.Payment{{ProjectID: 1, Date: day, Amount: d("2000"), Note: "advance"}},
	}

	got := ProjectTotals(a, s)
	eq(t, "totalHours", got.TotalHours, "5")
	eq(t, "totalExpenses", got.TotalExpenses, "1000")
	eq(t, "totalPayments", got.TotalPayments, "2000")
	eq(t, "profit", got.Profit, "9000")
	eq(t, "profitPerHour", got.ProfitPerHour, "1800")
}

func TestProjectTotalsEmptyProject(t *testing.T) {
	p := core.Project{ID: 7, AgreedAmount: d("5000")}
	other := Snapshot{Hours: []core.HourEntry{{ProjectID: 8, Date: at(2025, 1, 1), Hours: d("3")}}}

	got := ProjectTotals(p, other)
	eq(t, "totalHours", got.TotalHours, "0")
	eq(t, "profit", got.Profit, "5000")
	eq(t, "profitPerHour", got.ProfitPerHour, "0")
}

func TestProfitIgnoresPayments(t *testing.T) {
	p := core.Project{ID: 1, AgreedAmount: d("300")}
	for _, paid := range []string{"0", "300", "100000"} {
		s := Snapshot{
			Expenses: []core.Expense{{ProjectID: 1, Date: at(2025, 1, 2), Amount: d("120.50")}},
			Payments: []core.Payment{{ProjectID: 1, Date: at(2025, 1, 2), Amount: d(paid)}},
		}
		eq(t, "profit with payments "+paid, ProjectTotals(p, s).Profit, "179.50")
	}
}

func TestDayTotalsInclusiveBoundaries(t *testing.T) {
	day := calendar.Date{Year: 2025, Month: time.May, Day: 20}
	r := day.Range(loc)
	s := Snapshot{
		Hours: []core.HourEntry{
			{ProjectID: 1, Date: r.Start, Hours: d("2")},
			{ProjectID: 1, Date: r.End, Hours: d("1.5")},
			{ProjectID: 1, Date: r.End.Add(time.Millisecond), Hours: d("100")},
			{ProjectID: 1, Date: r.Start.Add(-time.Millisecond), Hours: d("100")},
			{ProjectID: 2, Date: r.Start, Hours: d("100")},
		},
		Expenses: []core.Expense{{ProjectID: 1, Date: r.End, Amount: d("40")}},
		Payments: []core.Payment{{ProjectID: 1, Date: r.Start, Amount: d("60")}},
	}

	got := DayTotals(1, day, loc, s)
	eq(t, "hours", got.Hours, "3.5")
	eq(t, "expenses", got.Expenses, "40")
	eq(t, "payments", got.Payments, "60")
}

func TestDayTotalsWithoutProjectIsZero(t *testing.T) {
	day := calendar.Date{Year: 2025, Month: time.May, Day: 20}
	s := Snapshot{Hours: []core.HourEntry{{ProjectID: 1, Date: at(2025, 5, 20), Hours: d("8")}}}

	got := DayTotals(core.NoProject, day, loc, s)
	eq(t, "hours", got.Hours, "0")
	eq(t, "expenses", got.Expenses, "0")
	eq(t, "payments", got.Payments, "0")
}

func TestMonthTotals(t *testing.T) {
	month := calendar.YearMonth{Year: 2025, Month: time.June}
	r := month.Range(loc)
	first := core.Project{ID: 1, Name: "First"}
	second := core.Project{ID: 2, Name: "Second"}
	s := Snapshot{
		Hours: []core.HourEntry{
			{ProjectID: 1, Date: r.Start, Hours: d("3")},
			{ProjectID: 2, Date: at(2025, 6, 5), Hours: d("0")},
			{ProjectID: 1, Date: at(2025, 7, 1), Hours: d("9")},
		},
		Expenses: []core.Expense{
			{ProjectID: 2, Date: r.End, Amount: d("30")},
			{ProjectID: 1, Date: at(2025, 5, 31), Amount: d("999")},
		},
		Payments: []core.Payment{
			{ProjectID: 1, Date: at(2025, 6, 15), Amount: d("100")},
		},
	}

	got := MonthTotals(month, loc, []core.Project{first, second}, s)
	eq(t, "hours", got.Hours, "3")
	eq(t, "costs", got.Costs, "30")
	eq(t, "income", got.Income, "100")
	eq(t, "net", got.Net, "70")
	if !got.Net.Equal(got.Income.Sub(got.Costs)) {
		t.Errorf("net must equal income - costs")
	}

	if len(got.Projects) != 1 || got.Projects[0].Project.ID != 1 {
		t.Fatalf("breakdown = %+v, want only project 1", got.Projects)
	}
	eq(t, "breakdown hours", got.Projects[0].Hours, "3")
	eq(t, "breakdown payments", got.Projects[0].Payments, "100")
}

func TestMonthBreakdownKeepsPaymentOnlyProject(t *testing.T) {
	month := calendar.YearMonth{Year: 2025, Month: time.June}
	projects := []core.Project{{ID: 2, Name: "Paid"}, {ID: 1, Name: "Worked"}}
	s := Snapshot{
		Hours:    []core.HourEntry{{ProjectID: 1, Date: at(2025, 6, 3), Hours: d("1")}},
		Payments: []core.Payment{{ProjectID: 2, Date: at(2025, 6, 3), Amount: d("50")}},
	}

	got := MonthTotals(month, loc, projects, s)
	if len(got.Projects) != 2 {
		t.Fatalf("breakdown len = %d, want 2", len(got.Projects))
	}
	if got.Projects[0].Project.ID != 2 || got.Projects[1].Project.ID != 1 {
		t.Errorf("breakdown should follow project list order, got %d, %d",
			got.Projects[0].Project.ID, got.Projects[1].Project.ID)
	}
}

func TestDaysWithWorkDistinctDates(t *testing.T) {
	month := calendar.YearMonth{Year: 2025, Month: time.June}
	s := Snapshot{Hours: []core.HourEntry{
		{ProjectID: 1, Date: at(2025, 6, 12).Add(9 * time.Hour), Hours: d("1")},
		{ProjectID: 2, Date: at(2025, 6, 12), Hours: d("2")},
		{ProjectID: 1, Date: at(2025, 6, 3), Hours: d("1")},
		{ProjectID: 1, Date: at(2025, 7, 3), Hours: d("1")},
	}}

	got := MonthTotals(month, loc, nil, s).DaysWithWork
	want := []calendar.Date{{Year: 2025, Month: time.June, Day: 3}, {Year: 2025, Month: time.June, Day: 12}}
	if len(got) != len(want) {
		t.Fatalf("daysWithWork = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("daysWithWork[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRollingWindow(t *testing.T) {
	anchor := calendar.YearMonth{Year: 2025, Month: time.February}
	s := Snapshot{
		Hours: []core.HourEntry{
			{ProjectID: 1, Date: at(2024, 11, 30), Hours: d("4")},
			{ProjectID: 1, Date: at(2025, 2, 28), Hours: d("6")},
			{ProjectID: 1, Date: at(2024, 10, 31), Hours: d("50")},
		},
		Expenses: []core.Expense{{ProjectID: 1, Date: at(2025, 2, 1), Amount: d("20")}},
		Payments: []core.Payment{
			{ProjectID: 1, Date: at(2025, 2, 14), Amount: d("120")},
			{ProjectID: 1, Date: at(2025, 1, 14), Amount: d("80")},
		},
	}

	got := Rolling(anchor, TrendWindow, loc, s)
	if len(got) != TrendWindow {
		t.Fatalf("len = %d, want %d", len(got), TrendWindow)
	}
	wantMonths := calendar.Window(anchor, TrendWindow)
	for i, snap := range got {
		if snap.Month != wantMonths[i] {
			t.Errorf("month[%d] = %v, want %v", i, snap.Month, wantMonths[i])
		}
	}
	eq(t, "nov hours", got[0].Hours, "4")
	eq(t, "dec hours", got[1].Hours, "0")
	eq(t, "jan net", got[2].Net, "80")

	last := got[len(got)-1]
	month := MonthTotals(anchor, loc, nil, s)
	if !last.Hours.Equal(month.Hours) || !last.Net.Equal(month.Net) {
		t.Errorf("last = %+v, want month aggregate hours=%s net=%s", last, month.Hours, month.Net)
	}
}

func TestRollingEmptyStoreHasFullLength(t *testing.T) {
	got := Rolling(calendar.YearMonth{Year: 2025, Month: time.January}, TrendWindow, loc, Snapshot{})
	if len(got) != TrendWindow {
		t.Fatalf("len = %d", len(got))
	}
	for _, snap := range got {
		if !snap.Hours.IsZero() || !snap.Net.IsZero() {
			t.Errorf("expected zero snapshot, got %+v", snap)
		}
	}
}

func TestBarHeights(t *testing.T) {
	cases := []struct {
		net, hours    string
		netBar, hrBar float64
	}{
		{"50000", "10", 100, 100},
		{"250000", "45", 200, 200},
		{"-300", "0", 0, 0},
		{"0", "20", 0, 200},
	}
	for _, tc := range cases {
		got := BarHeights(core.MonthSnapshot{Net: d(tc.net), Hours: d(tc.hours)}, 200)
		if got.NetBar != tc.netBar || got.HoursBar != tc.hrBar {
			t.Errorf("net=%s hours=%s: bars = %v/%v, want %v/%v",
				tc.net, tc.hours, got.NetBar, got.HoursBar, tc.netBar, tc.hrBar)
		}
	}
}

func TestTotalsFromSumsAgreesWithSnapshot(t *testing.T) {
	p := core.Project{ID: 3, AgreedAmount: d("1200")}
	s := Snapshot{
		Hours:    []core.HourEntry{{ProjectID: 3, Hours: d("2.25")}, {ProjectID: 3, Hours: d("1.75")}},
		Expenses: []core.Expense{{ProjectID: 3, Amount: d("100.10")}},
	}
	fromList := ProjectTotals(p, s)
	fromSums := TotalsFromSums(p, d("4"), d("100.10"), decimal.Zero)
	if !fromList.Profit.Equal(fromSums.Profit) || !fromList.ProfitPerHour.Equal(fromSums.ProfitPerHour) {
		t.Fatalf("list %+v != sums %+v", fromList, fromSums)
	}
	eq(t, "profitPerHour", fromSums.ProfitPerHour, "274.975")
}
