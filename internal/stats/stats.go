// Package stats derives project, day, month and trend rollups from snapshots
// of the three entry streams. Every function is a pure reducer: it reads
// the snapshot it is given and returns a new value.
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
)

const (
	// TrendWindow is the number of months in the rolling series.
	TrendWindow = 4
	// NetBarCap and HoursBarCap are the values that fill a whole bar.
	// Larger values are clipped, never rescaled.
	NetBarCap   = 100000
	HoursBarCap = 20
)

// Snapshot is an immutable view of the entry streams at one store version.
// A snapshot may hold every entry or only those of a range or project; each
// reducer applies its own filters.
type Snapshot struct {
	Hours    []core.HourEntry
	Expenses []core.Expense
	Payments []core.Payment
}

func sum[T any](items []T, keep func(T) bool, value func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if keep(it) {
			total = total.Add(value(it))
		}
	}
	return total
}

func hoursOf(e core.HourEntry) decimal.Decimal { return e.Hours }
func expenseOf(e core.Expense) decimal.Decimal { return e.Amount }
func paymentOf(p core.Payment) decimal.Decimal { return p.Amount }
func hourProject(e core.HourEntry) int64 { return e.ProjectID }
func hourDate(e core.HourEntry) time.Time { return e.Date }
func expenseProject(e core.Expense) int64 { return e.ProjectID }
func expenseDate(e core.Expense) time.Time { return e.Date }
func paymentProject(p core.Payment) int64 { return p.ProjectID }
func paymentDate(p core.Payment) time.Time { return p.Date }

func inProject[T any](id int64, project func(T) int64) func(T) bool {
	return func(v T) bool { return project(v) == id }
}

func inRange[T any](r calendar.Range, date func(T) time.Time) func(T) bool {
	return func(v T) bool { return r.Contains(date(v)) }
}

func both[T any](a, b func(T) bool) func(T) bool {
	return func(v T) bool { return a(v) && b(v) }
}

// ProjectTotals sums every entry of p found in s.
func ProjectTotals(p core.Project, s Snapshot) core.ProjectTotals {
	return TotalsFromSums(p,
		sum(s.Hours, inProject(p.ID, hourProject), hoursOf),
		sum(s.Expenses, inProject(p.ID, expenseProject), expenseOf),
		sum(s.Payments, inProject(p.ID, paymentProject), paymentOf),
	)
}

// TotalsFromSums derives profit figures from already summed streams, as
// returned by a store-side sum.
func TotalsFromSums(p core.Project, hours, expenses, payments decimal.Decimal) core.ProjectTotals {
	profit := p.AgreedAmount.Sub(expenses)
	perHour := decimal.Zero
	if hours.IsPositive() {
		perHour = profit.Div(hours)
	}
	return core.ProjectTotals{
		ProjectID:     p.ID,
		TotalHours:    hours,
		TotalExpenses: expenses,
		TotalPayments: payments,
		Profit:        profit,
		ProfitPerHour: perHour,
	}
}

// DayTotals sums one project's entries dated on day in loc. With no project
// selected every figure is zero.
func DayTotals(projectID int64, day calendar.Date, loc *time.Location, s Snapshot) core.DayTotals {
	out := core.DayTotals{
		ProjectID: projectID,
		Date:      day,
		Hours:     decimal.Zero,
		Expenses:  decimal.Zero,
		Payments:  decimal.Zero,
	}
	if projectID == core.NoProject {
		return out
	}
	r := day.Range(loc)
	out.Hours = sum(s.Hours, both(inProject(projectID, hourProject), inRange(r, hourDate)), hoursOf)
	out.Expenses = sum(s.Expenses, both(inProject(projectID, expenseProject), inRange(r, expenseDate)), expenseOf)
	out.Payments = sum(s.Payments, both(inProject(projectID, paymentProject), inRange(r, paymentDate)), paymentOf)
	return out
}

// MonthTotals aggregates all projects over month. The breakdown follows the
// order of projects and leaves out a project only when both its hours and
// its payments for the month are zero.
func MonthTotals(month calendar.YearMonth, loc *time.Location, projects []core.Project, s Snapshot) core.MonthTotals {
	r := month.Range(loc)
	hoursIn := inRange(r, hourDate)
	paymentsIn := inRange(r, paymentDate)

	out := monthSums(month, r, s)
	out.DaysWithWork = daysWithWork(s.Hours, r, loc)
	out.Projects = []core.MonthProjectStat{}
	for _, p := range projects {
		h := sum(s.Hours, both(hoursIn, inProject(p.ID, hourProject)), hoursOf)
		pay := sum(s.Payments, both(paymentsIn, inProject(p.ID, paymentProject)), paymentOf)
		if h.IsZero() && pay.IsZero() {
			continue
		}
		out.Projects = append(out.Projects, core.MonthProjectStat{Project: p, Hours: h, Payments: pay})
	}
	return out
}

func monthSums(month calendar.YearMonth, r calendar.Range, s Snapshot) core.MonthTotals {
	hours := sum(s.Hours, inRange(r, hourDate), hoursOf)
	costs := sum(s.Expenses, inRange(r, expenseDate), expenseOf)
	income := sum(s.Payments, inRange(r, paymentDate), paymentOf)
	return core.MonthTotals{
		Month:  month,
		Hours:  hours,
		Costs:  costs,
		Income: income,
		Net:    income.Sub(costs),
	}
}

func daysWithWork(hours []core.HourEntry, r calendar.Range, loc *time.Location) []calendar.Date {
	seen := make(map[calendar.Date]struct{})
	days := []calendar.Date{}
	for _, e := range hours {
		if !r.Contains(e.Date) {
			continue
		}
		d := calendar.DateOf(e.Date, loc)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Rolling returns window month snapshots ending at anchor, oldest first.
// Each month is computed on its own boundaries, so the last element always
// matches MonthTotals(anchor).
func Rolling(anchor calendar.YearMonth, window int, loc *time.Location, s Snapshot) []core.MonthSnapshot {
	months := calendar.Window(anchor, window)
	out := make([]core.MonthSnapshot, 0, len(months))
	for _, m := range months {
		t := monthSums(m, m.Range(loc), s)
		out = append(out, core.MonthSnapshot{Month: m, Hours: t.Hours, Net: t.Net})
	}
	return out
}

// Trend is Rolling with bar heights scaled against height.
func Trend(anchor calendar.YearMonth, window int, loc *time.Location, s Snapshot, height float64) []core.TrendPoint {
	snaps := Rolling(anchor, window, loc, s)
	out := make([]core.TrendPoint, len(snaps))
	for i, snap := range snaps {
		out[i] = BarHeights(snap, height)
	}
	return out
}

// BarHeights scales net against NetBarCap and hours against HoursBarCap,
// clamping each fraction to [0, 1] before multiplying by height.
func BarHeights(snap core.MonthSnapshot, height float64) core.TrendPoint {
	return core.TrendPoint{
		MonthSnapshot: snap,
		NetBar:        scale(snap.Net, NetBarCap) * height,
		HoursBar:      scale(snap.Hours, HoursBarCap) * height,
	}
}

func scale(v decimal.Decimal, limit int64) float64 {
	f := v.Div(decimal.NewFromInt(limit)).InexactFloat64()
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
