package core

import (
	"github.com/shopspring/decimal"

	"projecttracker/internal/calendar"
)

// ProjectTotals is the all-time rollup of one project.
//
// Profit is measured against the agreed contract amount, not against the
// payments actually received. MonthTotals.Net is the cash-flow figure.
type ProjectTotals struct {
	ProjectID     int64
	TotalHours    decimal.Decimal
	TotalExpenses decimal.Decimal
	TotalPayments decimal.Decimal
	Profit        decimal.Decimal
	ProfitPerHour decimal.Decimal
}

// DayTotals holds one project's sums for a single calendar day.
type DayTotals struct {
	ProjectID int64
	Date      calendar.Date
	Hours     decimal.Decimal
	Expenses  decimal.Decimal
	Payments  decimal.Decimal
}

// MonthProjectStat is one row of the per-project month breakdown.
type MonthProjectStat struct {
	Project  Project
	Hours    decimal.Decimal
	Payments decimal.Decimal
}

// MonthTotals aggregates every project over one calendar month.
type MonthTotals struct {
	Month  calendar.YearMonth
	Hours  decimal.Decimal
	Costs  decimal.Decimal
	Income decimal.Decimal
	Net    decimal.Decimal // Income - Costs

	// DaysWithWork lists each day of the month with at least one hour entry, ascending.
	DaysWithWork []calendar.Date
	Projects     []MonthProjectStat
}

// MonthSnapshot is one point of the rolling trend.
type MonthSnapshot struct {
	Month calendar.YearMonth
	Hours decimal.Decimal
	Net   decimal.Decimal
}

// TrendPoint is a MonthSnapshot with its bar heights already scaled.
type TrendPoint struct {
	MonthSnapshot
	NetBar   float64
	HoursBar float64
}

// Selection is what the statistics view is currently looking at.
type Selection struct {
	ProjectID int64
	Date      calendar.Date
	Month     calendar.YearMonth
}

// Dashboard is the combined statistics result for one Selection.
type Dashboard struct {
	Selection Selection
	Day       DayTotals
	Month     MonthTotals
	Trend     []TrendPoint
}
