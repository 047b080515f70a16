package http

import (
	"time"

	"github.com/shopspring/decimal"

	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
)

// Response bodies. Amounts are fixed two-decimal strings and dates are
// YYYY-MM-DD in the server's zone.

type projectView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Client       string `json:"client"`
	StartDate    string `json:"start_date"`
	AgreedAmount string `json:"agreed_amount"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	SortRank     int    `json:"sort_rank"`
}

type hourView struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Date      string `json:"date"`
	Hours     string `json:"hours"`
	Note      string `json:"note"`
	SortRank  int    `json:"sort_rank"`
}

type expenseView struct {
	ID         int64  `json:"id"`
	ProjectID  int64  `json:"project_id"`
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	Note       string `json:"note"`
	Category   string `json:"category"`
	ReceiptRef string `json:"receipt_ref,omitempty"`
	HasReceipt bool   `json:"has_receipt"`
	SortRank   int    `json:"sort_rank"`
}

type paymentView struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Note      string `json:"note"`
	SortRank  int    `json:"sort_rank"`
}

type projectTotalsView struct {
	ProjectID     int64  `json:"project_id"`
	TotalHours    string `json:"total_hours"`
	TotalExpenses string `json:"total_expenses"`
	TotalPayments string `json:"total_payments"`
	Profit        string `json:"profit"`
	ProfitPerHour string `json:"profit_per_hour"`
}

type dayTotalsView struct {
	ProjectID int64  `json:"project_id"`
	Date      string `json:"date"`
	Hours     string `json:"hours"`
	Expenses  string `json:"expenses"`
	Payments  string `json:"payments"`
}

type monthProjectView struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Hours     string `json:"hours"`
	Payments  string `json:"payments"`
}

type monthTotalsView struct {
	Month        string             `json:"month"`
	Hours        string             `json:"hours"`
	Costs        string             `json:"costs"`
	Income       string             `json:"income"`
	Net          string             `json:"net"`
	DaysWithWork []string           `json:"days_with_work"`
	Projects     []monthProjectView `json:"projects"`
}

type trendPointView struct {
	Month    string  `json:"month"`
	Hours    string  `json:"hours"`
	Net      string  `json:"net"`
	HoursBar float64 `json:"hours_bar"`
	NetBar   float64 `json:"net_bar"`
}

type selectionView struct {
	ProjectID int64  `json:"project_id"`
	Date      string `json:"date"`
	Month     string `json:"month"`
}

type dashboardView struct {
	Selection selectionView    `json:"selection"`
	Day       dayTotalsView    `json:"day"`
	Month     monthTotalsView  `json:"month"`
	Trend     []trendPointView `json:"trend"`
}

type jobView struct {
	Type      string `json:"type"`
	ProjectID int64  `json:"project_id,omitempty"`
	Target    string `json:"target"`
	RequestID string `json:"request_id"`
}

func fixed(d decimal.Decimal) string { return d.StringFixed(2) }

func dateString(t time.Time, loc *time.Location) string {
	return calendar.DateOf(t, loc).String()
}

func toProjectView(p core.Project, loc *time.Location) projectView {
	return projectView{
		ID:           p.ID,
		Name:         p.Name,
		Client:       p.Client,
		StartDate:    dateString(p.StartDate, loc),
		AgreedAmount: fixed(p.AgreedAmount),
		Description:  p.Description,
		Active:       p.Active,
		SortRank:     p.SortRank,
	}
}

func toProjectViews(ps []core.Project, loc *time.Location) []projectView {
	out := make([]projectView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProjectView(p, loc))
	}
	return out
}

func toHourView(e core.HourEntry, loc *time.Location) hourView {
	return hourView{ID: e.ID, ProjectID: e.ProjectID, Date: dateString(e.Date, loc), Hours: fixed(e.Hours), Note: e.Note, SortRank: e.SortRank}
}

func toExpenseView(e core.Expense, loc *time.Location) expenseView {
	return expenseView{
		ID: e.ID, ProjectID: e.ProjectID, Date: dateString(e.Date, loc), Amount: fixed(e.Amount),
		Note: e.Note, Category: e.Category, ReceiptRef: e.ReceiptRef, HasReceipt: e.HasReceipt(), SortRank: e.SortRank,
	}
}

func toPaymentView(p core.Payment, loc *time.Location) paymentView {
	return paymentView{ID: p.ID, ProjectID: p.ProjectID, Date: dateString(p.Date, loc), Amount: fixed(p.Amount), Note: p.Note, SortRank: p.SortRank}
}

// toEntryView converts whatever ProjectService.AddEntry or UpdateEntry returned.
func toEntryView(v any, loc *time.Location) any {
	switch e := v.(type) {
	case core.HourEntry:
		return toHourView(e, loc)
	case core.Expense:
		return toExpenseView(e, loc)
	case core.Payment:
		return toPaymentView(e, loc)
	default:
		return v
	}
}

func toTotalsView(t core.ProjectTotals) projectTotalsView {
	return projectTotalsView{
		ProjectID:     t.ProjectID,
		TotalHours:    fixed(t.TotalHours),
		TotalExpenses: fixed(t.TotalExpenses),
		TotalPayments: fixed(t.TotalPayments),
		Profit:        fixed(t.Profit),
		ProfitPerHour: fixed(t.ProfitPerHour),
	}
}

func toDayView(d core.DayTotals) dayTotalsView {
	return dayTotalsView{ProjectID: d.ProjectID, Date: d.Date.String(), Hours: fixed(d.Hours), Expenses: fixed(d.Expenses), Payments: fixed(d.Payments)}
}

func toMonthView(m core.MonthTotals) monthTotalsView {
	v := monthTotalsView{
		Month:        m.Month.String(),
		Hours:        fixed(m.Hours),
		Costs:        fixed(m.Costs),
		Income:       fixed(m.Income),
		Net:          fixed(m.Net),
		DaysWithWork: make([]string, 0, len(m.DaysWithWork)),
		Projects:     make([]monthProjectView, 0, len(m.Projects)),
	}
	for _, d := range m.DaysWithWork {
		v.DaysWithWork = append(v.DaysWithWork, d.String())
	}
	for _, p := range m.Projects {
		v.Projects = append(v.Projects, monthProjectView{ProjectID: p.Project.ID, Name: p.Project.Name, Hours: fixed(p.Hours), Payments: fixed(p.Payments)})
	}
	return v
}

func toTrendView(points []core.TrendPoint) []trendPointView {
	out := make([]trendPointView, 0, len(points))
	for _, p := range points {
		out = append(out, trendPointView{Month: p.Month.String(), Hours: fixed(p.Hours), Net: fixed(p.Net), HoursBar: p.HoursBar, NetBar: p.NetBar})
	}
	return out
}

func toDashboardView(d core.Dashboard) dashboardView {
	return dashboardView{
		Selection: selectionView{ProjectID: d.Selection.ProjectID, Date: d.Selection.Date.String(), Month: d.Selection.Month.String()},
		Day:       toDayView(d.Day),
		Month:     toMonthView(d.Month),
		Trend:     toTrendView(d.Trend),
	}
}
