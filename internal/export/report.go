// Package export turns a project and its entries into a four sheet report
// and writes it as an xlsx workbook.
package export

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"projecttracker/internal/core"
)

// Sheet names, in workbook order.
const (
	SheetOverview = "Overview"
	SheetHours    = "Hours"
	SheetExpenses = "Expenses"
	SheetPayments = "Payments"
)

// Table is one sheet. Header may be empty. Cells are already formatted
// text, except in the Numeric columns, which hold plain decimals such as
// "1234.50" and are written as numbers.
type Table struct {
	Name    string
	Header  []string
	Rows    [][]string
	Numeric []int // zero-based column indexes
}

func (t *Table) isNumeric(col int) bool {
	return slices.Contains(t.Numeric, col)
}

// Value returns the cell at row, col as a float64 for numeric columns and as
// text otherwise. A numeric cell that does not parse stays text.
func (t *Table) Value(row, col int) any {
	cell := t.Rows[row][col]
	if !t.isNumeric(col) {
		return cell
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	return v
}

// Values returns one row with Value applied to each cell.
func (t *Table) Values(row int) []any {
	out := make([]any, len(t.Rows[row]))
	for col := range out {
		out[col] = t.Value(row, col)
	}
	return out
}

type Report struct {
	ProjectID int64
	Title     string
	FileName  string
	Sheets    []Table
}

// Sheet returns the table with the given name, or nil.
func (r *Report) Sheet(name string) *Table {
	for i := range r.Sheets {
		if r.Sheets[i].Name == name {
			return &r.Sheets[i]
		}
	}
	return nil
}

// Input is everything a project report is built from.
type Input struct {
	Project  core.Project
	Totals   core.ProjectTotals
	Hours    []core.HourEntry
	Expenses []core.Expense
	Payments []core.Payment
}

// BuildReport lays out the overview and the three entry tables. Entries keep
// the order they were given in.
func BuildReport(in Input, f *Formatter, now time.Time) *Report {
	p, t := in.Project, in.Totals

	overview := Table{
		Name: SheetOverview,
		Rows: [][]string{
			{"Project", p.Name},
			{"Client", p.Client},
			{"Start Date", f.Date(p.StartDate)},
			{"Agreed Amount", f.Money(p.AgreedAmount)},
			{"Total Hours", f.Hours(t.TotalHours)},
			{"Total Expenses", f.Money(t.TotalExpenses)},
			{"Total Payments", f.Money(t.TotalPayments)},
			{"Profit", f.Money(t.Profit)},
			{"Profit/Hour", f.Money(t.ProfitPerHour)},
		},
	}

	// Entry tables keep hours and amounts numeric so the columns can be summed.
	hours := Table{Name: SheetHours, Header: []string{"Date", "Hours", "Note"}, Numeric: []int{1}}
	for _, e := range in.Hours {
		hours.Rows = append(hours.Rows, []string{f.Date(e.Date), e.Hours.StringFixed(2), e.Note})
	}

	expenses := Table{Name: SheetExpenses, Header: []string{"Date", "Amount", "Category", "Note", "HasReceipt"}, Numeric: []int{1}}
	for _, e := range in.Expenses {
		expenses.Rows = append(expenses.Rows, []string{
			f.Date(e.Date), e.Amount.StringFixed(2), e.Category, e.Note, YesNo(e.HasReceipt()),
		})
	}

	payments := Table{Name: SheetPayments, Header: []string{"Date", "Amount", "Note"}, Numeric: []int{1}}
	for _, e := range in.Payments {
		payments.Rows = append(payments.Rows, []string{f.Date(e.Date), e.Amount.StringFixed(2), e.Note})
	}

	return &Report{
		ProjectID: p.ID,
		Title:     p.Name,
		FileName:  FileName(p.Name, now),
		Sheets:    []Table{overview, hours, expenses, payments},
	}
}

var unsafeFileChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// FileName returns "{projectName}_{epochMillis}.xlsx" with path separators
// and other characters not allowed in file names replaced.
func FileName(projectName string, now time.Time) string {
	name := strings.TrimSpace(unsafeFileChars.Replace(projectName))
	if name == "" {
		name = "project"
	}
	return fmt.Sprintf("%s_%d.xlsx", name, now.UnixMilli())
}
