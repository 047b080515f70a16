// Package records defines the ports between the record store and the rest
// of the application: a narrow read side used by the statistics engine and
// a command side used by the API and CLI.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
)

var ErrNotFound = errors.New("record not found")

// Filter narrows an entry query. ProjectID zero means every project and a
// nil Range means every date. Range bounds are inclusive.
type Filter struct {
	ProjectID int64
	Range     *calendar.Range
}

// ForProject lists every entry of one project.
func ForProject(id int64) Filter { return Filter{ProjectID: id} }

// ForProjectInRange lists one project's entries dated inside r.
func ForProjectInRange(id int64, r calendar.Range) Filter {
	return Filter{ProjectID: id, Range: &r}
}

// InRange lists entries of every project dated inside r.
func InRange(r calendar.Range) Filter { return Filter{Range: &r} }

// Matches applies the filter to one entry's project and date.
func (f Filter) Matches(projectID int64, date time.Time) bool {
	if f.ProjectID != core.NoProject && f.ProjectID != projectID {
		return false
	}
	if f.Range == nil {
		return true
	}
	return f.Range.Contains(date)
}

// Ports for the record store.
type (
	ProjectReader interface {
		// ListProjects returns projects by sort rank, then newest start date.
		ListProjects(ctx context.Context) ([]core.Project, error)
		GetProject(ctx context.Context, id int64) (core.Project, error)
	}

	// EntryQuerier is the read side consumed by aggregation. Lists are
	// ordered by sort rank, then newest date first.
	EntryQuerier interface {
		ListHours(ctx context.Context, f Filter) ([]core.HourEntry, error)
		ListExpenses(ctx context.Context, f Filter) ([]core.Expense, error)
		ListPayments(ctx context.Context, f Filter) ([]core.Payment, error)
		// Sum adds up one field of a project's entries. The result is not
		// Valid when the project has no entries of that kind.
		Sum(ctx context.Context, kind core.EntryKind, projectID int64) (decimal.NullDecimal, error)
	}

	// Versioned stores bump their version on every successful write.
	Versioned interface {
		Version() uint64
	}

	ProjectWriter interface {
		CreateProject(ctx context.Context, p core.Project) (core.Project, error)
		UpdateProject(ctx context.Context, p core.Project) error
		// DeleteProject removes the project together with all its entries.
		DeleteProject(ctx context.Context, id int64) error
		SetProjectRank(ctx context.Context, id int64, rank int) error
	}

	EntryWriter interface {
		GetHour(ctx context.Context, id int64) (core.HourEntry, error)
		CreateHour(ctx context.Context, e core.HourEntry) (core.HourEntry, error)
		UpdateHour(ctx context.Context, e core.HourEntry) error
		DeleteHour(ctx context.Context, id int64) error

		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error

		GetPayment(ctx context.Context, id int64) (core.Payment, error)
		CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
		UpdatePayment(ctx context.Context, p core.Payment) error
		DeletePayment(ctx context.Context, id int64) error
	}

	// Store is everything a backend provides.
	Store interface {
		ProjectReader
		EntryQuerier
		ProjectWriter
		EntryWriter
		Versioned
		Close() error
	}
)
