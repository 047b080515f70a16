package adapters

import (
	"context"
	"sync/atomic"

	"projecttracker/internal/core"
	"projecttracker/internal/records"
	"projecttracker/internal/storage"
)

// SQLiteAdapter makes SQLiteRepository a records.Store by counting
// successful writes. Reads go straight to the embedded repository.
type SQLiteAdapter struct {
	*storage.SQLiteRepository
	version atomic.Uint64
}

var _ records.Store = (*SQLiteAdapter)(nil)

func NewSQLiteAdapter(repo *storage.SQLiteRepository) *SQLiteAdapter {
	return &SQLiteAdapter{SQLiteRepository: repo}
}

// Version implements records.Versioned. It starts at zero for every process.
func (a *SQLiteAdapter) Version() uint64 { return a.version.Load() }

func (a *SQLiteAdapter) bump(err error) error {
	if err == nil {
		a.version.Add(1)
	}
	return err
}

func (a *SQLiteAdapter) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	out, err := a.SQLiteRepository.CreateProject(ctx, p)
	return out, a.bump(err)
}

func (a *SQLiteAdapter) UpdateProject(ctx context.Context, p core.Project) error {
	return a.bump(a.SQLiteRepository.UpdateProject(ctx, p))
}

func (a *SQLiteAdapter) DeleteProject(ctx context.Context, id int64) error {
	return a.bump(a.SQLiteRepository.DeleteProject(ctx, id))
}

func (a *SQLiteAdapter) SetProjectRank(ctx context.Context, id int64, rank int) error {
	return a.bump(a.SQLiteRepository.SetProjectRank(ctx, id, rank))
}

func (a *SQLiteAdapter) CreateHour(ctx context.Context, e core.HourEntry) (core.HourEntry, error) {
	out, err := a.SQLiteRepository.CreateHour(ctx, e)
	return out, a.bump(err)
}

func (a *SQLiteAdapter) UpdateHour(ctx context.Context, e core.HourEntry) error {
	return a.bump(a.SQLiteRepository.UpdateHour(ctx, e))
}

func (a *SQLiteAdapter) DeleteHour(ctx context.Context, id int64) error {
	return a.bump(a.SQLiteRepository.DeleteHour(ctx, id))
}

func (a *SQLiteAdapter) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	out, err := a.SQLiteRepository.CreateExpense(ctx, e)
	return out, a.bump(err)
}

func (a *SQLiteAdapter) UpdateExpense(ctx context.Context, e core.Expense) error {
	return a.bump(a.SQLiteRepository.UpdateExpense(ctx, e))
}

func (a *SQLiteAdapter) DeleteExpense(ctx context.Context, id int64) error {
	return a.bump(a.SQLiteRepository.DeleteExpense(ctx, id))
}

func (a *SQLiteAdapter) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	out, err := a.SQLiteRepository.CreatePayment(ctx, p)
	return out, a.bump(err)
}

func (a *SQLiteAdapter) UpdatePayment(ctx context.Context, p core.Payment) error {
	return a.bump(a.SQLiteRepository.UpdatePayment(ctx, p))
}

func (a *SQLiteAdapter) DeletePayment(ctx context.Context, id int64) error {
	return a.bump(a.SQLiteRepository.DeletePayment(ctx, id))
}
