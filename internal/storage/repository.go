package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"projecttracker/internal/core"
	"projecttracker/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path is the database file on disk.
func (r *SQLiteRepository) Path() string { return r.path }

// BackupTo writes a consistent copy of the database to dest.
func (r *SQLiteRepository) BackupTo(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	slog.InfoContext(ctx, "Database copied", "dest", dest)
	return nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.queries.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]core.Project, len(rows))
	for i, p := range rows {
		out[i] = toCoreProject(p)
	}
	return out, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	p, err := r.queries.GetProject(ctx, id)
	if err != nil {
		return core.Project{}, notFound(err, "get project %d", id)
	}
	return toCoreProject(p), nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	row, err := r.queries.CreateProject(ctx, projectParams(p))
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	slog.InfoContext(ctx, "Project saved to SQLite", "id", row.ID, "name", row.Name)
	return toCoreProject(row), nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateProject(ctx, UpdateProjectParams{CreateProjectParams: projectParams(p), ID: p.ID})
	if err := affected(n, err, "update project %d", p.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Project updated", "id", p.ID)
	return nil
}

func (r *SQLiteRepository) SetProjectRank(ctx context.Context, id int64, rank int) error {
	n, err := r.queries.SetProjectRank(ctx, id, int64(rank))
	return affected(n, err, "set rank of project %d", id)
}

// DeleteProject removes the project and its entries in one transaction.
func (r *SQLiteRepository) DeleteProject(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteProjectEntries(ctx, id); err != nil {
		return fmt.Errorf("delete entries of project %d: %w", id, err)
	}
	n, err := q.DeleteProject(ctx, id)
	if err := affected(n, err, "delete project %d", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.InfoContext(ctx, "Project deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) ListHours(ctx context.Context, f records.Filter) ([]core.HourEntry, error) {
	rows, err := r.queries.ListHourEntries(ctx, listParams(f))
	if err != nil {
		return nil, fmt.Errorf("list hour entries: %w", err)
	}
	out := make([]core.HourEntry, len(rows))
	for i, e := range rows {
		out[i] = toCoreHour(e)
	}
	return out, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, f records.Filter) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx, listParams(f))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, len(rows))
	for i, e := range rows {
		out[i] = toCoreExpense(e)
	}
	return out, nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, f records.Filter) ([]core.Payment, error) {
	rows, err := r.queries.ListPayments(ctx, listParams(f))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]core.Payment, len(rows))
	for i, p := range rows {
		out[i] = toCorePayment(p)
	}
	return out, nil
}

func (r *SQLiteRepository) Sum(ctx context.Context, kind core.EntryKind, projectID int64) (decimal.NullDecimal, error) {
	var (
		total sql.NullInt64
		err   error
	)
	switch kind {
	case core.KindHours:
		total, err = r.queries.SumHours(ctx, projectID)
	case core.KindExpenses:
		total, err = r.queries.SumExpenses(ctx, projectID)
	case core.KindPayments:
		total, err = r.queries.SumPayments(ctx, projectID)
	default:
		return decimal.NullDecimal{}, core.ErrInvalidKind
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("sum %s of project %d: %w", kind, projectID, err)
	}
	if !total.Valid {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(core.FromHundredths(total.Int64)), nil
}

func (r *SQLiteRepository) GetHour(ctx context.Context, id int64) (core.HourEntry, error) {
	e, err := r.queries.GetHourEntry(ctx, id)
	if err != nil {
		return core.HourEntry{}, notFound(err, "get hour entry %d", id)
	}
	return toCoreHour(e), nil
}

func (r *SQLiteRepository) CreateHour(ctx context.Context, e core.HourEntry) (core.HourEntry, error) {
	if err := e.Validate(); err != nil {
		return core.HourEntry{}, err
	}
	if _, err := r.GetProject(ctx, e.ProjectID); err != nil {
		return core.HourEntry{}, err
	}
	row, err := r.queries.CreateHourEntry(ctx, hourRow(e))
	if err != nil {
		return core.HourEntry{}, fmt.Errorf("create hour entry: %w", err)
	}
	slog.InfoContext(ctx, "Hour entry saved to SQLite", "id", row.ID, "project_id", row.ProjectID, "hours_x100", row.HoursX100)
	return toCoreHour(row), nil
}

func (r *SQLiteRepository) UpdateHour(ctx context.Context, e core.HourEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateHourEntry(ctx, hourRow(e))
	if err := affected(n, err, "update hour entry %d", e.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Hour entry updated", "id", e.ID)
	return nil
}

func (r *SQLiteRepository) DeleteHour(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteHourEntry(ctx, id)
	if err := affected(n, err, "delete hour entry %d", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Hour entry deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := r.queries.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, notFound(err, "get expense %d", id)
	}
	return toCoreExpense(e), nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := r.GetProject(ctx, e.ProjectID); err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.CreateExpense(ctx, expenseRow(e))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense saved to SQLite", "id", row.ID, "project_id", row.ProjectID, "amount_cents", row.AmountCents)
	return toCoreExpense(row), nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateExpense(ctx, expenseRow(e))
	if err := affected(n, err, "update expense %d", e.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense updated", "id", e.ID)
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err := affected(n, err, "delete expense %d", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.Payment, error) {
	p, err := r.queries.GetPayment(ctx, id)
	if err != nil {
		return core.Payment{}, notFound(err, "get payment %d", id)
	}
	return toCorePayment(p), nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if _, err := r.GetProject(ctx, p.ProjectID); err != nil {
		return core.Payment{}, err
	}
	row, err := r.queries.CreatePayment(ctx, paymentRow(p))
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment saved to SQLite", "id", row.ID, "project_id", row.ProjectID, "amount_cents", row.AmountCents)
	return toCorePayment(row), nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdatePayment(ctx, paymentRow(p))
	if err := affected(n, err, "update payment %d", p.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Payment updated", "id", p.ID)
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id int64) error {
	n, err := r.queries.DeletePayment(ctx, id)
	if err := affected(n, err, "delete payment %d", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Payment deleted", "id", id)
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, records.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func affected(n int64, err error, format string, args ...any) error {
	if err != nil {
		return fmt.Errorf(format+": %w", append(args, err)...)
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", append(args, records.ErrNotFound)...)
	}
	return nil
}

func listParams(f records.Filter) ListEntriesParams {
	p := ListEntriesParams{ProjectID: f.ProjectID, FromMs: math.MinInt64, ToMs: math.MaxInt64}
	if f.Range != nil {
		p.FromMs = f.Range.StartMillis()
		p.ToMs = f.Range.EndMillis()
	}
	return p
}

func projectParams(p core.Project) CreateProjectParams {
	return CreateProjectParams{
		Name:        p.Name,
		Client:      p.Client,
		StartDate:   p.StartDate.UnixMilli(),
		AgreedCents: core.ToHundredths(p.AgreedAmount),
		Description: p.Description,
		Active:      p.Active,
		SortRank:    int64(p.SortRank),
	}
}

func toCoreProject(p Project) core.Project {
	return core.Project{
		ID:           p.ID,
		Name:         p.Name,
		Client:       p.Client,
		StartDate:    time.UnixMilli(p.StartDate),
		AgreedAmount: core.FromHundredths(p.AgreedCents),
		Description:  p.Description,
		Active:       p.Active,
		SortRank:     int(p.SortRank),
	}
}

func hourRow(e core.HourEntry) HourEntry {
	return HourEntry{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		EntryDate: e.Date.UnixMilli(),
		HoursX100: core.ToHundredths(e.Hours),
		Note:      e.Note,
		SortRank:  int64(e.SortRank),
	}
}

func toCoreHour(e HourEntry) core.HourEntry {
	return core.HourEntry{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		Date:      time.UnixMilli(e.EntryDate),
		Hours:     core.FromHundredths(e.HoursX100),
		Note:      e.Note,
		SortRank:  int(e.SortRank),
	}
}

func expenseRow(e core.Expense) Expense {
	return Expense{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		EntryDate:   e.Date.UnixMilli(),
		AmountCents: core.ToHundredths(e.Amount),
		Note:        e.Note,
		Category:    e.Category,
		ReceiptRef:  e.ReceiptRef,
		SortRank:    int64(e.SortRank),
	}
}

func toCoreExpense(e Expense) core.Expense {
	return core.Expense{
		ID:         e.ID,
		ProjectID:  e.ProjectID,
		Date:       time.UnixMilli(e.EntryDate),
		Amount:     core.FromHundredths(e.AmountCents),
		Note:       e.Note,
		Category:   e.Category,
		ReceiptRef: e.ReceiptRef,
		SortRank:   int(e.SortRank),
	}
}

func paymentRow(p core.Payment) Payment {
	return Payment{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		EntryDate:   p.Date.UnixMilli(),
		AmountCents: core.ToHundredths(p.Amount),
		Note:        p.Note,
		SortRank:    int64(p.SortRank),
	}
}

func toCorePayment(p Payment) core.Payment {
	return core.Payment{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		Date:      time.UnixMilli(p.EntryDate),
		Amount:    core.FromHundredths(p.AmountCents),
		Note:      p.Note,
		SortRank:  int(p.SortRank),
	}
}
