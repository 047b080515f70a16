package storage

import (
	"context"
	"database/sql"
)

const createProject = `
INSERT INTO projects (name, client, start_date, agreed_cents, description, active, sort_rank)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, name, client, start_date, agreed_cents, description, active, sort_rank
`

type CreateProjectParams struct {
	Name        string
	Client      string
	StartDate   int64
	AgreedCents int64
	Description string
	Active      bool
	SortRank    int64
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, createProject,
		arg.Name, arg.Client, arg.StartDate, arg.AgreedCents, arg.Description, arg.Active, arg.SortRank)
	return scanProject(row)
}

const getProject = `
SELECT id, name, client, start_date, agreed_cents, description, active, sort_rank
FROM projects WHERE id = ?
`

func (q *Queries) GetProject(ctx context.Context, id int64) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, getProject, id))
}

const listProjects = `
SELECT id, name, client, start_date, agreed_cents, description, active, sort_rank
FROM projects
ORDER BY sort_rank ASC, start_date DESC, id ASC
`

func (q *Queries) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, listProjects)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		i, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const updateProject = `
UPDATE projects
SET name = ?, client = ?, start_date = ?, agreed_cents = ?, description = ?, active = ?, sort_rank = ?
WHERE id = ?
`

type UpdateProjectParams struct {
	CreateProjectParams
	ID int64
}

func (q *Queries) UpdateProject(ctx context.Context, arg UpdateProjectParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateProject,
		arg.Name, arg.Client, arg.StartDate, arg.AgreedCents, arg.Description, arg.Active, arg.SortRank, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setProjectRank = `UPDATE projects SET sort_rank = ? WHERE id = ?`

func (q *Queries) SetProjectRank(ctx context.Context, id, rank int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, setProjectRank, rank, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteProject = `DELETE FROM projects WHERE id = ?`

func (q *Queries) DeleteProject(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteProject, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const (
	deleteProjectHours    = `DELETE FROM hour_entries WHERE project_id = ?`
	deleteProjectExpenses = `DELETE FROM expenses WHERE project_id = ?`
	deleteProjectPayments = `DELETE FROM payments WHERE project_id = ?`
)

// DeleteProjectEntries removes every entry row owned by a project.
func (q *Queries) DeleteProjectEntries(ctx context.Context, projectID int64) error {
	for _, stmt := range []string{deleteProjectHours, deleteProjectExpenses, deleteProjectPayments} {
		if _, err := q.db.ExecContext(ctx, stmt, projectID); err != nil {
			return err
		}
	}
	return nil
}

// ListEntriesParams selects entries of one project (ProjectID > 0) or of
// all projects (ProjectID == 0) dated between FromMs and ToMs inclusive.
type ListEntriesParams struct {
	ProjectID int64
	FromMs    int64
	ToMs      int64
}

const entryFilter = `
WHERE (? = 0 OR project_id = ?) AND entry_date BETWEEN ? AND ?
ORDER BY sort_rank ASC, entry_date DESC, id ASC
`

func (arg ListEntriesParams) args() []interface{} {
	return []interface{}{arg.ProjectID, arg.ProjectID, arg.FromMs, arg.ToMs}
}

// Hour entries.

const hourColumns = `id, project_id, entry_date, hours_x100, note, sort_rank`

const createHourEntry = `
INSERT INTO hour_entries (project_id, entry_date, hours_x100, note, sort_rank)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + hourColumns

func (q *Queries) CreateHourEntry(ctx context.Context, arg HourEntry) (HourEntry, error) {
	row := q.db.QueryRowContext(ctx, createHourEntry, arg.ProjectID, arg.EntryDate, arg.HoursX100, arg.Note, arg.SortRank)
	return scanHourEntry(row)
}

const getHourEntry = `SELECT ` + hourColumns + ` FROM hour_entries WHERE id = ?`

func (q *Queries) GetHourEntry(ctx context.Context, id int64) (HourEntry, error) {
	return scanHourEntry(q.db.QueryRowContext(ctx, getHourEntry, id))
}

const listHourEntries = `SELECT ` + hourColumns + ` FROM hour_entries` + entryFilter

func (q *Queries) ListHourEntries(ctx context.Context, arg ListEntriesParams) ([]HourEntry, error) {
	rows, err := q.db.QueryContext(ctx, listHourEntries, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HourEntry
	for rows.Next() {
		i, err := scanHourEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const updateHourEntry = `
UPDATE hour_entries SET entry_date = ?, hours_x100 = ?, note = ?, sort_rank = ?
WHERE id = ?
`

func (q *Queries) UpdateHourEntry(ctx context.Context, arg HourEntry) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateHourEntry, arg.EntryDate, arg.HoursX100, arg.Note, arg.SortRank, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteHourEntry = `DELETE FROM hour_entries WHERE id = ?`

func (q *Queries) DeleteHourEntry(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteHourEntry, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumHours = `SELECT SUM(hours_x100) FROM hour_entries WHERE project_id = ?`

func (q *Queries) SumHours(ctx context.Context, projectID int64) (sql.NullInt64, error) {
	var total sql.NullInt64
	err := q.db.QueryRowContext(ctx, sumHours, projectID).Scan(&total)
	return total, err
}

// Expenses.

const expenseColumns = `id, project_id, entry_date, amount_cents, note, category, receipt_ref, sort_rank`

const createExpense = `
INSERT INTO expenses (project_id, entry_date, amount_cents, note, category, receipt_ref, sort_rank)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

func (q *Queries) CreateExpense(ctx context.Context, arg Expense) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ProjectID, arg.EntryDate, arg.AmountCents, arg.Note, arg.Category, arg.ReceiptRef, arg.SortRank)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses` + entryFilter

func (q *Queries) ListExpenses(ctx context.Context, arg ListEntriesParams) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const updateExpense = `
UPDATE expenses SET entry_date = ?, amount_cents = ?, note = ?, category = ?, receipt_ref = ?, sort_rank = ?
WHERE id = ?
`

func (q *Queries) UpdateExpense(ctx context.Context, arg Expense) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense,
		arg.EntryDate, arg.AmountCents, arg.Note, arg.Category, arg.ReceiptRef, arg.SortRank, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumExpenses = `SELECT SUM(amount_cents) FROM expenses WHERE project_id = ?`

func (q *Queries) SumExpenses(ctx context.Context, projectID int64) (sql.NullInt64, error) {
	var total sql.NullInt64
	err := q.db.QueryRowContext(ctx, sumExpenses, projectID).Scan(&total)
	return total, err
}

// Payments.

const paymentColumns = `id, project_id, entry_date, amount_cents, note, sort_rank`

const createPayment = `
INSERT INTO payments (project_id, entry_date, amount_cents, note, sort_rank)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + paymentColumns

func (q *Queries) CreatePayment(ctx context.Context, arg Payment) (Payment, error) {
	row := q.db.QueryRowContext(ctx, createPayment, arg.ProjectID, arg.EntryDate, arg.AmountCents, arg.Note, arg.SortRank)
	return scanPayment(row)
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`

func (q *Queries) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(q.db.QueryRowContext(ctx, getPayment, id))
}

const listPayments = `SELECT ` + paymentColumns + ` FROM payments` + entryFilter

func (q *Queries) ListPayments(ctx context.Context, arg ListEntriesParams) ([]Payment, error) {
	rows, err := q.db.QueryContext(ctx, listPayments, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const updatePayment = `
UPDATE payments SET entry_date = ?, amount_cents = ?, note = ?, sort_rank = ?
WHERE id = ?
`

func (q *Queries) UpdatePayment(ctx context.Context, arg Payment) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePayment, arg.EntryDate, arg.AmountCents, arg.Note, arg.SortRank, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePayment = `DELETE FROM payments WHERE id = ?`

func (q *Queries) DeletePayment(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePayment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumPayments = `SELECT SUM(amount_cents) FROM payments WHERE project_id = ?`

func (q *Queries) SumPayments(ctx context.Context, projectID int64) (sql.NullInt64, error) {
	var total sql.NullInt64
	err := q.db.QueryRowContext(ctx, sumPayments, projectID).Scan(&total)
	return total, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(s scanner) (Project, error) {
	var i Project
	err := s.Scan(&i.ID, &i.Name, &i.Client, &i.StartDate, &i.AgreedCents, &i.Description, &i.Active, &i.SortRank)
	return i, err
}

func scanHourEntry(s scanner) (HourEntry, error) {
	var i HourEntry
	err := s.Scan(&i.ID, &i.ProjectID, &i.EntryDate, &i.HoursX100, &i.Note, &i.SortRank)
	return i, err
}

func scanExpense(s scanner) (Expense, error) {
	var i Expense
	err := s.Scan(&i.ID, &i.ProjectID, &i.EntryDate, &i.AmountCents, &i.Note, &i.Category, &i.ReceiptRef, &i.SortRank)
	return i, err
}

func scanPayment(s scanner) (Payment, error) {
	var i Payment
	err := s.Scan(&i.ID, &i.ProjectID, &i.EntryDate, &i.AmountCents, &i.Note, &i.SortRank)
	return i, err
}
