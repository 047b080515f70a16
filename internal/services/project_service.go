package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
	applog "projecttracker/internal/log"
	"projecttracker/internal/records"
)

// ProjectInput is a project form as typed by the user. Numbers are text and
// parse to zero when malformed.
type ProjectInput struct {
	Name         string `json:"name"`
	Client       string `json:"client"`
	StartDate    string `json:"start_date"` // YYYY-MM-DD, empty means today
	AgreedAmount string `json:"agreed_amount"`
	Description  string `json:"description"`
	Active       *bool  `json:"active,omitempty"`
}

// EntryInput is an hour, expense or payment form. Hours is read for hour
// entries, Amount for the other two kinds.
type EntryInput struct {
	Date       string `json:"date"` // YYYY-MM-DD, empty means today
	Hours      string `json:"hours,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Note       string `json:"note"`
	Category   string `json:"category,omitempty"`
	ReceiptRef string `json:"receipt_ref,omitempty"`
	SortRank   *int   `json:"sort_rank,omitempty"` // nil keeps the current rank
}

// ProjectService runs the write commands and the plain list queries.
type ProjectService struct {
	store  records.Store
	loc    *time.Location
	logger *applog.Logger
	now    func() time.Time
}

func NewProjectService(store records.Store, loc *time.Location, logger *applog.Logger) *ProjectService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentProject)
	}
	return &ProjectService{store: store, loc: loc, logger: logger.WithComponent(applog.ComponentProject), now: time.Now}
}

func (s *ProjectService) today() calendar.Date {
	return calendar.DateOf(s.now(), s.loc)
}

// parseDay turns form text into the local midnight instant of that day.
func (s *ProjectService) parseDay(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.today().Midnight(s.loc), nil
	}
	d, err := calendar.ParseDate(text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, text)
	}
	return d.Midnight(s.loc), nil
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]core.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *ProjectService) GetProject(ctx context.Context, id int64) (core.Project, error) {
	return s.store.GetProject(ctx, id)
}

// CreateProject adds a project at the end of the manual ordering.
func (s *ProjectService) CreateProject(ctx context.Context, in ProjectInput) (core.Project, error) {
	start, err := s.parseDay(in.StartDate)
	if err != nil {
		return core.Project{}, err
	}
	existing, err := s.store.ListProjects(ctx)
	if err != nil {
		return core.Project{}, fmt.Errorf("list projects: %w", err)
	}

	p := core.Project{
		Name:         strings.TrimSpace(in.Name),
		Client:       strings.TrimSpace(in.Client),
		StartDate:    start,
		AgreedAmount: core.ParseAmount(in.AgreedAmount),
		Description:  in.Description,
		Active:       in.Active == nil || *in.Active,
		SortRank:     len(existing),
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}

	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	return created, nil
}

// UpdateProject replaces the editable fields; the sort rank is kept.
func (s *ProjectService) UpdateProject(ctx context.Context, id int64, in ProjectInput) (core.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return core.Project{}, err
	}
	start, err := s.parseDay(in.StartDate)
	if err != nil {
		return core.Project{}, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Client = strings.TrimSpace(in.Client)
	p.StartDate = start
	p.AgreedAmount = core.ParseAmount(in.AgreedAmount)
	p.Description = in.Description
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return core.Project{}, fmt.Errorf("update project %d: %w", id, err)
	}
	return p, nil
}

// DeleteProject removes the project and every entry it owns.
func (s *ProjectService) DeleteProject(ctx context.Context, id int64) error {
	return s.store.DeleteProject(ctx, id)
}

// ReorderProjects gives each listed project its position as sort rank.
// Every id must exist; nothing is changed otherwise.
func (s *ProjectService) ReorderProjects(ctx context.Context, ids []int64) error {
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: duplicate project %d", core.ErrInvalidProject, id)
		}
		seen[id] = true
		if _, err := s.store.GetProject(ctx, id); err != nil {
			return err
		}
	}
	for rank, id := range ids {
		if err := s.store.SetProjectRank(ctx, id, rank); err != nil {
			return fmt.Errorf("set rank of project %d: %w", id, err)
		}
	}
	s.logger.InfoContext(ctx, "Projects reordered", "count", len(ids))
	return nil
}

func (s *ProjectService) SetSortRank(ctx context.Context, id int64, rank int) error {
	return s.store.SetProjectRank(ctx, id, rank)
}

// Entries

func (s *ProjectService) ListHours(ctx context.Context, projectID int64) ([]core.HourEntry, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListHours(ctx, records.ForProject(projectID))
}

func (s *ProjectService) ListExpenses(ctx context.Context, projectID int64) ([]core.Expense, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, records.ForProject(projectID))
}

func (s *ProjectService) ListPayments(ctx context.Context, projectID int64) ([]core.Payment, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, records.ForProject(projectID))
}

// AddEntry creates an entry of the given kind and returns it.
func (s *ProjectService) AddEntry(ctx context.Context, kind core.EntryKind, projectID int64, in EntryInput) (any, error) {
	date, err := s.parseDay(in.Date)
	if err != nil {
		return nil, err
	}

	switch kind {
	case core.KindHours:
		e := core.HourEntry{ProjectID: projectID, Date: date, Hours: core.ParseHours(in.Hours), Note: in.Note, SortRank: rankOr(in.SortRank, 0)}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return s.store.CreateHour(ctx, e)
	case core.KindExpenses:
		e := core.Expense{
			ProjectID: projectID, Date: date, Amount: core.ParseAmount(in.Amount),
			Note: strings.TrimSpace(in.Note), Category: strings.TrimSpace(in.Category),
			ReceiptRef: strings.TrimSpace(in.ReceiptRef), SortRank: rankOr(in.SortRank, 0),
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return s.store.CreateExpense(ctx, e)
	case core.KindPayments:
		p := core.Payment{ProjectID: projectID, Date: date, Amount: core.ParseAmount(in.Amount), Note: strings.TrimSpace(in.Note), SortRank: rankOr(in.SortRank, 0)}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return s.store.CreatePayment(ctx, p)
	default:
		return nil, core.ErrInvalidKind
	}
}

// UpdateEntry replaces an entry's fields. The owning project never changes
// and the sort rank only when one is given.
func (s *ProjectService) UpdateEntry(ctx context.Context, kind core.EntryKind, id int64, in EntryInput) (any, error) {
	date, err := s.parseDay(in.Date)
	if err != nil {
		return nil, err
	}

	switch kind {
	case core.KindHours:
		e, err := s.store.GetHour(ctx, id)
		if err != nil {
			return nil, err
		}
		e.Date, e.Hours, e.Note, e.SortRank = date, core.ParseHours(in.Hours), in.Note, rankOr(in.SortRank, e.SortRank)
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return e, s.store.UpdateHour(ctx, e)
	case core.KindExpenses:
		e, err := s.store.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		e.Date, e.Amount, e.SortRank = date, core.ParseAmount(in.Amount), rankOr(in.SortRank, e.SortRank)
		e.Note, e.Category, e.ReceiptRef = strings.TrimSpace(in.Note), strings.TrimSpace(in.Category), strings.TrimSpace(in.ReceiptRef)
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return e, s.store.UpdateExpense(ctx, e)
	case core.KindPayments:
		p, err := s.store.GetPayment(ctx, id)
		if err != nil {
			return nil, err
		}
		p.Date, p.Amount, p.Note, p.SortRank = date, core.ParseAmount(in.Amount), strings.TrimSpace(in.Note), rankOr(in.SortRank, p.SortRank)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, s.store.UpdatePayment(ctx, p)
	default:
		return nil, core.ErrInvalidKind
	}
}

func rankOr(rank *int, current int) int {
	if rank == nil {
		return current
	}
	return *rank
}

func (s *ProjectService) DeleteEntry(ctx context.Context, kind core.EntryKind, id int64) error {
	switch kind {
	case core.KindHours:
		return s.store.DeleteHour(ctx, id)
	case core.KindExpenses:
		return s.store.DeleteExpense(ctx, id)
	case core.KindPayments:
		return s.store.DeletePayment(ctx, id)
	default:
		return core.ErrInvalidKind
	}
}
