// Package memory is an in-process record store used by tests and the
// memory backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"projecttracker/internal/core"
	"projecttracker/internal/records"
)

type Store struct {
	mu       sync.RWMutex
	version  atomic.Uint64
	nextID   int64
	projects map[int64]core.Project
	hours    map[int64]core.HourEntry
	expenses map[int64]core.Expense
	payments map[int64]core.Payment
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		projects: map[int64]core.Project{},
		hours:    map[int64]core.HourEntry{},
		expenses: map[int64]core.Expense{},
		payments: map[int64]core.Payment{},
	}
}

func (s *Store) Version() uint64 { return s.version.Load() }

func (s *Store) Close() error { return nil }

// id returns the next identifier; callers hold the write lock.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) ListProjects(_ context.Context) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return byRankThenNewest(out[i].SortRank, out[j].SortRank, out[i].StartDate, out[j].StartDate, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) GetProject(_ context.Context, id int64) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, fmt.Errorf("project %d: %w", id, records.ErrNotFound)
	}
	return p, nil
}

func (s *Store) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.projects[p.ID] = p
	s.version.Add(1)
	return p, nil
}

func (s *Store) UpdateProject(_ context.Context, p core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return fmt.Errorf("project %d: %w", p.ID, records.ErrNotFound)
	}
	s.projects[p.ID] = p
	s.version.Add(1)
	return nil
}

func (s *Store) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, records.ErrNotFound)
	}
	delete(s.projects, id)
	deleteWhere(s.hours, func(e core.HourEntry) bool { return e.ProjectID == id })
	deleteWhere(s.expenses, func(e core.Expense) bool { return e.ProjectID == id })
	deleteWhere(s.payments, func(p core.Payment) bool { return p.ProjectID == id })
	s.version.Add(1)
	return nil
}

func (s *Store) SetProjectRank(_ context.Context, id int64, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %d: %w", id, records.ErrNotFound)
	}
	p.SortRank = rank
	s.projects[id] = p
	s.version.Add(1)
	return nil
}

func (s *Store) ListHours(_ context.Context, f records.Filter) ([]core.HourEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.hours, func(e core.HourEntry) bool { return f.Matches(e.ProjectID, e.Date) })
	sort.Slice(out, func(i, j int) bool {
		return byRankThenNewest(out[i].SortRank, out[j].SortRank, out[i].Date, out[j].Date, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, f records.Filter) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.expenses, func(e core.Expense) bool { return f.Matches(e.ProjectID, e.Date) })
	sort.Slice(out, func(i, j int) bool {
		return byRankThenNewest(out[i].SortRank, out[j].SortRank, out[i].Date, out[j].Date, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) ListPayments(_ context.Context, f records.Filter) ([]core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := collect(s.payments, func(p core.Payment) bool { return f.Matches(p.ProjectID, p.Date) })
	sort.Slice(out, func(i, j int) bool {
		return byRankThenNewest(out[i].SortRank, out[j].SortRank, out[i].Date, out[j].Date, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) Sum(_ context.Context, kind core.EntryKind, projectID int64) (decimal.NullDecimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		total decimal.Decimal
		n     int
	)
	switch kind {
	case core.KindHours:
		for _, e := range s.hours {
			if e.ProjectID == projectID {
				total, n = total.Add(e.Hours), n+1
			}
		}
	case core.KindExpenses:
		for _, e := range s.expenses {
			if e.ProjectID == projectID {
				total, n = total.Add(e.Amount), n+1
			}
		}
	case core.KindPayments:
		for _, p := range s.payments {
			if p.ProjectID == projectID {
				total, n = total.Add(p.Amount), n+1
			}
		}
	default:
		return decimal.NullDecimal{}, core.ErrInvalidKind
	}
	if n == 0 {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(total), nil
}

func (s *Store) GetHour(_ context.Context, id int64) (core.HourEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.hours[id]
	if !ok {
		return core.HourEntry{}, fmt.Errorf("hour entry %d: %w", id, records.ErrNotFound)
	}
	return e, nil
}

func (s *Store) CreateHour(_ context.Context, e core.HourEntry) (core.HourEntry, error) {
	if err := e.Validate(); err != nil {
		return core.HourEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProject(e.ProjectID); err != nil {
		return core.HourEntry{}, err
	}
	e.ID = s.id()
	e.Hours = normalize(e.Hours)
	s.hours[e.ID] = e
	s.version.Add(1)
	return e, nil
}

func (s *Store) UpdateHour(_ context.Context, e core.HourEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.hours[e.ID]
	if !ok {
		return fmt.Errorf("hour entry %d: %w", e.ID, records.ErrNotFound)
	}
	e.ProjectID = old.ProjectID
	e.Hours = normalize(e.Hours)
	s.hours[e.ID] = e
	s.version.Add(1)
	return nil
}

func (s *Store) DeleteHour(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hours[id]; !ok {
		return fmt.Errorf("hour entry %d: %w", id, records.ErrNotFound)
	}
	delete(s.hours, id)
	s.version.Add(1)
	return nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, records.ErrNotFound)
	}
	return e, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProject(e.ProjectID); err != nil {
		return core.Expense{}, err
	}
	e.ID = s.id()
	e.Amount = normalize(e.Amount)
	s.expenses[e.ID] = e
	s.version.Add(1)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.expenses[e.ID]
	if !ok {
		return fmt.Errorf("expense %d: %w", e.ID, records.ErrNotFound)
	}
	e.ProjectID = old.ProjectID
	e.Amount = normalize(e.Amount)
	s.expenses[e.ID] = e
	s.version.Add(1)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("expense %d: %w", id, records.ErrNotFound)
	}
	delete(s.expenses, id)
	s.version.Add(1)
	return nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return core.Payment{}, fmt.Errorf("payment %d: %w", id, records.ErrNotFound)
	}
	return p, nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireProject(p.ProjectID); err != nil {
		return core.Payment{}, err
	}
	p.ID = s.id()
	p.Amount = normalize(p.Amount)
	s.payments[p.ID] = p
	s.version.Add(1)
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p core.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.payments[p.ID]
	if !ok {
		return fmt.Errorf("payment %d: %w", p.ID, records.ErrNotFound)
	}
	p.ProjectID = old.ProjectID
	p.Amount = normalize(p.Amount)
	s.payments[p.ID] = p
	s.version.Add(1)
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return fmt.Errorf("payment %d: %w", id, records.ErrNotFound)
	}
	delete(s.payments, id)
	s.version.Add(1)
	return nil
}

func (s *Store) requireProject(id int64) error {
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, records.ErrNotFound)
	}
	return nil
}

// normalize keeps the same two-decimal precision the sqlite store persists.
func normalize(d decimal.Decimal) decimal.Decimal {
	return core.FromHundredths(core.ToHundredths(d))
}

func collect[T any](m map[int64]T, keep func(T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func deleteWhere[T any](m map[int64]T, match func(T) bool) {
	for id, v := range m {
		if match(v) {
			delete(m, id)
		}
	}
}

func byRankThenNewest(ri, rj int, di, dj time.Time, idi, idj int64) bool {
	if ri != rj {
		return ri < rj
	}
	if !di.Equal(dj) {
		return di.After(dj)
	}
	return idi < idj
}
