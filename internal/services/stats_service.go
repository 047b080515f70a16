package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"projecttracker/internal/cache"
	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
	applog "projecttracker/internal/log"
	"projecttracker/internal/records"
	"projecttracker/internal/stats"
)

// StatsReader is the part of the store the statistics queries read.
type StatsReader interface {
	records.ProjectReader
	records.EntryQuerier
	records.Versioned
}

// StatsService loads snapshots from the store and hands them to the
// reducers in package stats. Dashboards are memoized by selection and
// store version.
type StatsService struct {
	store  StatsReader
	loc    *time.Location
	memo   cache.Cache[core.Dashboard]
	logger *applog.Logger
	now    func() time.Time
}

// NewStatsService memoizes dashboards in memo; memo may be nil.
func NewStatsService(store StatsReader, loc *time.Location, memo cache.Cache[core.Dashboard], logger *applog.Logger) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentStats)
	}
	return &StatsService{store: store, loc: loc, memo: memo, logger: logger.WithComponent(applog.ComponentStats), now: time.Now}
}

func (s *StatsService) Location() *time.Location { return s.loc }

func (s *StatsService) Today() calendar.Date {
	return calendar.DateOf(s.now(), s.loc)
}

// ProjectTotals uses the store-side sums. A missing sum counts as zero.
func (s *StatsService) ProjectTotals(ctx context.Context, projectID int64) (core.ProjectTotals, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return core.ProjectTotals{}, err
	}

	var hours, expenses, payments decimal.NullDecimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		hours, err = s.store.Sum(gctx, core.KindHours, projectID)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.Sum(gctx, core.KindExpenses, projectID)
		return err
	})
	g.Go(func() (err error) {
		payments, err = s.store.Sum(gctx, core.KindPayments, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ProjectTotals{}, fmt.Errorf("sum entries of project %d: %w", projectID, err)
	}

	return stats.TotalsFromSums(p, orZero(hours), orZero(expenses), orZero(payments)), nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// DayTotals is zero for NoProject without touching the store.
func (s *StatsService) DayTotals(ctx context.Context, projectID int64, day calendar.Date) (core.DayTotals, error) {
	if projectID == core.NoProject {
		return stats.DayTotals(core.NoProject, day, s.loc, stats.Snapshot{}), nil
	}
	snap, err := s.snapshot(ctx, records.ForProjectInRange(projectID, day.Range(s.loc)))
	if err != nil {
		return core.DayTotals{}, err
	}
	return stats.DayTotals(projectID, day, s.loc, snap), nil
}

func (s *StatsService) MonthTotals(ctx context.Context, month calendar.YearMonth) (core.MonthTotals, error) {
	if err := month.Validate(); err != nil {
		return core.MonthTotals{}, err
	}
	projects, snap, err := s.projectsAndSnapshot(ctx, records.InRange(month.Range(s.loc)))
	if err != nil {
		return core.MonthTotals{}, err
	}
	return stats.MonthTotals(month, s.loc, projects, snap), nil
}

// Trend returns the rolling series ending at anchor with bars scaled to height.
func (s *StatsService) Trend(ctx context.Context, anchor calendar.YearMonth, height float64) ([]core.TrendPoint, error) {
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, records.InRange(calendar.WindowRange(anchor, stats.TrendWindow, s.loc)))
	if err != nil {
		return nil, err
	}
	return stats.Trend(anchor, stats.TrendWindow, s.loc, snap, height), nil
}

// Dashboard resolves sel against the current projects and returns the
// combined day, month and trend result. Trend bars are scaled to 1.
func (s *StatsService) Dashboard(ctx context.Context, sel core.Selection) (core.Dashboard, error) {
	if sel.Month != (calendar.YearMonth{}) {
		if err := sel.Month.Validate(); err != nil {
			return core.Dashboard{}, err
		}
	}

	version := s.store.Version()
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("list projects: %w", err)
	}
	sel = stats.ResolveSelection(sel, projects, s.Today())

	key := memoKey(sel, version)
	if s.memo != nil {
		if d, ok := s.memo.Get(key); ok {
			s.logger.DebugContext(ctx, "Dashboard served from cache", applog.FieldCacheHit, true, applog.FieldVersion, version)
			return d, nil
		}
	}

	window := calendar.WindowRange(sel.Month, stats.TrendWindow, s.loc)
	snap, err := s.snapshot(ctx, records.InRange(calendar.Span(window, sel.Date.Range(s.loc))))
	if err != nil {
		return core.Dashboard{}, err
	}

	d := core.Dashboard{
		Selection: sel,
		Day:       stats.DayTotals(sel.ProjectID, sel.Date, s.loc, snap),
		Month:     stats.MonthTotals(sel.Month, s.loc, projects, snap),
		Trend:     stats.Trend(sel.Month, stats.TrendWindow, s.loc, snap, 1),
	}
	if s.memo != nil {
		s.memo.Set(key, d)
	}
	return d, nil
}

func memoKey(sel core.Selection, version uint64) string {
	return fmt.Sprintf("%d|%s|%s|%d", sel.ProjectID, sel.Date, sel.Month, version)
}

// snapshot loads the three entry lists matching f concurrently.
func (s *StatsService) snapshot(ctx context.Context, f records.Filter) (stats.Snapshot, error) {
	var snap stats.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Hours, err = s.store.ListHours(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		snap.Expenses, err = s.store.ListExpenses(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		snap.Payments, err = s.store.ListPayments(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return stats.Snapshot{}, fmt.Errorf("load entries: %w", err)
	}
	return snap, nil
}

func (s *StatsService) projectsAndSnapshot(ctx context.Context, f records.Filter) ([]core.Project, stats.Snapshot, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, stats.Snapshot{}, fmt.Errorf("list projects: %w", err)
	}
	snap, err := s.snapshot(ctx, f)
	if err != nil {
		return nil, stats.Snapshot{}, err
	}
	return projects, snap, nil
}
