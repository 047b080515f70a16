package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"projecttracker/internal/amqp"
	"projecttracker/internal/auth"
	"projecttracker/internal/export"
	applog "projecttracker/internal/log"
	"projecttracker/internal/records"
	"projecttracker/internal/stats"
)

// ErrBackupUnavailable is returned when the store is not a database file.
var ErrBackupUnavailable = errors.New("backup requires the sqlite backend")

// Dispatcher hands a job to whatever runs it: the AMQP queue or an inline worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *amqp.JobMessage) error
}

// DispatcherFunc adapts a function, e.g. (*amqp.Client).PublishJob.
type DispatcherFunc func(ctx context.Context, msg *amqp.JobMessage) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg *amqp.JobMessage) error { return f(ctx, msg) }

// SignInChecker reports whether a cloud account is available.
type SignInChecker interface {
	SignedIn() bool
}

type ExportReader interface {
	records.ProjectReader
	records.EntryQuerier
}

type ExportOptions struct {
	Target          string // amqp.TargetDrive or amqp.TargetSheets
	BackupSupported bool
}

// ExportService builds reports and queues cloud export and backup jobs.
type ExportService struct {
	store      ExportReader
	formatter  *export.Formatter
	dispatcher Dispatcher
	session    SignInChecker
	opts       ExportOptions
	logger     *applog.Logger
	now        func() time.Time
}

func NewExportService(store ExportReader, formatter *export.Formatter, dispatcher Dispatcher, session SignInChecker, opts ExportOptions, logger *applog.Logger) *ExportService {
	if opts.Target == "" {
		opts.Target = amqp.TargetDrive
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentExport)
	}
	return &ExportService{
		store:      store,
		formatter:  formatter,
		dispatcher: dispatcher,
		session:    session,
		opts:       opts,
		logger:     logger.WithComponent(applog.ComponentExport),
		now:        time.Now,
	}
}

// BuildReport loads the project with all its entries and lays out the workbook.
func (s *ExportService) BuildReport(ctx context.Context, projectID int64) (*export.Report, error) {
	var in export.Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Project, err = s.store.GetProject(gctx, projectID)
		return err
	})
	f := records.ForProject(projectID)
	g.Go(func() (err error) {
		in.Hours, err = s.store.ListHours(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		in.Expenses, err = s.store.ListExpenses(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		in.Payments, err = s.store.ListPayments(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}

	in.Totals = stats.ProjectTotals(in.Project, stats.Snapshot{Hours: in.Hours, Expenses: in.Expenses, Payments: in.Payments})
	return export.BuildReport(in, s.formatter, s.now()), nil
}

// SaveReport writes the project's workbook into dir and returns its path.
func (s *ExportService) SaveReport(ctx context.Context, projectID int64, dir string) (string, error) {
	r, err := s.BuildReport(ctx, projectID)
	if err != nil {
		return "", err
	}
	path, err := export.SaveXLSX(dir, r)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Workbook written", applog.FieldProjectID, projectID, applog.FieldFileName, path)
	return path, nil
}

// RequestCloudExport queues an export of the project to the configured target.
func (s *ExportService) RequestCloudExport(ctx context.Context, projectID int64, requestID string) (*amqp.JobMessage, error) {
	if err := s.requireSignIn(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	msg := amqp.NewExportJob(projectID, s.opts.Target)
	msg.RequestID = requestID
	if err := s.dispatch(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// RequestBackup queues an upload of the database file.
func (s *ExportService) RequestBackup(ctx context.Context, requestID string) (*amqp.JobMessage, error) {
	if err := s.requireSignIn(); err != nil {
		return nil, err
	}
	if !s.opts.BackupSupported {
		return nil, ErrBackupUnavailable
	}
	msg := amqp.NewBackupJob()
	msg.RequestID = requestID
	if err := s.dispatch(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *ExportService) requireSignIn() error {
	if s.session == nil || !s.session.SignedIn() {
		return auth.ErrNotSignedIn
	}
	return nil
}

func (s *ExportService) dispatch(ctx context.Context, msg *amqp.JobMessage) error {
	if s.dispatcher == nil {
		return errors.New("no job dispatcher configured")
	}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		return fmt.Errorf("dispatch %s job: %w", msg.Type, err)
	}
	s.logger.InfoContext(ctx, "Job queued",
		applog.FieldJobType, msg.Type,
		applog.FieldJobTarget, msg.Target,
		applog.FieldProjectID, msg.ProjectID,
		applog.FieldRequestID, msg.RequestID)
	return nil
}
