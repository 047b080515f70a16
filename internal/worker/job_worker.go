package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"projecttracker/internal/amqp"
	"projecttracker/internal/export"
	applog "projecttracker/internal/log"
)

// ReportBuilder loads a project report; services.ExportService implements it.
type ReportBuilder interface {
	BuildReport(ctx context.Context, projectID int64) (*export.Report, error)
}

// Backuper copies the live database to dest.
type Backuper interface {
	BackupTo(ctx context.Context, dest string) error
}

// Cloud is the signed-in account's storage.
type Cloud interface {
	UploadFile(ctx context.Context, localPath, name string) (string, error)
	PublishReport(ctx context.Context, r *export.Report) (string, error)
}

// Connector opens the cloud for one job. It fails with auth.ErrNotSignedIn
// when there is no account.
type Connector func(ctx context.Context) (Cloud, error)

// JobWorker runs export and backup jobs.
type JobWorker struct {
	reports   ReportBuilder
	backups   Backuper
	connect   Connector
	exportDir string
	logger    *applog.Logger
	now       func() time.Time
}

// NewJobWorker creates a worker. backups may be nil when the store is not a
// database file; backup jobs then fail.
func NewJobWorker(reports ReportBuilder, backups Backuper, connect Connector, exportDir string, logger *applog.Logger) *JobWorker {
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &JobWorker{
		reports:   reports,
		backups:   backups,
		connect:   connect,
		exportDir: exportDir,
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// HandleJob processes a single job message from AMQP or an inline dispatch.
func (w *JobWorker) HandleJob(ctx context.Context, msg *amqp.JobMessage) error {
	w.logger.InfoContext(ctx, "Processing job",
		applog.FieldJobType, msg.Type,
		applog.FieldJobTarget, msg.Target,
		applog.FieldProjectID, msg.ProjectID,
		applog.FieldRequestID, msg.RequestID)

	var err error
	switch msg.Type {
	case amqp.JobExport:
		err = w.runExport(ctx, msg)
	case amqp.JobBackup:
		err = w.runBackup(ctx)
	default:
		err = fmt.Errorf("unknown job type %q", msg.Type)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Job failed",
			applog.FieldJobType, msg.Type,
			applog.FieldProjectID, msg.ProjectID,
			applog.FieldError, err)
		return err
	}
	return nil
}

func (w *JobWorker) runExport(ctx context.Context, msg *amqp.JobMessage) error {
	var (
		cloud  Cloud
		report *export.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		// The connection outlives this group; its token source refreshes
		// with the context it was opened with.
		cloud, err = w.connect(ctx)
		if err != nil {
			return fmt.Errorf("connect cloud: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		report, err = w.reports.BuildReport(gctx, msg.ProjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if msg.Target == amqp.TargetSheets {
		id, err := cloud.PublishReport(ctx, report)
		if err != nil {
			return fmt.Errorf("publish report: %w", err)
		}
		w.logger.InfoContext(ctx, "Report published",
			applog.FieldProjectID, msg.ProjectID,
			applog.FieldRemoteID, id)
		return nil
	}

	path, err := export.SaveXLSX(w.exportDir, report)
	if err != nil {
		return err
	}
	id, err := cloud.UploadFile(ctx, path, report.FileName)
	if err != nil {
		return fmt.Errorf("upload workbook: %w", err)
	}
	w.logger.InfoContext(ctx, "Workbook uploaded",
		applog.FieldProjectID, msg.ProjectID,
		applog.FieldFileName, report.FileName,
		applog.FieldRemoteID, id)
	return nil
}

// BackupFileName is the remote name of a database backup taken at t.
func BackupFileName(t time.Time) string {
	return fmt.Sprintf("backup_%d.db", t.UnixMilli())
}

func (w *JobWorker) runBackup(ctx context.Context) error {
	if w.backups == nil {
		return fmt.Errorf("backup requires the sqlite backend")
	}
	cloud, err := w.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect cloud: %w", err)
	}

	tmp, err := os.MkdirTemp("", "tracker-backup-")
	if err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	name := BackupFileName(w.now())
	dest := filepath.Join(tmp, name)
	if err := w.backups.BackupTo(ctx, dest); err != nil {
		return fmt.Errorf("copy database: %w", err)
	}
	id, err := cloud.UploadFile(ctx, dest, name)
	if err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}
	w.logger.InfoContext(ctx, "Backup uploaded", applog.FieldFileName, name, applog.FieldRemoteID, id)
	return nil
}
