package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"projecttracker/internal/amqp"
	"projecttracker/internal/auth"
	"projecttracker/internal/export"
	"projecttracker/internal/records"
	"projecttracker/internal/records/memory"
	"projecttracker/internal/services"
)

type fakeCloud struct {
	mu        sync.Mutex
	uploads   []string
	contents  map[string][]byte
	published []*export.Report
}

func (f *fakeCloud) UploadFile(_ context.Context, localPath, name string) (string, error) {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contents == nil {
		f.contents = map[string][]byte{}
	}
	f.uploads = append(f.uploads, name)
	f.contents[name] = b
	return "remote-" + name, nil
}

func (f *fakeCloud) PublishReport(_ context.Context, r *export.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, r)
	return "sheet-1", nil
}

type fileBackuper struct{ body string }

func (b fileBackuper) BackupTo(_ context.Context, dest string) error {
	return os.WriteFile(dest, []byte(b.body), 0o600)
}

func setup(t *testing.T) (*services.ExportService, int64) {
	t.Helper()
	store := memory.New()
	ps := services.NewProjectService(store, time.UTC, nil)
	p, err := ps.CreateProject(context.Background(), services.ProjectInput{Name: "Site", StartDate: "2025-01-01", AgreedAmount: "100"})
	if err != nil {
		t.Fatal(err)
	}
	f, err := export.NewFormatter("en", "EUR", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	return services.NewExportService(store, f, nil, nil, services.ExportOptions{}, nil), p.ID
}

func connectTo(c Cloud) Connector {
	return func(context.Context) (Cloud, error) { return c, nil }
}

func TestHandleExportToDrive(t *testing.T) {
	reports, id := setup(t)
	cloud := &fakeCloud{}
	dir := t.TempDir()
	w := NewJobWorker(reports, nil, connectTo(cloud), dir, nil)

	if err := w.HandleJob(context.Background(), amqp.NewExportJob(id, amqp.TargetDrive)); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if len(cloud.uploads) != 1 || !strings.HasPrefix(cloud.uploads[0], "Site_") {
		t.Fatalf("uploads = %v", cloud.uploads)
	}
	if _, err := os.Stat(filepath.Join(dir, cloud.uploads[0])); err != nil {
		t.Errorf("workbook not kept in export dir: %v", err)
	}
}

func TestHandleExportToSheets(t *testing.T) {
	reports, id := setup(t)
	cloud := &fakeCloud{}
	w := NewJobWorker(reports, nil, connectTo(cloud), t.TempDir(), nil)

	if err := w.HandleJob(context.Background(), amqp.NewExportJob(id, amqp.TargetSheets)); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if len(cloud.published) != 1 || len(cloud.uploads) != 0 {
		t.Fatalf("published = %d, uploads = %v", len(cloud.published), cloud.uploads)
	}
	if cloud.published[0].ProjectID != id {
		t.Errorf("report project = %d", cloud.published[0].ProjectID)
	}
}

func TestHandleExportFailures(t *testing.T) {
	reports, id := setup(t)
	signedOut := func(context.Context) (Cloud, error) { return nil, auth.ErrNotSignedIn }

	w := NewJobWorker(reports, nil, signedOut, t.TempDir(), nil)
	if err := w.HandleJob(context.Background(), amqp.NewExportJob(id, amqp.TargetDrive)); !errors.Is(err, auth.ErrNotSignedIn) {
		t.Errorf("signed out err = %v", err)
	}

	w = NewJobWorker(reports, nil, connectTo(&fakeCloud{}), t.TempDir(), nil)
	if err := w.HandleJob(context.Background(), amqp.NewExportJob(id+100, amqp.TargetDrive)); !errors.Is(err, records.ErrNotFound) {
		t.Errorf("missing project err = %v", err)
	}
	if err := w.HandleJob(context.Background(), &amqp.JobMessage{Type: "sync"}); err == nil {
		t.Error("unknown job type accepted")
	}
}

func TestHandleBackup(t *testing.T) {
	reports, _ := setup(t)
	cloud := &fakeCloud{}
	w := NewJobWorker(reports, fileBackuper{body: "SQLite format 3"}, connectTo(cloud), t.TempDir(), nil)
	w.now = func() time.Time { return time.UnixMilli(1700000000000) }

	if err := w.HandleJob(context.Background(), amqp.NewBackupJob()); err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if len(cloud.uploads) != 1 || cloud.uploads[0] != "backup_1700000000000.db" {
		t.Fatalf("uploads = %v", cloud.uploads)
	}
	if string(cloud.contents["backup_1700000000000.db"]) != "SQLite format 3" {
		t.Errorf("uploaded content = %q", cloud.contents["backup_1700000000000.db"])
	}
}

func TestHandleBackupWithoutDatabase(t *testing.T) {
	reports, _ := setup(t)
	w := NewJobWorker(reports, nil, connectTo(&fakeCloud{}), t.TempDir(), nil)
	if err := w.HandleJob(context.Background(), amqp.NewBackupJob()); err == nil {
		t.Fatal("backup without database should fail")
	}
}

// tokenCloud fetches a token before every call, like the Google clients do.
type tokenCloud struct {
	fakeCloud
	ts oauth2.TokenSource
}

func (c *tokenCloud) UploadFile(ctx context.Context, localPath, name string) (string, error) {
	if _, err := c.ts.Token(); err != nil {
		return "", err
	}
	return c.fakeCloud.UploadFile(ctx, localPath, name)
}

func (c *tokenCloud) PublishReport(ctx context.Context, r *export.Report) (string, error) {
	if _, err := c.ts.Token(); err != nil {
		return "", err
	}
	return c.fakeCloud.PublishReport(ctx, r)
}

func TestHandleExportRefreshesExpiredToken(t *testing.T) {
	var refreshes int
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	reports, id := setup(t)
	store := auth.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}
	if err := store.Save(expired); err != nil {
		t.Fatal(err)
	}
	session := auth.NewSession(&oauth2.Config{
		ClientID: "id",
		Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, store)

	for _, target := range []string{amqp.TargetDrive, amqp.TargetSheets} {
		if err := store.Save(expired); err != nil {
			t.Fatal(err)
		}
		connect := func(ctx context.Context) (Cloud, error) {
			ts, err := session.TokenSource(ctx)
			if err != nil {
				return nil, err
			}
			return &tokenCloud{ts: ts}, nil
		}
		w := NewJobWorker(reports, nil, connect, t.TempDir(), nil)

		if err := w.HandleJob(context.Background(), amqp.NewExportJob(id, target)); err != nil {
			t.Fatalf("%s: HandleJob: %v", target, err)
		}
		tok, err := store.Load()
		if err != nil {
			t.Fatal(err)
		}
		if tok.AccessToken != "fresh" {
			t.Errorf("%s: stored token = %q, want refreshed", target, tok.AccessToken)
		}
	}
	if refreshes != 2 {
		t.Errorf("refreshes = %d, want 2", refreshes)
	}
}
