// Package drive uploads export workbooks and database backups into one
// Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	xlsxMimeType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sqliteMimeType = "application/x-sqlite3"
)

type Uploader struct {
	svc        *gdrive.Service
	folderName string

	mu       sync.Mutex
	folderID string
}

// New creates an uploader authorised by ts.
func New(ctx context.Context, ts oauth2.TokenSource, folderName string) (*Uploader, error) {
	svc, err := gdrive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewWithService(svc, folderName), nil
}

func NewWithService(svc *gdrive.Service, folderName string) *Uploader {
	return &Uploader{svc: svc, folderName: folderName}
}

// EnsureFolder returns the id of the backup folder, creating it when no
// folder with that name exists. The id is remembered for later calls.
func (u *Uploader) EnsureFolder(ctx context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.folderID != "" {
		return u.folderID, nil
	}

	list, err := u.svc.Files.List().
		Q(folderQuery(u.folderName)).
		Spaces("drive").
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search folder %q: %w", u.folderName, err)
	}
	if len(list.Files) > 0 {
		u.folderID = list.Files[0].Id
		return u.folderID, nil
	}

	created, err := u.svc.Files.Create(&gdrive.File{Name: u.folderName, MimeType: folderMimeType}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", u.folderName, err)
	}
	slog.InfoContext(ctx, "Created Drive folder", "folder", u.folderName, "remote_id", created.Id)
	u.folderID = created.Id
	return u.folderID, nil
}

// Upload copies a local file into the folder under name and returns its id.
func (u *Uploader) Upload(ctx context.Context, localPath, name string) (string, error) {
	folderID, err := u.EnsureFolder(ctx)
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	meta := &gdrive.File{Name: name, Parents: []string{folderID}, MimeType: MimeTypeFor(name)}
	created, err := u.svc.Files.Create(meta).
		Media(f).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	slog.InfoContext(ctx, "Uploaded file to Drive", "file_name", name, "remote_id", created.Id)
	return created.Id, nil
}

// folderQuery builds the Drive search expression for a non-trashed folder.
func folderQuery(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", folderMimeType, escaped)
}

func MimeTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return xlsxMimeType
	case ".db", ".sqlite":
		return sqliteMimeType
	default:
		return "application/octet-stream"
	}
}
