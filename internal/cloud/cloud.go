// Package cloud connects the signed-in account to the Drive and Sheets
// targets used by export and backup jobs.
package cloud

import (
	"context"

	"projecttracker/internal/auth"
	"projecttracker/internal/cloud/drive"
	"projecttracker/internal/cloud/gsheet"
	"projecttracker/internal/export"
)

// Client uploads files to the backup folder and publishes reports.
type Client struct {
	drive  *drive.Uploader
	sheets *gsheet.Publisher
}

// Connect fails with auth.ErrNotSignedIn when the session has no token.
func Connect(ctx context.Context, session *auth.Session, folderName string) (*Client, error) {
	ts, err := session.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	up, err := drive.New(ctx, ts, folderName)
	if err != nil {
		return nil, err
	}
	pub, err := gsheet.New(ctx, ts)
	if err != nil {
		return nil, err
	}
	return &Client{drive: up, sheets: pub}, nil
}

func (c *Client) UploadFile(ctx context.Context, localPath, name string) (string, error) {
	return c.drive.Upload(ctx, localPath, name)
}

func (c *Client) PublishReport(ctx context.Context, r *export.Report) (string, error) {
	return c.sheets.Publish(ctx, r)
}
