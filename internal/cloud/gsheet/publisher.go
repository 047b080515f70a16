// Package gsheet publishes an export report as a new Google spreadsheet with
// the same four sheets as the xlsx workbook.
package gsheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"projecttracker/internal/export"
)

type Publisher struct {
	svc *sheets.Service
}

func New(ctx context.Context, ts oauth2.TokenSource) (*Publisher, error) {
	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc), nil
}

func NewWithService(svc *sheets.Service) *Publisher {
	return &Publisher{svc: svc}
}

// Publish creates the spreadsheet, fills every sheet and returns its id.
func (p *Publisher) Publish(ctx context.Context, r *export.Report) (string, error) {
	if p.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(r.Sheets) == 0 {
		return "", fmt.Errorf("report %q has no sheets", r.Title)
	}

	ss := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: strings.TrimSuffix(r.FileName, ".xlsx")},
	}
	for _, t := range r.Sheets {
		ss.Sheets = append(ss.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: t.Name}})
	}

	created, err := p.svc.Spreadsheets.Create(ss).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet: %w", err)
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             valueRanges(r),
	}
	if _, err := p.svc.Spreadsheets.Values.BatchUpdate(created.SpreadsheetId, req).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write values to %s: %w", created.SpreadsheetId, err)
	}

	slog.InfoContext(ctx, "Published report to Google Sheets",
		"project_id", r.ProjectID,
		"remote_id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

// valueRanges maps each table to a range anchored at A1 of its sheet, header first.
func valueRanges(r *export.Report) []*sheets.ValueRange {
	out := make([]*sheets.ValueRange, 0, len(r.Sheets))
	for _, t := range r.Sheets {
		var values [][]any
		if len(t.Header) > 0 {
			values = append(values, row(t.Header))
		}
		for i := range t.Rows {
			values = append(values, t.Values(i))
		}
		out = append(out, &sheets.ValueRange{
			Range:  fmt.Sprintf("'%s'!A1", strings.ReplaceAll(t.Name, "'", "''")),
			Values: values,
		})
	}
	return out
}

func row(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
