package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON object from the body. String fields are
// stripped of control characters.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", errBadRequest, name, raw)
	}
	return id, nil
}

func pathKind(r *http.Request) (core.EntryKind, error) {
	return core.ParseEntryKind(r.PathValue("kind"))
}

// StatsQuery is the parsed query string of the /api/stats endpoints.
// Zero fields were absent.
type StatsQuery struct {
	ProjectID int64
	Date      calendar.Date
	Month     calendar.YearMonth
	Height    float64
}

func ParseStatsQuery(q url.Values) (StatsQuery, error) {
	var sq StatsQuery
	if v := strings.TrimSpace(q.Get("project")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			return StatsQuery{}, fmt.Errorf("%w: project %q", errBadRequest, v)
		}
		sq.ProjectID = id
	}
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		d, err := calendar.ParseDate(v)
		if err != nil {
			return StatsQuery{}, err
		}
		sq.Date = d
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := calendar.ParseYearMonth(v)
		if err != nil {
			return StatsQuery{}, err
		}
		if err := m.Validate(); err != nil {
			return StatsQuery{}, err
		}
		sq.Month = m
	}
	if v := strings.TrimSpace(q.Get("height")); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil || h <= 0 {
			return StatsQuery{}, fmt.Errorf("%w: height %q", errBadRequest, v)
		}
		sq.Height = h
	}
	return sq, nil
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}
