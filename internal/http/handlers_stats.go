package http

import (
	"net/http"

	"projecttracker/internal/calendar"
	"projecttracker/internal/core"
)

// handleDayStats: a missing project gives zero totals, a missing date means today.
func (s *Server) handleDayStats(w http.ResponseWriter, r *http.Request) {
	q, err := ParseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q.Date.IsZero() {
		q.Date = s.stats.Today()
	}
	d, err := s.stats.DayTotals(r.Context(), q.ProjectID, q.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDayView(d))
}

func (s *Server) monthOrCurrent(m calendar.YearMonth) calendar.YearMonth {
	if m == (calendar.YearMonth{}) {
		return s.stats.Today().YearMonth()
	}
	return m
}

func (s *Server) handleMonthStats(w http.ResponseWriter, r *http.Request) {
	q, err := ParseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.stats.MonthTotals(r.Context(), s.monthOrCurrent(q.Month))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthView(m))
}

// handleTrendStats scales bars to height, or to 1 when absent.
func (s *Server) handleTrendStats(w http.ResponseWriter, r *http.Request) {
	q, err := ParseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	height := q.Height
	if height == 0 {
		height = 1
	}
	points, err := s.stats.Trend(r.Context(), s.monthOrCurrent(q.Month), height)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrendView(points))
}

// handleDashboard: a date without a month also moves the month to that date.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := ParseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sel := core.Selection{ProjectID: q.ProjectID, Date: q.Date, Month: q.Month}
	d, err := s.stats.Dashboard(r.Context(), sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardView(d))
}
