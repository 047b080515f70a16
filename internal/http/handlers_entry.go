package http

import (
	"net/http"
	"strconv"

	"projecttracker/internal/core"
	"projecttracker/internal/services"
)

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func sanitizeEntry(in *services.EntryInput) {
	in.Date = sanitizeInput(in.Date)
	in.Hours = sanitizeInput(in.Hours)
	in.Amount = sanitizeInput(in.Amount)
	in.Note = sanitizeInput(in.Note)
	in.Category = sanitizeInput(in.Category)
	in.ReceiptRef = sanitizeInput(in.ReceiptRef)
}

// handleListEntries serves GET /api/projects/{id}/{kind}.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, loc := r.Context(), s.stats.Location()
	switch kind {
	case core.KindHours:
		es, err := s.projects.ListHours(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]hourView, 0, len(es))
		for _, e := range es {
			out = append(out, toHourView(e, loc))
		}
		writeJSON(w, http.StatusOK, out)
	case core.KindExpenses:
		es, err := s.projects.ListExpenses(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]expenseView, 0, len(es))
		for _, e := range es {
			out = append(out, toExpenseView(e, loc))
		}
		writeJSON(w, http.StatusOK, out)
	case core.KindPayments:
		ps, err := s.projects.ListPayments(ctx, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]paymentView, 0, len(ps))
		for _, p := range ps {
			out = append(out, toPaymentView(p, loc))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleCreateEntry serves POST /api/projects/{id}/{kind}.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.EntryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizeEntry(&in)

	e, err := s.projects.AddEntry(r.Context(), kind, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryView(e, s.stats.Location()))
}

// handleUpdateEntry serves PUT /api/{kind}/{entryID}.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "entryID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.EntryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizeEntry(&in)

	e, err := s.projects.UpdateEntry(r.Context(), kind, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(e, s.stats.Location()))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "entryID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.projects.DeleteEntry(r.Context(), kind, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
