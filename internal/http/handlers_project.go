package http

import (
	"net/http"

	"projecttracker/internal/services"
)

func sanitizeProject(in *services.ProjectInput) {
	in.Name = sanitizeInput(in.Name)
	in.Client = sanitizeInput(in.Client)
	in.StartDate = sanitizeInput(in.StartDate)
	in.AgreedAmount = sanitizeInput(in.AgreedAmount)
	in.Description = sanitizeInput(in.Description)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectViews(ps, s.stats.Location()))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.projects.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectView(p, s.stats.Location()))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in services.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizeProject(&in)

	p, err := s.projects.CreateProject(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/projects/"+formatID(p.ID))
	writeJSON(w, http.StatusCreated, toProjectView(p, s.stats.Location()))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizeProject(&in)

	p, err := s.projects.UpdateProject(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectView(p, s.stats.Location()))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.projects.DeleteProject(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderProjects(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.projects.ReorderProjects(r.Context(), req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := s.projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectViews(ps, s.stats.Location()))
}

func (s *Server) handleProjectTotals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.stats.ProjectTotals(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTotalsView(t))
}
