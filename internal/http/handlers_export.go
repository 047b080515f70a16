package http

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"projecttracker/internal/amqp"
	"projecttracker/internal/export"
	"projecttracker/internal/middleware/trace"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExportWorkbook streams the project workbook as a download.
func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.exports.BuildReport(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Rendered to memory first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rep); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rep.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCloudExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := s.exports.RequestCloudExport(r.Context(), id, trace.GetRequestID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobView(msg))
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	msg, err := s.exports.RequestBackup(r.Context(), trace.GetRequestID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobView(msg))
}

func toJobView(msg *amqp.JobMessage) jobView {
	return jobView{Type: string(msg.Type), ProjectID: msg.ProjectID, Target: msg.Target, RequestID: msg.RequestID}
}
