package web

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/attendo/app/attendance"
	"github.com/umputun/attendo/app/export"
)

// handleDashboard renders subject list with controls
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	formats := make([]string, 0, len(export.Formats))
	for _, f := range export.Formats {
		formats = append(formats, string(f))
	}
	data := TemplateData{
		Summary:     s.tracker.Summary(),
		Formats:     formats,
		Hostname:    s.hostname,
		Version:     s.version,
		CurrentYear: time.Now().Year(),
	}
	s.render(w, "base.html", data)
}

// handleAdd adds subject from the form, empty name is ignored
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Add(r.FormValue("name")); err != nil {
		s.sendError(w, err)
		return
	}
	s.backToDashboard(w, r)
}

// handleMark makes handler for present/absent marks
func (s *Server) handleMark(fn func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.PathValue("id")); err != nil {
			s.sendError(w, err)
			return
		}
		s.backToDashboard(w, r)
	}
}

// handleDelete removes subject, requires confirm=yes collected by the page
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		http.Error(w, "confirmation required", http.StatusBadRequest)
		return
	}
	if err := s.tracker.Delete(r.PathValue("id")); err != nil {
		s.sendError(w, err)
		return
	}
	s.backToDashboard(w, r)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Undo(); err != nil {
		s.sendError(w, err)
		return
	}
	s.backToDashboard(w, r)
}

// handleRemoveAll clears everything, requires confirm=yes
func (s *Server) handleRemoveAll(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		http.Error(w, "confirmation required", http.StatusBadRequest)
		return
	}
	if err := s.tracker.RemoveAll(); err != nil {
		s.sendError(w, err)
		return
	}
	s.backToDashboard(w, r)
}

// handleExport sends the summary as attachment with a fixed file name
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buf := bytes.Buffer{}
	if err := export.Write(&buf, format, s.tracker.Summary()); err != nil {
		log.Printf("[WARN] failed to export %s: %v", format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.FileName()+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write export: %v", err)
	}
}

func (s *Server) backToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// sendError maps tracker errors to http status
func (s *Server) sendError(w http.ResponseWriter, err error) {
	if errors.Is(err, attendance.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	log.Printf("[ERROR] %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func confirmed(r *http.Request) bool {
	return r.FormValue("confirm") == "yes"
}
