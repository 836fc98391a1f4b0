package web

import (
	"net/http"
	"time"

	"github.com/go-pkgz/rest"

	"github.com/umputun/attendo/app/attendance"
)

// APISubjectsResponse is the JSON response for /api/v1/subjects
type APISubjectsResponse struct {
	Subjects  []APISubject `json:"subjects"`
	Aggregate float64      `json:"aggregate"`
	CanUndo   bool         `json:"can_undo"`
	Timestamp time.Time    `json:"timestamp"`
}

// APISubject represents a subject in JSON API response
type APISubject struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// toAPISubject converts attendance.Row to APISubject
func toAPISubject(r attendance.Row) APISubject {
	return APISubject{
		ID:         r.Subject.ID,
		Name:       r.Subject.Name,
		Total:      r.Subject.Total,
		Present:    r.Subject.Present,
		Absent:     r.Absent,
		Percentage: r.Percentage,
	}
}

// handleAPISubjects returns JSON summary, designed for CLI/jq consumption
func (s *Server) handleAPISubjects(w http.ResponseWriter, _ *http.Request) {
	sum := s.tracker.Summary()
	resp := APISubjectsResponse{
		Subjects:  make([]APISubject, 0, len(sum.Rows)),
		Aggregate: sum.Aggregate,
		CanUndo:   sum.CanUndo,
		Timestamp: time.Now(),
	}
	for _, r := range sum.Rows {
		resp.Subjects = append(resp.Subjects, toAPISubject(r))
	}
	rest.RenderJSON(w, resp)
}
