// Package attendance keeps the subject list, the single-slot undo and derived percentages.
// All mutations go through Apply, a pure transition, and Tracker performs the one persistence
// effect each transition asks for.
package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound returned when a command addresses a subject which is not in the list
	ErrNotFound = errors.New("subject not found")
	// ErrInvalidSubject returned for subjects failing presence checks (empty name, bad counters)
	ErrInvalidSubject = errors.New("invalid subject")
)

// Subject is a single tracked course with attended and recorded lecture counters
type Subject struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty" jsonschema:"description=stable subject identifier"`
	Name    string `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Present int    `json:"present" yaml:"present" jsonschema:"minimum=0"`
	Total   int    `json:"total" yaml:"total" jsonschema:"minimum=0"`
}

// Absent returns the number of missed lectures
func (s Subject) Absent() int {
	return s.Total - s.Present
}

// Percentage returns attended share of recorded lectures, 0 if nothing recorded yet
func (s Subject) Percentage() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Present) / float64(s.Total) * 100
}

// Validate performs presence checks only
func (s Subject) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSubject)
	}
	if s.Present < 0 || s.Total < 0 {
		return fmt.Errorf("%w: negative counter for %q", ErrInvalidSubject, s.Name)
	}
	if s.Present > s.Total {
		return fmt.Errorf("%w: present %d > total %d for %q", ErrInvalidSubject, s.Present, s.Total, s.Name)
	}
	return nil
}

// Aggregate returns the mean of per-subject percentages, not pooled counts. Empty list gives 0.
func Aggregate(subjects []Subject) float64 {
	if len(subjects) == 0 {
		return 0
	}
	var sum float64
	for _, s := range subjects {
		sum += s.Percentage()
	}
	return sum / float64(len(subjects))
}

// FormatPercent renders percentage with two decimals and the percent sign, i.e. "75.00%"
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// Row is a subject with its derived values
type Row struct {
	Position   int // 1-based position in the list
	Subject    Subject
	Absent     int
	Percentage float64
}

// Summary is a derived view of the list used by all renderers
type Summary struct {
	Rows      []Row
	Aggregate float64
	CanUndo   bool
}

// Summarize derives rows and aggregate for the list. Nothing is cached, it is recomputed on each call.
func Summarize(subjects []Subject) Summary {
	res := Summary{Rows: make([]Row, 0, len(subjects)), Aggregate: Aggregate(subjects)}
	for i, s := range subjects {
		res.Rows = append(res.Rows, Row{Position: i + 1, Subject: s, Absent: s.Absent(), Percentage: s.Percentage()})
	}
	return res
}
