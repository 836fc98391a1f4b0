package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/umputun/attendo/app/attendance"
)

// Document is the structured export, readable back by ReadDocument
type Document struct {
	Subjects  []DocumentSubject `json:"subjects" yaml:"subjects" jsonschema:"description=subjects in list order"`
	Aggregate float64           `json:"aggregate" yaml:"aggregate" jsonschema:"description=mean of per-subject percentages"`
}

// DocumentSubject is a subject with derived values. Absent and percentage are ignored on import.
type DocumentSubject struct {
	ID         string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string  `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Total      int     `json:"total" yaml:"total" jsonschema:"minimum=0"`
	Present    int     `json:"present" yaml:"present" jsonschema:"minimum=0"`
	Absent     int     `json:"absent,omitempty" yaml:"absent,omitempty"`
	Percentage float64 `json:"percentage,omitempty" yaml:"percentage,omitempty"`
}

// NewDocument makes a Document from summary, percentages rounded to 2 decimals
func NewDocument(sum attendance.Summary) Document {
	res := Document{Subjects: make([]DocumentSubject, 0, len(sum.Rows)), Aggregate: round2(sum.Aggregate)}
	for _, r := range sum.Rows {
		res.Subjects = append(res.Subjects, DocumentSubject{
			ID:         r.Subject.ID,
			Name:       r.Subject.Name,
			Total:      r.Subject.Total,
			Present:    r.Subject.Present,
			Absent:     r.Absent,
			Percentage: round2(r.Percentage),
		})
	}
	return res
}

// WriteYAML renders summary as yaml Document
func WriteYAML(w io.Writer, sum attendance.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(sum)); err != nil {
		return fmt.Errorf("failed to write yaml export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close yaml encoder: %w", err)
	}
	return nil
}

// WriteJSON renders summary as indented json Document
func WriteJSON(w io.Writer, sum attendance.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(sum)); err != nil {
		return fmt.Errorf("failed to write json export: %w", err)
	}
	return nil
}

// ErrNoSubjects returned by ReadDocument for documents without subjects key, an empty list must be explicit
var ErrNoSubjects = errors.New("document has no subjects")

// docInput is Document as read back, nil Subjects means the key is missing
type docInput struct {
	Subjects *[]DocumentSubject `json:"subjects" yaml:"subjects"`
}

func (d docInput) subjects() ([]DocumentSubject, error) {
	if d.Subjects == nil {
		return nil, ErrNoSubjects
	}
	return *d.Subjects, nil
}

// ReadDocument parses yaml or json export and returns subjects passing presence checks.
// Besides Document it accepts a bare list of subjects, the format of the stored snapshot.
func ReadDocument(r io.Reader, f Format) ([]attendance.Subject, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var list []DocumentSubject
	var doc docInput
	switch f {
	case FormatJSON:
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(data, &list)
			break
		}
		if err = json.Unmarshal(data, &doc); err == nil {
			list, err = doc.subjects()
		}
	case FormatYAML:
		var node yaml.Node
		if err = yaml.Unmarshal(data, &node); err != nil {
			break
		}
		if len(node.Content) == 0 {
			err = ErrNoSubjects // empty file
			break
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			err = node.Content[0].Decode(&list)
			break
		}
		if err = node.Content[0].Decode(&doc); err == nil {
			list, err = doc.subjects()
		}
	default:
		return nil, fmt.Errorf("can't import %s document", f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s document: %w", f, err)
	}

	res := make([]attendance.Subject, 0, len(list))
	for i, ds := range list {
		s := attendance.Subject{ID: ds.ID, Name: ds.Name, Present: ds.Present, Total: ds.Total}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("subject %d: %w", i+1, err)
		}
		res = append(res, s)
	}
	return res, nil
}

//go:generate go run ./internal/schema ../../schema.json

// Schema returns json schema of Document
func Schema() *jsonschema.Schema {
	schema := jsonschema.Reflect(&Document{})
	schema.Title = "Attendo Export Document"
	schema.Description = "Attendance summary exported by attendo, accepted by attendo import"
	return schema
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
