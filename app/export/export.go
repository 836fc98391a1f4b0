// Package export renders attendance summary to downloadable documents.
// Supported formats are pdf (paginated text layout), plain text, yaml and json.
// Yaml and json documents can be read back with ReadDocument.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/umputun/attendo/app/attendance"
)

// Format of exported document
type Format string

// supported formats
const (
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Formats lists all supported formats in display order
var Formats = []Format{FormatPDF, FormatText, FormatYAML, FormatJSON}

// baseName is a fixed file name for all exports, extension depends on format
const baseName = "attendance_data"

// ParseFormat converts string to Format, case-insensitive. "txt" and "yml" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf", "":
		return FormatPDF, nil
	case "text", "txt":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Ext returns file extension without dot
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// FileName returns the fixed download file name for the format
func (f Format) FileName() string {
	return baseName + "." + f.Ext()
}

// ContentType returns mime type of the document
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatYAML:
		return "application/yaml"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders the summary in given format
func Write(w io.Writer, f Format, sum attendance.Summary) error {
	switch f {
	case FormatPDF:
		return WritePDF(w, sum)
	case FormatText:
		return WriteText(w, sum)
	case FormatYAML:
		return WriteYAML(w, sum)
	case FormatJSON:
		return WriteJSON(w, sum)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// WriteFile renders the summary to a file, replacing existing one
func WriteFile(path string, f Format, sum attendance.Summary) (err error) {
	fh, err := os.Create(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := fh.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	bw := bufio.NewWriter(fh)
	if err = Write(bw, f, sum); err != nil {
		return err
	}
	return bw.Flush()
}

// blocks makes text layout shared by text and pdf renderers: title, one block per subject and the total line
func blocks(sum attendance.Summary) [][]string {
	res := make([][]string, 0, len(sum.Rows)+2)
	res = append(res, []string{"Attendance Data"})
	for _, r := range sum.Rows {
		res = append(res, []string{
			"Subject: " + r.Subject.Name,
			fmt.Sprintf("Total Lectures: %d", r.Subject.Total),
			fmt.Sprintf("Present: %d", r.Subject.Present),
			fmt.Sprintf("Absent: %d", r.Absent),
			"Percentage: " + attendance.FormatPercent(r.Percentage),
		})
	}
	res = append(res, []string{"Total Attendance Percentage: " + attendance.FormatPercent(sum.Aggregate)})
	return res
}

// WriteText renders plain text summary, blocks separated by empty line
func WriteText(w io.Writer, sum attendance.Summary) error {
	var sb strings.Builder
	for i, b := range blocks(sum) {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, l := range b {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write text export: %w", err)
	}
	return nil
}

// Text returns plain text summary as a string
func Text(sum attendance.Summary) string {
	var sb strings.Builder
	_ = WriteText(&sb, sum) // strings.Builder never fails
	return sb.String()
}
