// Package shell implements interactive attendance session. Prompts and confirmations are
// collected here, the tracker gets only complete commands.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/attendo/app/attendance"
	"github.com/umputun/attendo/app/export"
)

// Tracker defines the subset of attendance.Tracker used by the shell
type Tracker interface {
	Add(name string) error
	Delete(id string) error
	MarkPresent(id string) error
	MarkAbsent(id string) error
	Undo() error
	RemoveAll() error
	At(pos int) (attendance.Subject, error)
	Summary() attendance.Summary
}

// Shell is a line-oriented session over a reader and a writer
type Shell struct {
	Tracker   Tracker
	Prompter  *Prompter
	Out       io.Writer
	ExportDir string // directory for exported files, current dir if empty
	AssumeYes bool   // skip delete confirmations
}

const helpText = `commands:
  list                    show subjects and percentages
  add [name]              add subject, asks for the name if missing
  present N               mark lecture attended for subject N
  absent N                mark lecture missed for subject N
  undo                    revert the last present/absent mark
  delete N                delete subject N
  remove-all              delete all subjects
  export [format] [file]  export summary, format is pdf, text, yaml or json
  help                    show this help
  quit                    end the session
`

// errQuit signals the end of session
var errQuit = errors.New("quit")

// New makes Shell reading from in and writing to out
func New(tr Tracker, in io.Reader, out io.Writer) *Shell {
	return &Shell{Tracker: tr, Prompter: NewPrompter(in, out), Out: out}
}

// Run processes commands until quit, end of input or canceled context
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprint(s.Out, "attendo shell, type help for commands\n")
	PrintList(s.Out, s.Tracker.Summary())
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, ok := s.Prompter.Ask("> ")
		if !ok {
			fmt.Fprintln(s.Out)
			return nil
		}
		if line == "" {
			continue
		}
		err := s.Exec(line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.Out, "error: %v\n", err)
		}
	}
}

// Exec runs a single command line
func (s *Shell) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	log.Printf("[DEBUG] shell command %q %v", cmd, args)

	switch cmd {
	case "list", "ls":
		PrintList(s.Out, s.Tracker.Summary())
		return nil
	case "add":
		return s.add(strings.Join(args, " "))
	case "present", "p":
		return s.mark(args, s.Tracker.MarkPresent)
	case "absent", "a":
		return s.mark(args, s.Tracker.MarkAbsent)
	case "undo", "u":
		return s.undo()
	case "delete", "del", "rm":
		return s.delete(args)
	case "remove-all":
		return s.removeAll()
	case "export":
		return s.export(args)
	case "help", "?":
		fmt.Fprint(s.Out, helpText)
		return nil
	case "quit", "exit", "q":
		return errQuit
	}
	return fmt.Errorf("unknown command %q, type help for the list", cmd)
}

func (s *Shell) add(name string) error {
	if name == "" {
		answer, ok := s.Prompter.Ask("subject name: ")
		if !ok || answer == "" {
			fmt.Fprintln(s.Out, "cancelled")
			return nil
		}
		name = answer
	}
	if err := s.Tracker.Add(name); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "added %s\n", strings.TrimSpace(name))
	return nil
}

func (s *Shell) mark(args []string, fn func(id string) error) error {
	subj, err := s.subject(args)
	if err != nil {
		return err
	}
	if err := fn(subj.ID); err != nil {
		return err
	}
	return s.printSubject(subj.ID)
}

func (s *Shell) undo() error {
	if !s.Tracker.Summary().CanUndo {
		fmt.Fprintln(s.Out, "nothing to undo")
		return nil
	}
	if err := s.Tracker.Undo(); err != nil {
		return err
	}
	fmt.Fprintln(s.Out, "undone")
	return nil
}

func (s *Shell) delete(args []string) error {
	subj, err := s.subject(args)
	if err != nil {
		return err
	}
	if !s.AssumeYes && !s.Prompter.Confirm(fmt.Sprintf("delete %s?", subj.Name)) {
		fmt.Fprintln(s.Out, "cancelled")
		return nil
	}
	if err := s.Tracker.Delete(subj.ID); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "deleted %s\n", subj.Name)
	return nil
}

func (s *Shell) removeAll() error {
	if !s.AssumeYes && !s.Prompter.Confirm("remove all subjects?") {
		fmt.Fprintln(s.Out, "cancelled")
		return nil
	}
	if err := s.Tracker.RemoveAll(); err != nil {
		return err
	}
	fmt.Fprintln(s.Out, "all subjects removed")
	return nil
}

func (s *Shell) export(args []string) error {
	format := export.FormatPDF
	if len(args) > 0 {
		f, err := export.ParseFormat(args[0])
		if err != nil {
			return err
		}
		format = f
	}
	path := filepath.Join(s.ExportDir, format.FileName())
	if len(args) > 1 {
		path = args[1]
	}
	if err := export.WriteFile(path, format, s.Tracker.Summary()); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "exported to %s\n", path)
	return nil
}

// subject resolves the single position argument
func (s *Shell) subject(args []string) (attendance.Subject, error) {
	if len(args) != 1 {
		return attendance.Subject{}, errors.New("subject number expected")
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return attendance.Subject{}, fmt.Errorf("bad subject number %q", args[0])
	}
	return s.Tracker.At(pos)
}

func (s *Shell) printSubject(id string) error {
	for _, r := range s.Tracker.Summary().Rows {
		if r.Subject.ID == id {
			fmt.Fprintf(s.Out, "%s: %d/%d, %s\n", r.Subject.Name, r.Subject.Present, r.Subject.Total,
				attendance.FormatPercent(r.Percentage))
			return nil
		}
	}
	return attendance.ErrNotFound
}

// PrintList renders subjects as a table followed by the total percentage
func PrintList(w io.Writer, sum attendance.Summary) {
	if len(sum.Rows) == 0 {
		fmt.Fprintln(w, "no subjects")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSubject\tTotal\tPresent\tAbsent\tPercentage")
		for _, r := range sum.Rows {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n", r.Position, r.Subject.Name, r.Subject.Total,
				r.Subject.Present, r.Absent, attendance.FormatPercent(r.Percentage))
		}
		_ = tw.Flush()
	}
	fmt.Fprintf(w, "Total Percentage: %s\n", attendance.FormatPercent(sum.Aggregate))
}
