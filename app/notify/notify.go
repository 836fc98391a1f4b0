// Package notify delivers attendance summary via email
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
	"github.com/go-pkgz/syncs"

	"github.com/umputun/attendo/app/attendance"
)

// Params defines SMTP connection and addressing
type Params struct {
	Host     string
	Port     int
	TLS      bool
	StartTLS bool
	Username string
	Password string
	TimeOut  time.Duration
	From     string
	To       []string
}

// Service sends messages to all configured destinations
type Service struct {
	destinations []notify.Notifier
	fromEmail    string
	toEmail      []string
}

// NewService makes email Service, returns nil if no recipients configured
func NewService(p Params) *Service {
	if len(p.To) == 0 {
		return nil
	}
	email := notify.NewEmail(notify.SMTPParams{
		Host:        p.Host,
		Port:        p.Port,
		TLS:         p.TLS,
		StartTLS:    p.StartTLS,
		ContentType: "text/html",
		Charset:     "UTF-8",
		Username:    p.Username,
		Password:    p.Password,
		TimeOut:     p.TimeOut,
	})
	return &Service{destinations: []notify.Notifier{email}, fromEmail: p.From, toEmail: p.To}
}

// Send delivers text to every recipient of every destination concurrently, errors are joined
func (s *Service) Send(ctx context.Context, subj, text string) error {
	var mu sync.Mutex
	var errs []error
	gr := syncs.NewSizedGroup(4)
	for _, dest := range s.destinations {
		for _, rcpt := range s.toEmail {
			gr.Go(func(context.Context) {
				to := s.destination(dest.Schema(), rcpt, subj)
				log.Printf("[DEBUG] send %q to %s via %s", subj, rcpt, dest)
				if err := dest.Send(ctx, to, text); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", rcpt, err))
					mu.Unlock()
				}
			})
		}
	}
	gr.Wait()
	return errors.Join(errs...)
}

// destination makes notifier-specific address for a single recipient, only mailto supported for now
func (s *Service) destination(schema, rcpt, subj string) string {
	if schema != "mailto" {
		return ""
	}
	q := url.Values{}
	q.Set("from", s.fromEmail)
	q.Set("subject", subj)
	return "mailto:" + rcpt + "?" + q.Encode()
}

// MakeSummaryHTML renders summary as html message body
func MakeSummaryHTML(sum attendance.Summary, host string) (string, error) {
	tmpl := `<!DOCTYPE html>
<html>
	<head>
		<meta name="viewport" content="width=device-width" />
		<meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
		<style type="text/css">
			body {
				font-family: "Arial";
				font-size: 1.0em;
			}
			td, th {
				padding: 0.2em 0.8em;
				text-align: left;
			}
			.bold {
				color: #882828;
				font-weight: 900;
			}
		</style>
	</head>

	<body>
		<p>Attendance summary from <span class="bold">{{.Host}}</span> at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}</p>
		<table>
			<tr><th>Subject</th><th>Total</th><th>Present</th><th>Absent</th><th>Percentage</th></tr>
			{{- range .Rows}}
			<tr><td>{{.Subject.Name}}</td><td>{{.Subject.Total}}</td><td>{{.Subject.Present}}</td><td>{{.Absent}}</td><td>{{percent .Percentage}}</td></tr>
			{{- end}}
		</table>
		<p>Total Attendance Percentage: <span class="bold">{{percent .Aggregate}}</span></p>
	</body>
</html>
`

	data := struct {
		Rows      []attendance.Row
		Aggregate float64
		TS        time.Time
		Host      string
	}{
		Rows:      sum.Rows,
		Aggregate: sum.Aggregate,
		TS:        time.Now(),
		Host:      host,
	}

	t, err := template.New("msg").Funcs(template.FuncMap{"percent": attendance.FormatPercent}).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("can't parse message template: %w", err)
	}
	buf := bytes.Buffer{}
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to apply template: %w", err)
	}
	return buf.String(), nil
}
