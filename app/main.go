package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/attendo/app/attendance"
	"github.com/umputun/attendo/app/export"
	"github.com/umputun/attendo/app/notify"
	"github.com/umputun/attendo/app/shell"
	"github.com/umputun/attendo/app/store"
	"github.com/umputun/attendo/app/web"
)

type positionArgs struct {
	Args struct {
		Position string `positional-arg-name:"N" description:"subject number as shown by list"`
	} `positional-args:"yes" required:"yes"`
}

var opts struct {
	DB  string `long:"db" env:"ATTENDO_DB" default:"attendo.db" description:"sqlite database file"`
	Yes bool   `short:"y" long:"yes" description:"don't ask for confirmations"`
	Dbg bool   `long:"dbg" env:"ATTENDO_DEBUG" description:"debug mode"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging"`
		Filename        string `long:"filename" env:"FILENAME" description:"file name to write logs to, stdout if empty"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in MB"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to retain old log files"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of old log files"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"ATTENDO_LOG"`

	Notify struct {
		SMTPHost     string        `long:"smtp-host" env:"SMTP_HOST" description:"SMTP host"`
		SMTPPort     int           `long:"smtp-port" env:"SMTP_PORT" default:"25" description:"SMTP port"`
		SMTPUsername string        `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user name"`
		SMTPPassword string        `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
		SMTPTLS      bool          `long:"smtp-tls" env:"SMTP_TLS" description:"enable SMTP TLS"`
		SMTPStartTLS bool          `long:"smtp-starttls" env:"SMTP_STARTTLS" description:"enable SMTP StartTLS"`
		SMTPTimeOut  time.Duration `long:"smtp-timeout" env:"SMTP_TIMEOUT" default:"10s" description:"SMTP TCP connection timeout"`
		FromEmail    string        `long:"from" env:"FROM" description:"SMTP from email"`
		ToEmails     []string      `long:"to" env:"TO" description:"SMTP to email(s)" env-delim:","`
		HostName     string        `long:"host" env:"HOSTNAME" description:"host name shown in messages"`
	} `group:"notify" namespace:"notify" env-namespace:"ATTENDO_NOTIFY"`

	List struct{} `command:"list" description:"show subjects and percentages"`
	Add  struct {
		Args struct {
			Name []string `positional-arg-name:"NAME" description:"subject name, asked for if missing"`
		} `positional-args:"yes"`
	} `command:"add" description:"add subject"`
	Delete    positionArgs `command:"delete" description:"delete subject"`
	Present   positionArgs `command:"present" description:"mark lecture attended"`
	Absent    positionArgs `command:"absent" description:"mark lecture missed"`
	RemoveAll struct{}     `command:"remove-all" description:"delete all subjects"`
	Export    struct {
		Format string `short:"f" long:"format" default:"pdf" description:"export format (pdf, text, yaml, json)"`
		Output string `short:"o" long:"output" description:"output file, attendance_data.<ext> if not set"`
		Email  bool   `long:"email" description:"email summary to notify.to recipients instead of writing a file"`
	} `command:"export" description:"export attendance summary"`
	Import struct {
		Args struct {
			File string `positional-arg-name:"FILE" description:"yaml or json document made by export"`
		} `positional-args:"yes" required:"yes"`
	} `command:"import" description:"replace subjects with exported document"`
	Schema struct{} `command:"schema" description:"print json schema of exported document"`
	Shell  struct{} `command:"shell" description:"interactive session with undo"`
	Web    struct {
		Address   string  `long:"address" env:"ATTENDO_WEB_ADDRESS" default:":8080" description:"web server listen address"`
		Hostname  string  `long:"hostname" env:"ATTENDO_WEB_HOSTNAME" description:"hostname shown in UI"`
		RateLimit float64 `long:"rate-limit" env:"ATTENDO_WEB_RATE_LIMIT" default:"10" description:"max changes per second"`
	} `command:"web" description:"run web view"`
}

var revision = "unknown"

func main() {
	fmt.Fprintf(os.Stderr, "attendo %s\n", revision)

	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx, p.Active.Name, os.Stdin, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err) // lgr output is discarded without --log.enabled
		os.Exit(1) //nolint:gocritic // cancel is not needed on exit
	}
}

// run opens the store and executes a single command
func run(ctx context.Context, command string, in io.Reader, out io.Writer) error {
	if command == "schema" {
		return printSchema(out)
	}

	kv, err := store.NewSQLite(opts.DB)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Printf("[WARN] failed to close store: %v", err)
		}
	}()

	tr := attendance.NewTracker(store.NewSnapshot(kv))
	sh := shell.New(tr, in, out)
	sh.AssumeYes = opts.Yes

	switch command {
	case "list":
		shell.PrintList(out, tr.Summary())
		return nil
	case "add":
		return sh.Exec(strings.TrimSpace("add " + strings.Join(opts.Add.Args.Name, " ")))
	case "delete":
		return sh.Exec("delete " + opts.Delete.Args.Position)
	case "present":
		return sh.Exec("present " + opts.Present.Args.Position)
	case "absent":
		return sh.Exec("absent " + opts.Absent.Args.Position)
	case "remove-all":
		return sh.Exec("remove-all")
	case "export":
		return runExport(ctx, tr, out)
	case "import":
		return runImport(tr, sh.Prompter, opts.Import.Args.File, out)
	case "shell":
		return sh.Run(ctx)
	case "web":
		return runWeb(ctx, tr)
	}
	return fmt.Errorf("unknown command %q", command)
}

func runExport(ctx context.Context, tr *attendance.Tracker, out io.Writer) error {
	sum := tr.Summary()
	if opts.Export.Email {
		svc := makeNotifier()
		if svc == nil {
			return errors.New("no email recipients, set --notify.to")
		}
		msg, err := notify.MakeSummaryHTML(sum, makeHostName())
		if err != nil {
			return fmt.Errorf("failed to make email: %w", err)
		}
		if err := svc.Send(ctx, "Attendance Data", msg); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		fmt.Fprintf(out, "sent to %s\n", strings.Join(opts.Notify.ToEmails, ", "))
		return nil
	}

	format, err := export.ParseFormat(opts.Export.Format)
	if err != nil {
		return err
	}
	path := opts.Export.Output
	if path == "" {
		path = format.FileName()
	}
	if err := export.WriteFile(path, format, sum); err != nil {
		return err
	}
	fmt.Fprintf(out, "exported to %s\n", path)
	return nil
}

// runImport replaces all subjects with the document content, asks for confirmation unless --yes
func runImport(tr *attendance.Tracker, prompter *shell.Prompter, file string, out io.Writer) error {
	format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(file), "."))
	if err != nil {
		return err
	}
	fh, err := os.Open(file) //nolint:gosec // file from command line
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer fh.Close()

	subjects, err := export.ReadDocument(fh, format)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	question := fmt.Sprintf("replace %d subjects with %d from %s?", len(tr.Subjects()), len(subjects), file)
	if !opts.Yes && !prompter.Confirm(question) {
		fmt.Fprintln(out, "cancelled")
		return nil
	}
	if err := tr.Replace(subjects); err != nil {
		return err
	}
	log.Printf("[INFO] imported %d subjects from %s", len(subjects), file)
	shell.PrintList(out, tr.Summary())
	return nil
}

func runWeb(ctx context.Context, tr *attendance.Tracker) error {
	hostname := opts.Web.Hostname
	if hostname == "" {
		hostname = makeHostName()
	}
	srv, err := web.New(web.Config{Tracker: tr, Version: revision, Hostname: hostname, RateLimit: opts.Web.RateLimit})
	if err != nil {
		return err
	}
	return srv.Run(ctx, opts.Web.Address)
}

func printSchema(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export.Schema()); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

func makeNotifier() *notify.Service {
	if len(opts.Notify.ToEmails) == 0 {
		return nil
	}
	if opts.Notify.FromEmail == "" {
		opts.Notify.FromEmail = "attendo@" + makeHostName()
	}
	return notify.NewService(notify.Params{
		Host:     opts.Notify.SMTPHost,
		Port:     opts.Notify.SMTPPort,
		TLS:      opts.Notify.SMTPTLS,
		StartTLS: opts.Notify.SMTPStartTLS,
		Username: opts.Notify.SMTPUsername,
		Password: opts.Notify.SMTPPassword,
		TimeOut:  opts.Notify.SMTPTimeOut,
		From:     opts.Notify.FromEmail,
		To:       opts.Notify.ToEmails,
	})
}

func makeHostName() string {
	if opts.Notify.HostName != "" {
		return opts.Notify.HostName
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// setupLogs configures lgr and returns the writer logs go to
func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		log.Setup(log.Out(io.Discard), log.Err(io.Discard))
		return os.Stdout
	}

	var out io.Writer = os.Stdout
	if opts.Log.Filename != "" {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxAge:     opts.Log.MaxAge,
			MaxBackups: opts.Log.MaxBackups,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile, log.Out(out), log.Err(out))
		return out
	}
	log.Setup(log.Msec, log.Out(out), log.Err(out))
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			cancel() // terminate on SIGTERM
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM)
}
