// Package web implements the web view for attendo
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/attendo/app/attendance"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Tracker defines attendance operations used by the web view
type Tracker interface {
	Add(name string) error
	Delete(id string) error
	MarkPresent(id string) error
	MarkAbsent(id string) error
	Undo() error
	RemoveAll() error
	Summary() attendance.Summary
}

// Server represents the web server
type Server struct {
	tracker        Tracker
	templates      *template.Template
	version        string
	hostname       string
	csrfProtection *http.CrossOriginProtection // csrf protection for POST endpoints
	limiter        *limiter.Limiter            // rate limiter for mutating endpoints
}

// Config holds server configuration
type Config struct {
	Tracker   Tracker
	Version   string
	Hostname  string  // hostname to display in UI
	RateLimit float64 // max mutating requests per second, 10 if not set
}

// TemplateData holds data for the dashboard template
type TemplateData struct {
	Summary     attendance.Summary
	Formats     []string
	Hostname    string
	Version     string
	CurrentYear int
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Tracker == nil {
		return nil, errors.New("web server initialization failed: Tracker is required")
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}
	lmt := tollbooth.NewLimiter(rateLimit, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})

	s := &Server{
		tracker:        cfg.Tracker,
		version:        cfg.Version,
		hostname:       cfg.Hostname,
		csrfProtection: http.NewCrossOriginProtection(),
		limiter:        lmt,
	}

	tmpl, err := template.New("base.html").Funcs(template.FuncMap{"percent": attendance.FormatPercent}).
		ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = tmpl
	return s, nil
}

// Run starts the web server and blocks until ctx canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.AppInfo("attendo", "umputun", s.version),
		rest.Ping,
		rest.SizeLimit(64*1024),
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.HandleFunc("GET /{$}", s.handleDashboard)
	router.HandleFunc("GET /export/{format}", s.handleExport)

	// mutating routes, all redirect back to dashboard
	router.Group().Route(func(b *routegroup.Bundle) {
		b.Use(s.csrfProtection.Handler, tollbooth.HTTPMiddleware(s.limiter))
		b.HandleFunc("POST /subjects", s.handleAdd)
		b.HandleFunc("POST /subjects/{id}/present", s.handleMark(s.tracker.MarkPresent))
		b.HandleFunc("POST /subjects/{id}/absent", s.handleMark(s.tracker.MarkAbsent))
		b.HandleFunc("POST /subjects/{id}/delete", s.handleDelete)
		b.HandleFunc("POST /undo", s.handleUndo)
		b.HandleFunc("POST /remove-all", s.handleRemoveAll)
	})

	// JSON API for CLI/programmatic access
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.HandleFunc("GET /subjects", s.handleAPISubjects)
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// render executes the template into a buffer first, so template errors don't produce partial pages
func (s *Server) render(w http.ResponseWriter, tmplName string, data any) {
	buf := new(bytes.Buffer)
	if err := s.templates.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[WARN] failed to execute template: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}
