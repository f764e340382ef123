// Package webui serves the report in a browser: an upload form for the four
// input files with platform and category checkboxes, the rendered views, and
// a CSV download. Every request is evaluated on its own; nothing is kept
// between requests.
//
// Routes:
//
//	GET  /            upload form
//	GET  /api/health  liveness
//	POST /report      multipart upload; renders the views or the state message
//	POST /api/report  same input; JSON result
//	POST /export      same input; roas_report.csv attachment
package webui

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"roas/internal/app"
	"roas/internal/config"
	"roas/internal/datasource"
	"roas/internal/export"
	"roas/internal/roas"
	"roas/internal/schema"
)

// DefaultMaxUploadBytes caps the multipart body.
const DefaultMaxUploadBytes = 32 << 20

// Config controls the server.
type Config struct {
	Addr string

	// Pipeline supplies parser options and view settings; its inputs and
	// export sections are ignored.
	Pipeline config.Pipeline

	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Server serves the upload form and reports.
type Server struct {
	cfg    Config
	log    *zap.Logger
	router *mux.Router
	tmpl   *template.Template
}

//go:embed index.tmpl.html
var indexHTML string

// NewServer constructs a Server with routes and the embedded template.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		cfg:  cfg,
		log:  cfg.Logger,
		tmpl: template.Must(template.New("index").Funcs(funcs).Parse(indexHTML)),
	}
	s.router = s.routes()
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("webui: listening", zap.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/report", s.handleReport).Methods(http.MethodPost)
	r.HandleFunc("/api/report", s.handleAPIReport).Methods(http.MethodPost)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, pageFor(roas.Outcome{State: roas.AwaitingInputs, Message: roas.MsgAwaitingInputs}, nil))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	out, sel, err := s.evaluate(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.renderPage(w, pageFor(out, sel))
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	out, _, err := s.evaluate(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, statusFor(out.State), responseFor(out))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	out, _, err := s.evaluate(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if out.State != roas.Ready {
		http.Error(w, out.Message, statusFor(out.State))
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, out.Result.Influencers); err != nil {
		s.log.Error("webui: export failed", zap.Error(err))
		http.Error(w, roas.MsgComputeFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFilename))
	_, _ = w.Write(buf.Bytes())
}

// selection is the facet choice a request carried. Nil slices mean every
// value.
type selection struct {
	Platforms  []string
	Categories []string
}

// evaluate reads the uploads and facet fields and runs the pipeline. The
// returned error is for malformed requests only.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) (roas.Outcome, *selection, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return roas.Outcome{}, nil, fmt.Errorf("bad upload: %w", err)
	}

	srcs := map[string]datasource.Source{}
	for _, name := range schema.TableNames {
		f, hdr, err := r.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return roas.Outcome{}, nil, fmt.Errorf("bad upload %s: %w", name, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return roas.Outcome{}, nil, fmt.Errorf("read upload %s: %w", name, err)
		}
		srcs[name] = datasource.Memory{Name: hdr.Filename, Data: data}
	}

	// The form marks facet fields as present so that clearing every box
	// selects nothing instead of everything.
	var sel *selection
	if r.FormValue("facets") == "1" {
		sel = &selection{
			Platforms:  nonNil(r.MultipartForm.Value["platform"]),
			Categories: nonNil(r.MultipartForm.Value["category"]),
		}
	}

	ctx := r.Context()
	p := s.cfg.Pipeline
	in, err := app.LoadInputs(ctx, srcs, p.Parser, len(schema.TableNames), p.Job, s.log)
	if err != nil {
		s.log.Warn("webui: unreadable upload", zap.Error(err))
		if out, ok := app.InputOutcome(err); ok {
			return out, sel, nil
		}
		return roas.Outcome{State: roas.Failed, Message: roas.MsgComputeFailed, Err: err}, sel, nil
	}

	var ov app.Overrides
	if sel != nil {
		ov.Platforms, ov.Categories = sel.Platforms, sel.Categories
	}
	opts := app.RunOptions(p, ov)
	opts.Logger = s.log
	return roas.Evaluate(ctx, in, opts), sel, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (s *Server) renderPage(w http.ResponseWriter, data page) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.log.Error("webui: template error", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// statusFor maps a state to an HTTP status for the API and export routes.
func statusFor(s roas.State) int {
	switch s {
	case roas.Ready:
		return http.StatusOK
	case roas.AwaitingInputs:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}
