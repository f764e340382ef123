// Package app wires a config.Pipeline to the ROAS pipeline: it loads the
// four inputs, evaluates the report, and hands a ready report to the export
// file and the optional storage sink.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roas/internal/config"
	"roas/internal/datasource"
	"roas/internal/export"
	"roas/internal/roas"
	"roas/internal/storage"
	"roas/internal/transformer/builtin"
)

// Overrides are per-invocation settings that win over the config file, such
// as CLI flags.
type Overrides struct {
	Platforms  []string
	Categories []string
	OutPath    string
	Format     string
}

// Report is what one invocation produced.
type Report struct {
	Outcome    roas.Outcome
	ExportPath string
	StoredRows int64
}

// App runs one pipeline config.
type App struct {
	cfg config.Pipeline
	log *zap.Logger

	// sources replaces the configured inputs when set; tests and the web UI
	// use it to supply in-memory tables.
	sources map[string]datasource.Source
}

// New returns an App for cfg. A nil logger disables logging.
func New(cfg config.Pipeline, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{cfg: cfg, log: log}
}

// WithSources makes the App read from srcs instead of the configured inputs.
func (a *App) WithSources(srcs map[string]datasource.Source) *App {
	a.sources = srcs
	return a
}

// Run loads the inputs and evaluates the report. A Ready report is written to
// the export path and stored when storage is configured. The returned error
// is non-nil only for infrastructure failures (loading, writing, storing);
// pipeline failures are reported through Report.Outcome.
func (a *App) Run(ctx context.Context, ov Overrides) (Report, error) {
	if t := a.cfg.Runtime.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	srcs := a.sources
	if srcs == nil {
		var err error
		if srcs, err = Sources(a.cfg, a.log); err != nil {
			return Report{}, err
		}
	}

	in, err := LoadInputs(ctx, srcs, a.cfg.Parser, a.cfg.Runtime.LoadConcurrency, a.job(), a.log)
	if err != nil {
		if out, ok := InputOutcome(err); ok {
			a.log.Warn("app: malformed input", zap.Error(err))
			return Report{Outcome: out}, nil
		}
		return Report{}, fmt.Errorf("load inputs: %w", err)
	}

	opts := RunOptions(a.cfg, ov)
	opts.Logger = a.log
	out := roas.Evaluate(ctx, in, opts)
	rep := Report{Outcome: out}
	if out.State != roas.Ready {
		return rep, nil
	}

	// The export is staged next to its destination and renamed into place
	// once storage has succeeded.
	var staged, path string
	if path = firstNonEmpty(ov.OutPath, a.cfg.Export.Path); path != "" {
		format := ov.Format
		if format == "" && ov.OutPath != "" {
			format = export.FormatFor(ov.OutPath)
		}
		format = firstNonEmpty(format, a.cfg.Export.Format, export.FormatFor(path))
		if staged, err = stageExport(path, format, out.Result); err != nil {
			return rep, err
		}
		defer os.Remove(staged)
	}

	if a.cfg.Storage.Kind != "" {
		n, err := a.store(ctx, out.Result)
		if err != nil {
			return rep, err
		}
		rep.StoredRows = n
	}

	if staged != "" {
		if err := os.Rename(staged, path); err != nil {
			return rep, fmt.Errorf("export: %w", err)
		}
		rep.ExportPath = path
		a.log.Info("app: report exported", zap.String("path", path))
	}
	return rep, nil
}

// RunOptions translates the config and overrides into roas.Options.
func RunOptions(p config.Pipeline, ov Overrides) roas.Options {
	f := roas.Facets{
		Platforms:  selection(p.Facets.Platforms),
		Categories: selection(p.Facets.Categories),
	}
	if ov.Platforms != nil {
		f.Platforms = roas.Only(ov.Platforms...)
	}
	if ov.Categories != nil {
		f.Categories = roas.Only(ov.Categories...)
	}
	return roas.Options{
		Job:               p.Job,
		Facets:            &f,
		TopN:              p.Views.TopN,
		LowROASThreshold:  p.Views.LowROASThreshold,
		IncludeUntracked:  p.Views.IncludeUntracked,
		PayoutDedupPolicy: p.TransformOptions("dedup").String("policy", builtin.PolicyKeepFirst),
		DateLayout:        p.TransformOptions("coerce").String("layout", ""),
		RunID:             uuid.New(),
	}
}

// selection maps a configured facet list: nil selects everything, an empty
// list selects nothing.
func selection(values *[]string) roas.Selection {
	if values == nil {
		return roas.AllValues()
	}
	return roas.Only(*values...)
}

func (a *App) job() string {
	if a.cfg.Job == "" {
		return "roas"
	}
	return a.cfg.Job
}

func (a *App) store(ctx context.Context, res *roas.Result) (int64, error) {
	db := a.cfg.Storage.DB
	repo, err := storage.New(ctx, storage.Config{
		Kind:    a.cfg.Storage.Kind,
		DSN:     db.DSN,
		Table:   db.Table,
		Columns: export.ReportTable(db.Table).ColumnNames(),
	})
	if err != nil {
		return 0, fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	return export.ToRepository(ctx, repo, res.Influencers, export.SinkOptions{
		Kind:            a.cfg.Storage.Kind,
		Table:           db.Table,
		AutoCreateTable: db.AutoCreateTable,
		BatchSize:       a.cfg.Runtime.BatchSize,
		RunID:           res.RunID,
		Logger:          a.log,
	})
}

// stageExport writes the report to a temporary file in the directory of path
// and returns its name. The caller renames it to path or removes it.
func stageExport(path, format string, res *roas.Result) (name string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: %w", cerr)
		}
		if err != nil {
			os.Remove(f.Name())
			name = ""
		}
	}()
	if err := export.Write(f, format, res.Influencers); err != nil {
		return "", err
	}
	if err := f.Chmod(0o644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return f.Name(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
