package config

import (
	"fmt"
	"sort"
	"strings"

	"roas/internal/schema"
	"roas/internal/transformer/builtin"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding. Path is a dotted path into the
// config, e.g. "inputs.payouts.file.path".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline lints p without changing it. Callers decide whether
// warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateInputs(p.Inputs)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateTransforms(p.Transform)...)
	issues = append(issues, validateFacets(p.Facets)...)
	issues = append(issues, validateViews(p.Views)...)
	issues = append(issues, validateExport(p.Export)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

// validateInputs checks that every table has a usable source. A table with no
// source is a warning: the run will wait for it rather than fail.
func validateInputs(in map[string]Source) []Issue {
	var issues []Issue
	for _, name := range schema.TableNames {
		s, ok := in[name]
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "inputs." + name,
				Message:  "no source configured; the report will wait for this table",
			})
			continue
		}
		issues = append(issues, validateSource("inputs."+name, s)...)
	}

	var extra []string
	for name := range in {
		if _, ok := schema.ContractFor(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "inputs." + name,
			Message:  fmt.Sprintf("unknown input table %q is ignored", name),
		})
	}
	return issues
}

func validateSource(path string, s Source) []Issue {
	var issues []Issue
	switch strings.TrimSpace(s.Kind) {
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  "source kind must not be empty",
		})
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		u := strings.TrimSpace(s.HTTP.URL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".http.url",
				Message:  "http source requires an http(s) URL",
			})
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".http.max_retries",
				Message:  "max_retries must not be negative",
			})
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".http.insecure_skip_verify",
				Message:  "TLS verification is disabled",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown source kind %q; want file or http", s.Kind),
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	switch p.Kind {
	case "", "auto", "csv", "xlsx":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; want auto, csv or xlsx", p.Kind),
		})
	}
	if c := p.Options.String("comma", ""); c != "" && c != `\t` && len([]rune(c)) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.comma",
			Message:  fmt.Sprintf("comma must be a single character, got %q", c),
		})
	}
	return issues
}

func validateTransforms(ts []Transform) []Issue {
	var issues []Issue
	for i, t := range ts {
		path := fmt.Sprintf("transform[%d]", i)
		switch t.Kind {
		case "coerce":
			if t.Options.String("layout", "") == "" {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".options.layout",
					Message:  "coerce has no layout; only ISO dates are recognized",
				})
			}
		case "dedup":
			switch t.Options.String("policy", builtin.PolicyKeepFirst) {
			case builtin.PolicyKeepFirst, builtin.PolicyKeepLast, builtin.PolicyMostComplete:
			default:
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".options.policy",
					Message:  fmt.Sprintf("unknown dedup policy %q", t.Options.String("policy", "")),
				})
			}
		case "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".kind",
				Message:  "transform kind must not be empty",
			})
		default:
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".kind",
				Message:  fmt.Sprintf("unknown transform kind %q is ignored", t.Kind),
			})
		}
	}
	return issues
}

func validateFacets(f Facets) []Issue {
	var issues []Issue
	if f.Platforms != nil && len(*f.Platforms) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "facets.platforms",
			Message:  "empty platform selection matches no influencer",
		})
	}
	if f.Categories != nil && len(*f.Categories) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "facets.categories",
			Message:  "empty category selection matches no influencer",
		})
	}
	return issues
}

func validateViews(v Views) []Issue {
	var issues []Issue
	if v.TopN < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "views.top_n",
			Message:  "top_n must not be negative",
		})
	}
	if v.LowROASThreshold != nil && *v.LowROASThreshold < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "views.low_roas_threshold",
			Message:  "low_roas_threshold must not be negative",
		})
	}
	return issues
}

func validateExport(e Export) []Issue {
	var issues []Issue
	switch e.Format {
	case "", "csv", "xlsx", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "export.format",
			Message:  fmt.Sprintf("unknown export format %q; want csv, xlsx or json", e.Format),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}

	known := map[string]struct{}{
		"postgres": {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; the storage sink falls back to its default", r.BatchSize),
		})
	}
	if r.LoadConcurrency < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.load_concurrency",
			Message:  "load_concurrency must not be negative",
		})
	}
	if r.TimeoutSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.timeout_seconds",
			Message:  "timeout_seconds must not be negative",
		})
	}
	return issues
}
