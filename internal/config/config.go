// Package config defines the JSON/YAML configuration model for a ROAS report
// run: where the four input tables come from, how they are parsed, which
// facets and views to compute, and where the report goes.
//
// Example (trimmed):
//
//	{
//	  "job": "weekly-roas",
//	  "inputs": {
//	    "influencers":   { "kind": "file", "file": { "path": "data/influencers.csv" } },
//	    "posts":         { "kind": "file", "file": { "path": "data/posts.csv" } },
//	    "tracking_data": { "kind": "http", "http": { "url": "https://reports/tracking.csv" } },
//	    "payouts":       { "kind": "file", "file": { "path": "data/payouts.xlsx" } }
//	  },
//	  "parser":    { "kind": "auto", "options": { "comma": ",", "trim_space": true } },
//	  "transform": [ { "kind": "dedup", "options": { "policy": "keep-first" } } ],
//	  "facets":    { "platforms": ["Instagram"] },
//	  "views":     { "top_n": 5, "low_roas_threshold": 1.0 },
//	  "export":    { "path": "roas_report.csv", "format": "csv" },
//	  "storage":   { "kind": "postgres", "db": { "dsn": "...", "table": "public.roas_report" } }
//	}
package config

import (
	"encoding/json"
	"time"
)

// Pipeline is the top-level configuration document.
type Pipeline struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job"`

	// Inputs maps a table name (influencers, posts, tracking_data, payouts)
	// to its source.
	Inputs map[string]Source `json:"inputs"`

	Parser    Parser      `json:"parser"`
	Transform []Transform `json:"transform"`
	Facets    Facets      `json:"facets"`
	Views     Views       `json:"views"`
	Export    Export      `json:"export"`

	// Storage optionally persists the influencer aggregate. An empty kind
	// disables it.
	Storage Storage       `json:"storage"`
	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls input loading and the storage sink.
type RuntimeConfig struct {
	// LoadConcurrency caps how many inputs are fetched at once.
	LoadConcurrency int `json:"load_concurrency"`

	// BatchSize is the number of report rows per storage batch.
	BatchSize int `json:"batch_size"`

	// TimeoutSeconds bounds the whole run; 0 means no limit.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a duration.
func (r RuntimeConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Source identifies where one input comes from.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind"`

	File SourceFile `json:"file"`
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL                string            `json:"url"`
	Headers            map[string]string `json:"headers"`
	MaxRetries         int               `json:"max_retries"`
	TimeoutSeconds     int               `json:"timeout_seconds"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify"`
}

// Location returns the path or URL, whichever the kind uses.
func (s Source) Location() string {
	if s.Kind == "http" {
		return s.HTTP.URL
	}
	return s.File.Path
}

// Parser selects how input bytes become tables.
type Parser struct {
	// Kind is "auto" (by extension, then content), "csv" or "xlsx".
	Kind string `json:"kind"`

	// Options keys: comma (string), trim_space (bool), header_map (object),
	// sheet (string, xlsx only).
	Options Options `json:"options"`
}

// Transform tunes one step of the fixed normalization chain. Kinds:
// "coerce" (options.layout: extra date layout) and "dedup"
// (options.policy: keep-first, keep-last, most-complete).
type Transform struct {
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// Facets restricts the roster. A nil list selects every value; an empty list
// selects none.
type Facets struct {
	Platforms  *[]string `json:"platforms"`
	Categories *[]string `json:"categories"`
}

// Views sizes the ranked views.
type Views struct {
	TopN             int      `json:"top_n"`
	LowROASThreshold *float64 `json:"low_roas_threshold"`
	IncludeUntracked bool     `json:"include_untracked"`
}

// Export configures the report file. An empty path skips the file.
type Export struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// Storage selects the database sink for the report.
type Storage struct {
	// Kind selects the backend: postgres, mssql or sqlite.
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the DB sink.
type DBConfig struct {
	// DSN is the backend connection string.
	DSN string `json:"dsn"`

	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table"`

	// AutoCreateTable creates the report table when it does not exist.
	AutoCreateTable bool `json:"auto_create_table"`
}

// TransformOptions returns the options of the first transform of kind, or an
// empty Options.
func (p Pipeline) TransformOptions(kind string) Options {
	for _, t := range p.Transform {
		if t.Kind == kind {
			return t.Options
		}
	}
	return Options{}
}

// Options fetches typed values from a free-form JSON object. It performs
// minimal coercion and returns the default when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value, e.g. a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			if s == `\t` {
				return '\t'
			}
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns the string values of an object-valued key. Non-string
// values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns the strings of an array-valued key, or nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null options object to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
