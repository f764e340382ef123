// Package records defines the generic row value shared by the parser,
// transformer and table stages. A Record maps a normalized column name to its
// value: nil for an empty cell, a string as parsed, or a typed value once a
// Coerce step has run (float64, int, bool, time.Time).
package records

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r. Stages that change values clone first so
// the previous stage's rows stay intact.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value for key rendered as a trimmed string. Missing and
// nil values yield "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Float returns the numeric value for key. Missing, nil and blank values
// return def. A value that cannot be read as a finite number is an error.
func (r Record) Float(key string, def float64) (float64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return def, nil
		}
		if math.IsInf(t, 0) {
			return 0, fmt.Errorf("column %s: %v is not a finite number", key, t)
		}
		return t, nil
	case float32:
		if math.IsInf(float64(t), 0) {
			return 0, fmt.Errorf("column %s: %v is not a finite number", key, t)
		}
		if math.IsNaN(float64(t)) {
			return def, nil
		}
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %q is not a number", key, t)
		}
		if math.IsNaN(f) {
			return def, nil
		}
		if math.IsInf(f, 0) {
			return 0, fmt.Errorf("column %s: %q is not a finite number", key, t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("column %s: unsupported value type %T", key, v)
	}
}

// Int returns the integer value for key. Float values with no fractional part
// (e.g. "1200.0" from a spreadsheet export) are accepted.
func (r Record) Int(key string, def int64) (int64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	}
	f, err := r.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("column %s: %v is not a whole number", key, f)
	}
	return int64(f), nil
}

// Empty reports whether key is missing, nil, or a blank string.
func (r Record) Empty(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
