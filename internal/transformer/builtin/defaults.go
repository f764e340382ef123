// Package builtin contains the reusable transformers the pipeline applies to
// each input table.
package builtin

import (
	"sort"

	"roas/pkg/records"
)

// Defaults backfills columns with fixed values so later stages can assume a
// fixed schema. A column absent from a record is always added; when FillEmpty
// is set, a nil or blank value is also replaced. Present values are kept.
type Defaults struct {
	Values    map[string]any
	FillEmpty bool
}

// Columns returns the backfilled column names in sorted order.
func (d Defaults) Columns() []string {
	out := make([]string, 0, len(d.Values))
	for k := range d.Values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Apply returns the records with defaults written in. Records that need no
// change are passed through as-is; others are cloned.
func (d Defaults) Apply(in []records.Record) []records.Record {
	if len(d.Values) == 0 {
		return in
	}
	out := make([]records.Record, len(in))
	for i, rec := range in {
		var cp records.Record
		for col, def := range d.Values {
			_, exists := rec[col]
			if exists && !(d.FillEmpty && rec.Empty(col)) {
				continue
			}
			if cp == nil {
				cp = rec.Clone()
			}
			cp[col] = def
		}
		if cp != nil {
			out[i] = cp
		} else {
			out[i] = rec
		}
	}
	return out
}
