package builtin

import "roas/pkg/records"

// Require removes any record missing a value for any of the listed fields.
type Require struct {
	Fields []string
}

// Apply returns a new slice holding only records with every field present and
// non-empty, in input order.
func (r Require) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, rec := range in {
		ok := true
		for _, f := range r.Fields {
			if rec.Empty(f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}
