package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"roas/pkg/records"
)

// Normalize trims string values, folds non-breaking spaces to plain spaces and
// applies Unicode NFC so facet values typed on different systems compare
// equal. Blank strings become nil.
type Normalize struct{}

func (Normalize) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, len(in))
	for i, r := range in {
		var cp records.Record
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			n := cleanString(s)
			if n == s {
				continue
			}
			if cp == nil {
				cp = r.Clone()
			}
			if n == "" {
				cp[k] = nil
			} else {
				cp[k] = n
			}
		}
		if cp != nil {
			out[i] = cp
		} else {
			out[i] = r
		}
	}
	return out
}

func cleanString(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(norm.NFC.String(s))
}
