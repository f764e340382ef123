package builtin

import (
	"math"
	"strconv"
	"strings"
	"time"

	"roas/pkg/records"
)

// Coerce converts string values to typed values per column. Values that do not
// parse are left as strings so the decoding stage can report them with their
// column name.
type Coerce struct {
	Types  map[string]string // field -> one of: int, float, date, text
	Layout string            // extra date layout tried after ISO
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	if len(c.Types) == 0 {
		return in
	}
	out := make([]records.Record, len(in))
	for i, r := range in {
		var cp records.Record
		for field, typ := range c.Types {
			s, isStr := r[field].(string)
			if !isStr {
				continue
			}
			v, ok := c.convert(typ, strings.TrimSpace(s))
			if !ok {
				continue
			}
			if cp == nil {
				cp = r.Clone()
			}
			cp[field] = v
		}
		if cp != nil {
			out[i] = cp
		} else {
			out[i] = r
		}
	}
	return out
}

func (c Coerce) convert(typ, s string) (any, bool) {
	switch typ {
	case "int":
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
	case "float":
		// "Inf" and "NaN" parse but are not amounts; they stay text.
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f, true
		}
	case "date":
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, true
		}
		if c.Layout != "" {
			if t, err := time.Parse(c.Layout, s); err == nil {
				return t, true
			}
		}
	}
	return nil, false
}
