// Package table holds the in-memory tabular shape handed to the pipeline by a
// data source: a name, an ordered column list taken from the header row, and
// one records.Record per data row.
package table

import (
	"roas/pkg/records"
)

// Table is a named, header-ordered set of rows.
type Table struct {
	Name    string
	Columns []string
	Rows    []records.Record
}

// New builds a Table from a header and rows.
func New(name string, columns []string, rows []records.Record) Table {
	return Table{Name: name, Columns: columns, Rows: rows}
}

// Has reports whether the header contains col.
func (t Table) Has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// WithRows returns a copy of t carrying rows, keeping the header.
func (t Table) WithRows(rows []records.Record) Table {
	return Table{Name: t.Name, Columns: append([]string(nil), t.Columns...), Rows: rows}
}

// WithColumns returns a copy of t whose header also lists cols that were not
// already present. Row values are not touched.
func (t Table) WithColumns(cols ...string) Table {
	out := append([]string(nil), t.Columns...)
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return Table{Name: t.Name, Columns: out, Rows: t.Rows}
}
