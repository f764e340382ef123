// Package transformer defines the row-level transformation contract used to
// normalize input tables before any arithmetic runs. Transformers never change
// a record they were given; a record that needs a new value is cloned first.
package transformer

import (
	"roas/internal/table"
	"roas/pkg/records"
)

// Transformer maps a batch of records to a new batch.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order.
func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// ApplyTable runs the chain over t's rows and returns a new table. Columns
// listed in addCols are appended to the header when absent, so a transformer
// that backfills a column also makes it visible to header checks.
func (c Chain) ApplyTable(t table.Table, addCols ...string) table.Table {
	return t.WithRows(c.Apply(t.Rows)).WithColumns(addCols...)
}
