// Package csv reads a delimited input file into a table. The first row is the
// header. Short rows are padded with nil cells; a row wider than the header or
// one that cannot be read fails the file, so no row is silently dropped.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"roas/internal/parser"
	"roas/internal/table"
	"roas/pkg/records"
)

// Options configures the CSV parser. All fields are optional.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// HeaderMap maps source header names to canonical keys.
	HeaderMap map[string]string

	// Logger receives one line per padded row, up to a limit. Nil disables
	// logging.
	Logger *zap.Logger
}

// padLogLimit caps how many padded rows are logged per file.
const padLogLimit = 50

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Parser{opt: opt}
}

var _ parser.Parser = (*Parser)(nil)

// Parse consumes the whole input and returns the table named name along with
// the number of padded rows. A missing header is an error; an input with a
// header and no rows is an empty table.
func (p *Parser) Parse(name string, r io.Reader) (table.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// Width is checked below: short rows are padded, long rows rejected.
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err == io.EOF {
		return table.Table{}, 0, fmt.Errorf("%s: empty input, header row required", name)
	}
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("%s: read csv header: %w", name, err)
	}
	headers := parser.NormalizeHeaders(h, p.opt.HeaderMap)
	log := p.opt.Logger.With(zap.String("table", name))

	var out []records.Record
	var padded int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, 0, &parser.RowError{Table: name, Line: rowLine(err, line), Reason: "unreadable row", Err: err}
		}
		if isBlank(row) {
			continue
		}
		if len(row) > len(headers) && !allBlank(row[len(headers):]) {
			return table.Table{}, 0, &parser.RowError{
				Table:  name,
				Line:   line,
				Reason: fmt.Sprintf("%d fields, header has %d", len(row), len(headers)),
			}
		}
		if len(row) < len(headers) {
			if padded < padLogLimit {
				log.Warn("csv: padding short row",
					zap.Int("line", line), zap.Int("expected", len(headers)), zap.Int("got", len(row)))
			}
			padded++
		}

		rec := make(records.Record, len(headers))
		for i := range headers {
			var val string
			if i < len(row) {
				val = row[i]
			}
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[parser.KeyFor(i, headers)] = parser.EmptyToNil(val)
		}
		out = append(out, rec)
	}
	if padded > 0 {
		log.Info("csv: short rows padded", zap.Int("padded", padded), zap.Int("rows", len(out)))
	}

	cols := make([]string, len(headers))
	for i := range headers {
		cols[i] = parser.KeyFor(i, headers)
	}
	return table.New(name, cols, out), padded, nil
}

// isBlank reports whether a row is a single empty field, which encoding/csv
// returns for whitespace-only lines.
func isBlank(row []string) bool {
	return len(row) == 1 && strings.TrimSpace(row[0]) == ""
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// rowLine prefers the line encoding/csv reports, which accounts for quoted
// fields spanning lines.
func rowLine(err error, fallback int) int {
	var pe *csv.ParseError
	if errors.As(err, &pe) && pe.Line > 0 {
		return pe.Line
	}
	return fallback
}
