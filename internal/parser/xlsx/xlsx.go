// Package xlsx reads one worksheet of an .xlsx workbook into a table using
// excelize. The first non-empty row is the header.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"roas/internal/parser"
	"roas/internal/table"
	"roas/pkg/records"
)

// Options configures the workbook parser.
type Options struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string

	TrimSpace bool
	HeaderMap map[string]string
	Logger    *zap.Logger
}

// Parser reads workbooks according to Options.
type Parser struct{ opt Options }

func NewParser(opt Options) *Parser {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Parser{opt: opt}
}

var _ parser.Parser = (*Parser)(nil)

// Parse reads the selected sheet. excelize drops trailing empty cells, so
// short rows are padded with nil and not counted; a row with values past the
// last header fails the parse with a *parser.RowError.
func (p *Parser) Parse(name string, r io.Reader) (table.Table, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("%s: open xlsx: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	sheet := p.opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return table.Table{}, 0, errors.New(name + ": workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("%s: read sheet %q: %w", name, sheet, err)
	}

	hdr := -1
	for i, row := range rows {
		if !blank(row) {
			hdr = i
			break
		}
	}
	if hdr < 0 {
		return table.Table{}, 0, fmt.Errorf("%s: sheet %q has no header row", name, sheet)
	}
	headers := parser.NormalizeHeaders(rows[hdr], p.opt.HeaderMap)
	cols := make([]string, len(headers))
	for i := range headers {
		cols[i] = parser.KeyFor(i, headers)
	}

	var out []records.Record
	for i := hdr + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		if len(row) > len(cols) && !blank(row[len(cols):]) {
			return table.Table{}, 0, &parser.RowError{
				Table:  name,
				Line:   i + 1,
				Reason: fmt.Sprintf("sheet %q: %d cells, header has %d", sheet, len(row), len(cols)),
			}
		}
		rec := make(records.Record, len(cols))
		for c, key := range cols {
			var val string
			if c < len(row) {
				val = row[c]
			}
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[key] = parser.EmptyToNil(val)
		}
		out = append(out, rec)
	}
	p.opt.Logger.Debug("xlsx: sheet read", zap.String("table", name), zap.String("sheet", sheet), zap.Int("rows", len(out)))
	return table.New(name, cols, out), 0, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
