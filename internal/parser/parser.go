// Package parser turns an input file into a table. Implementations live in
// the csv and xlsx subpackages and share header normalization from here.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"roas/internal/table"
)

// Parser reads one table from r. The int result counts short rows that were
// padded with nil cells. A row that cannot be read, or has values past the
// last header, fails the parse with a *RowError.
type Parser interface {
	Parse(name string, r io.Reader) (table.Table, int, error)
}

// RowError reports a data row that cannot be placed under the header.
type RowError struct {
	Table  string
	Line   int
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	msg := fmt.Sprintf("%s line %d: %s", e.Table, e.Line, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RowError) Unwrap() error { return e.Err }

// Formats understood by Detect.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const utf8BOM = "\uFEFF"

// zipMagic starts every .xlsx workbook.
var zipMagic = []byte("PK\x03\x04")

// Detect picks a format from the file extension, falling back to the first
// bytes of the content when the extension says nothing.
func Detect(path string, head []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// NormalizeHeaders produces canonical column keys: BOM stripped from the
// first cell, NFKC, trimmed, then either mapped through headerMap or
// lower-cased with spaces turned into underscores.
func NormalizeHeaders(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := norm.NFKC.String(strings.TrimSpace(col))
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		if m, ok := headerMap[c]; ok {
			res[i] = m
			continue
		}
		// Keys loaded through viper arrive lower-cased.
		if m, ok := headerMap[strings.ToLower(c)]; ok {
			res[i] = m
			continue
		}
		res[i] = strings.Join(strings.Fields(strings.ToLower(c)), "_")
	}
	return res
}

// KeyFor returns the column key for index idx, synthesizing "col_N" for
// blank headers.
func KeyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

// EmptyToNil converts a blank cell to nil.
func EmptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
