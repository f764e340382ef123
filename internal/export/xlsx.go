package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"roas/internal/domain"
)

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "ROAS"

// WriteXLSX writes the report as a single-sheet workbook with a bold header
// row. Numeric columns are stored as numbers.
func WriteXLSX(w io.Writer, aggs []domain.InfluencerAggregate) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: xlsx sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("export: xlsx header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}

	for i, a := range aggs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := valueRow(a)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export: xlsx row %s: %w", a.InfluencerID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: xlsx write: %w", err)
	}
	return nil
}
