package sheet

import (
	"encoding/csv"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/cellgraph/sheet/formula"
)

// ImportDelimited reads delimited text (CSV with comma, TSV with tab) and
// assigns each field as raw cell source, one line per row, starting at the
// anchor address. the whole sheet is updated once at the end.
func (s *Sheet) ImportDelimited(r io.Reader, comma rune, anchor string) ([]Update, error) {
	anchorRow, anchorCol, err := IndexID(anchor)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, NewParseError("", "malformed delimited input: "+err.Error())
	}

	for i, record := range records {
		for j, field := range record {
			id := Identify(anchorRow+i, anchorCol+j)
			c, err := s.cell(id)
			if err != nil {
				return nil, err
			}
			c.Source = field
		}
	}
	return s.UpdateAll()
}

// ExportDelimited writes every cell's raw source as delimited text, one row
// per line over the sheet's bounding rectangle
func (s *Sheet) ExportDelimited(w io.Writer, comma rune) error {
	maxRow, maxCol := -1, -1
	for _, id := range s.ids {
		c := s.cells[id]
		if c.Source == "" {
			continue
		}
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}
	if maxRow < 0 {
		return nil
	}

	writer := csv.NewWriter(w)
	writer.Comma = comma
	for row := 0; row <= maxRow; row++ {
		record := make([]string, maxCol+1)
		for col := 0; col <= maxCol; col++ {
			if c, exists := s.cells[Identify(row, col)]; exists {
				record[col] = c.Source
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ImportXLSX reads the first worksheet of an xlsx workbook. formula cells
// become dynamic expressions with their formula translated from spreadsheet
// syntax into the sheet's target language; value-only cells carry the
// literal value text, with shared-string indirection already resolved by
// the reader. the whole sheet is updated once at the end.
func (s *Sheet) ImportXLSX(path string) ([]Update, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return s.UpdateAll()
	}
	worksheet := sheets[0]

	rows, err := f.GetRows(worksheet)
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		for j, value := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}

			source := value
			fstr, err := f.GetCellFormula(worksheet, axis)
			if err != nil {
				return nil, err
			}
			if fstr != "" {
				translated, err := formula.Translate(fstr, s.language)
				if err != nil {
					return nil, err
				}
				source = "= " + translated
			}
			if source == "" {
				continue
			}

			c, err := s.cell(Identify(i, j))
			if err != nil {
				return nil, err
			}
			c.Source = source
		}
	}
	return s.UpdateAll()
}

// ExportXLSX writes the sheet to an xlsx workbook: dynamic and named
// expression cells as formulas (their untranslated expression text),
// everything else as literal values
func (s *Sheet) ExportXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	worksheet := f.GetSheetName(0)

	for _, id := range s.ids {
		c := s.cells[id]
		if c.Source == "" {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(c.Col+1, c.Row+1)
		if err != nil {
			return err
		}
		switch c.Kind {
		case KindDynamicExpression, KindNamedExpression:
			if err := f.SetCellFormula(worksheet, axis, c.Expression); err != nil {
				return err
			}
		default:
			if err := f.SetCellValue(worksheet, axis, c.Source); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
