package table

import (
	"fmt"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/geokit/pkg/errors"
)

// ReadXLSX reads one sheet of a workbook. The first row is the header.
// An empty sheet name selects the first sheet.
func ReadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "open workbook %s", path)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "read sheet %q", sheet)
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "sheet %q is empty", sheet)
	}

	// GetRows trims trailing empty cells, so rows may be ragged.
	header := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if len(r) > len(header) {
			r = r[:len(header)]
		}
		body = append(body, r)
	}
	return New(header, body)
}

// WriteXLSX writes t to a new workbook at path using a stream writer.
// Cells that parse as numbers are written as numbers.
func WriteXLSX(t *Table, path, sheet string) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	header := make([]interface{}, len(t.columns))
	for i, c := range t.columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = cellValue(v)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}
	return f.SaveAs(path)
}

// cellValue keeps identifiers with leading zeros ("007") as text.
func cellValue(s string) interface{} {
	if s == "" {
		return nil
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return s
}
