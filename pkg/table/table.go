// Package table provides a small columnar table for coordinate collections.
//
// A [Table] is an ordered list of column names plus rows of string cells.
// It is the in-memory form of CSV, XLSX and flat JSON inputs, and the
// carrier for batch coordinate conversion in the coord and reproject
// packages.
//
// # Ownership
//
// Tables are treated as values. Every transformation ([Table.WithColumn],
// [Table.WithFloatColumn], [Table.Filter], [Table.Select]) returns a new
// Table and leaves the receiver untouched, so callers never observe
// in-place mutation of data they own.
//
// # Numeric Columns
//
// [Table.Floats] parses a column as float64. Blank cells become NaN so that
// missing coordinates survive a round trip; unparseable cells are reported
// with their 1-based row number.
package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/geokit/pkg/errors"
)

// Table is an immutable-by-convention columnar table of string cells.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates a table from column names and rows.
// Rows shorter than the header are padded with blanks; longer rows are an error.
func New(columns []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if err := errors.ValidateColumnName(c); err != nil {
			return nil, err
		}
		if _, dup := index[c]; dup {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "duplicate column %q", c)
		}
		index[c] = i
	}

	out := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) > len(columns) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "row %d has %d cells, header has %d", i+1, len(r), len(columns))
		}
		row := make([]string, len(columns))
		copy(row, r)
		out[i] = row
	}

	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    out,
	}, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has a column named col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Cell returns the value of column col in row i.
func (t *Table) Cell(i int, col string) (string, error) {
	j, ok := t.index[col]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidColumn, "no column %q", col)
	}
	return t.rows[i][j], nil
}

// Strings returns a copy of the values of column col.
func (t *Table) Strings(col string) ([]string, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidColumn, "no column %q", col)
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Floats parses column col as float64 values. Blank cells map to NaN.
func (t *Table) Floats(col string) ([]float64, error) {
	vals, err := t.Strings(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, s := range vals {
		v, err := ParseFloat(s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "column %q row %d", col, i+1)
		}
		out[i] = v
	}
	return out, nil
}

// WithColumn returns a copy of t with column name set to values.
// An existing column is replaced in place; otherwise the column is appended.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}
	columns := t.Columns()
	j, ok := t.index[name]
	if !ok {
		columns = append(columns, name)
		j = len(columns) - 1
	}

	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		row := make([]string, len(columns))
		copy(row, r)
		row[j] = values[i]
		rows[i] = row
	}
	return New(columns, rows)
}

// WithFloatColumn is WithColumn for numeric values. NaN is written as a blank cell.
func (t *Table) WithFloatColumn(name string, values []float64) (*Table, error) {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = FormatFloat(v)
	}
	return t.WithColumn(name, s)
}

// Filter returns a copy of t holding only the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	var rows [][]string
	for i, r := range t.rows {
		if keep(i) {
			rows = append(rows, append([]string(nil), r...))
		}
	}
	return &Table{columns: t.Columns(), index: t.cloneIndex(), rows: rows}
}

// Select returns a copy of t restricted to the given columns, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	idx := make([]int, len(cols))
	for k, c := range cols {
		j, ok := t.index[c]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "no column %q", c)
		}
		idx[k] = j
	}
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		row := make([]string, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		rows[i] = row
	}
	return New(cols, rows)
}

func (t *Table) cloneIndex() map[string]int {
	m := make(map[string]int, len(t.index))
	for k, v := range t.index {
		m[k] = v
	}
	return m
}

// ParseFloat parses a numeric cell. Surrounding whitespace is ignored, a
// decimal comma is accepted, and blank or "nan" cells yield NaN.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

// FormatFloat renders v with the shortest exact representation. NaN renders blank.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
