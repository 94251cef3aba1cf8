package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/geokit/pkg/errors"
)

// ReadCSV decodes a CSV stream whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode csv")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "csv has no header")
	}
	return New(records[0], records[1:])
}

// ReadCSVFile reads a CSV file at path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV encodes t as CSV with a header row.
func WriteCSV(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteCSVFile writes t to a CSV file at path.
func WriteCSVFile(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(t, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
