package table

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/geokit/pkg/errors"
)

// ReadFile reads a table, choosing the decoder from the file extension:
// .xlsx workbooks (first sheet), .json documents, and CSV for anything else.
func ReadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return ReadXLSX(path, "")
	case ".json":
		fh, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
			}
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
		}
		defer fh.Close()
		return ReadJSON(fh)
	default:
		return ReadCSVFile(path)
	}
}
