package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/matzehuels/geokit/pkg/cache"
	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/hydro"
	"github.com/matzehuels/geokit/pkg/observability"
	"github.com/matzehuels/geokit/pkg/table"
)

// inputs holds the raw bytes of the files a chart reads. The bytes feed
// both the content hash used for cache keys and the decoders.
type inputs struct {
	main   []byte
	params []byte
}

func readInputs(opts Options) (inputs, error) {
	var in inputs
	path := opts.Input
	if opts.IsEnsemble() {
		path = opts.Discharge
	}
	data, err := readFile(path)
	if err != nil {
		return in, err
	}
	in.main = data
	if opts.IsEnsemble() && opts.Params != "" {
		if in.params, err = readFile(opts.Params); err != nil {
			return in, err
		}
	}
	return in, nil
}

// hash identifies the input contents independent of file names.
func (in inputs) hash() string {
	h, _ := cache.HashJSON([]string{cache.Hash(in.main), cache.Hash(in.params)})
	return h
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	return data, nil
}

// LoadEnsemble reads the discharge ensemble named by opts.
func LoadEnsemble(ctx context.Context, opts Options) (*hydro.Ensemble, error) {
	in, err := readInputs(opts)
	if err != nil {
		return nil, err
	}
	return loadEnsemble(ctx, in, opts)
}

func loadEnsemble(ctx context.Context, in inputs, opts Options) (*hydro.Ensemble, error) {
	lo, err := opts.loadOptions()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load options")
	}
	var params io.Reader
	if in.params != nil {
		params = bytes.NewReader(in.params)
	}

	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, "ensemble", opts.Discharge)
	e, err := hydro.ReadEnsemble(bytes.NewReader(in.main), params, lo)
	n := 0
	if e != nil {
		n = e.Len()
	}
	observability.Pipeline().OnLoadComplete(ctx, "ensemble", opts.Discharge, n, time.Since(start), err)
	return e, err
}

// loadTable decodes the input table. Workbooks are reopened by path since
// the xlsx reader works on files.
func loadTable(ctx context.Context, in inputs, opts Options) (*table.Table, error) {
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, "table", opts.Input)

	var (
		t   *table.Table
		err error
	)
	trimmed := bytes.TrimSpace(in.main)
	switch {
	case bytes.HasPrefix(in.main, []byte("PK")):
		t, err = table.ReadFile(opts.Input)
	case len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{'):
		t, err = table.ReadJSON(bytes.NewReader(in.main))
	default:
		t, err = table.ReadCSV(bytes.NewReader(in.main))
	}
	n := 0
	if t != nil {
		n = t.Len()
	}
	observability.Pipeline().OnLoadComplete(ctx, "table", opts.Input, n, time.Since(start), err)
	return t, err
}
