// Package hydro loads discharge ensembles and computes the summary series
// drawn by the chart package.
//
// # Input Layout
//
// A discharge file is a CSV with a "datetime" column, an observed flow
// column "q_obs" and one column per ensemble member named with a common
// prefix followed by the member id, for example "q_ats_17". A parameter
// file is a CSV whose first column holds member ids and whose remaining
// columns hold calibrated parameter values.
//
// # Statistics
//
// [FlowDuration] ranks flows with the Weibull plotting position,
// [EnsembleStats] reduces members to a mean with a ±2σ band, and [Fit]
// scores a simulated series against observations.
package hydro

import (
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/table"
)

const (
	// TimeColumn names the timestamp column of a discharge file.
	TimeColumn = "datetime"
	// ObservedColumn names the observed discharge column.
	ObservedColumn = "q_obs"
	// DefaultPrefix prefixes every ensemble member column.
	DefaultPrefix = "q_ats_"
)

// DefaultFields are the parameters joined to each member by default.
var DefaultFields = []string{"s3", "s6", "g1", "g5", "g7"}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadOptions controls which rows, members and parameters are loaded.
type LoadOptions struct {
	Start  time.Time // inclusive
	End    time.Time // exclusive
	Fields []string  // parameter columns to join
	Prefix string    // member column prefix
}

// DefaultLoadOptions returns the water years 2014-08-31 to 2016-09-01 with
// the default parameter fields.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Start:  time.Date(2014, 8, 31, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC),
		Fields: append([]string(nil), DefaultFields...),
		Prefix: DefaultPrefix,
	}
}

// Ensemble is an observed discharge series with its simulated members.
type Ensemble struct {
	Times    []time.Time
	Observed []float64
	Members  []string    // member ids, prefix stripped
	Flows    [][]float64 // [member][time]
	Fields   []string    // parameter names, nil when no parameters were loaded
	Params   [][]float64 // [member][field]
}

// Len returns the number of time steps.
func (e *Ensemble) Len() int { return len(e.Times) }

// Column returns the discharge column name of member i.
func (e *Ensemble) Column(i int, prefix string) string {
	return prefix + e.Members[i]
}

// ParamMatrix returns the parameters as a members × fields matrix, or nil
// when no parameters were loaded.
func (e *Ensemble) ParamMatrix() *mat.Dense {
	if len(e.Params) == 0 || len(e.Fields) == 0 {
		return nil
	}
	m := mat.NewDense(len(e.Params), len(e.Fields), nil)
	for i, row := range e.Params {
		m.SetRow(i, row)
	}
	return m
}

// Param returns the values of one parameter across members.
func (e *Ensemble) Param(field string) ([]float64, error) {
	for j, f := range e.Fields {
		if f == field {
			out := make([]float64, len(e.Params))
			for i, row := range e.Params {
				out[i] = row[j]
			}
			return out, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidColumn, "no parameter %q", field)
}

// LoadEnsemble reads a discharge CSV and, when paramsCSV is not empty, the
// parameter CSV of its members.
func LoadEnsemble(dischargeCSV, paramsCSV string, opts LoadOptions) (*Ensemble, error) {
	q, err := openFile(dischargeCSV)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	var p io.Reader
	if paramsCSV != "" {
		fh, err := openFile(paramsCSV)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		p = fh
	}
	return ReadEnsemble(q, p, opts)
}

// ReadEnsemble is [LoadEnsemble] over readers. params may be nil.
func ReadEnsemble(discharge, params io.Reader, opts LoadOptions) (*Ensemble, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	t, err := table.ReadCSV(discharge)
	if err != nil {
		return nil, err
	}
	e, err := fromDischarge(t, opts)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return e, nil
	}

	pt, err := table.ReadCSV(params)
	if err != nil {
		return nil, err
	}
	if err := e.joinParams(pt, opts.Fields); err != nil {
		return nil, err
	}
	return e, nil
}

func fromDischarge(t *table.Table, opts LoadOptions) (*Ensemble, error) {
	for _, c := range []string{TimeColumn, ObservedColumn} {
		if !t.Has(c) {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "discharge file has no %q column", c)
		}
	}
	stamps, _ := t.Strings(TimeColumn)
	times := make([]time.Time, len(stamps))
	for i, s := range stamps {
		ts, err := ParseTime(s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "row %d", i+1)
		}
		times[i] = ts
	}

	keep := func(i int) bool {
		ts := times[i]
		if !opts.Start.IsZero() && ts.Before(opts.Start) {
			return false
		}
		if !opts.End.IsZero() && !ts.Before(opts.End) {
			return false
		}
		return true
	}
	var kept []time.Time
	for i := range times {
		if keep(i) {
			kept = append(kept, times[i])
		}
	}
	t = t.Filter(keep)

	e := &Ensemble{Times: kept}
	obs, err := t.Floats(ObservedColumn)
	if err != nil {
		return nil, err
	}
	e.Observed = obs

	for _, c := range t.Columns() {
		if !strings.HasPrefix(c, opts.Prefix) || c == opts.Prefix {
			continue
		}
		flows, err := t.Floats(c)
		if err != nil {
			return nil, err
		}
		e.Members = append(e.Members, strings.TrimPrefix(c, opts.Prefix))
		e.Flows = append(e.Flows, flows)
	}
	if len(e.Members) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no member columns with prefix %q", opts.Prefix)
	}
	return e, nil
}

func (e *Ensemble) joinParams(pt *table.Table, fields []string) error {
	cols := pt.Columns()
	if len(cols) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "parameter file has no columns")
	}
	if len(fields) == 0 {
		fields = cols[1:]
	}
	ids, _ := pt.Strings(cols[0])
	rowOf := make(map[string]int, len(ids))
	for i, id := range ids {
		rowOf[strings.TrimSpace(id)] = i
	}

	values := make([][]float64, len(fields))
	for j, f := range fields {
		v, err := pt.Floats(f)
		if err != nil {
			return err
		}
		values[j] = v
	}

	e.Fields = append([]string(nil), fields...)
	e.Params = make([][]float64, len(e.Members))
	for i, m := range e.Members {
		r, ok := rowOf[m]
		if !ok {
			return errors.New(errors.ErrCodeNotFound, "no parameters for member %q", m)
		}
		row := make([]float64, len(fields))
		for j := range fields {
			row[j] = values[j][r]
		}
		e.Params[i] = row
	}
	return nil
}

// ParseTime parses the timestamp layouts found in discharge files.
// Timestamps without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var first error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		if first == nil {
			first = err
		}
	}
	return time.Time{}, first
}

func openFile(path string) (*os.File, error) {
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	return fh, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
