package hydro

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/geokit/pkg/errors"
)

const discharge = `datetime,q_obs,q_ats_3,q_ats_7
2014-08-30,1,9,9
2014-08-31,2,3,5
2015-01-01 12:00:00,4,4,6
2016-08-31,,7,9
2016-09-01,8,8,8
`

const params = `id,s3,s6,g1,g5,g7,extra
7,0.7,1.7,2.7,3.7,4.7,x
3,0.3,1.3,2.3,3.3,4.3,y
`

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestReadEnsemble(t *testing.T) {
	e, err := ReadEnsemble(strings.NewReader(discharge), strings.NewReader(params), DefaultLoadOptions())
	if err != nil {
		t.Fatal(err)
	}
	if e.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (start inclusive, end exclusive)", e.Len())
	}
	if !e.Times[1].Equal(time.Date(2015, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Times[1] = %v", e.Times[1])
	}
	if e.Observed[0] != 2 || !math.IsNaN(e.Observed[2]) {
		t.Errorf("Observed = %v", e.Observed)
	}
	if !reflect.DeepEqual(e.Members, []string{"3", "7"}) {
		t.Errorf("Members = %v", e.Members)
	}
	if !reflect.DeepEqual(e.Flows[1], []float64{5, 6, 9}) {
		t.Errorf("Flows[1] = %v", e.Flows[1])
	}
	if e.Column(0, DefaultPrefix) != "q_ats_3" {
		t.Errorf("Column(0) = %q", e.Column(0, DefaultPrefix))
	}
	if !reflect.DeepEqual(e.Params, [][]float64{{0.3, 1.3, 2.3, 3.3, 4.3}, {0.7, 1.7, 2.7, 3.7, 4.7}}) {
		t.Errorf("Params = %v", e.Params)
	}

	g5, err := e.Param("g5")
	if err != nil || !reflect.DeepEqual(g5, []float64{3.3, 3.7}) {
		t.Errorf("Param(g5) = %v, %v", g5, err)
	}
	if _, err := e.Param("extra"); !errors.Is(err, errors.ErrCodeInvalidColumn) {
		t.Errorf("Param(extra) error = %v", err)
	}

	m := e.ParamMatrix()
	if r, c := m.Dims(); r != 2 || c != 5 {
		t.Fatalf("ParamMatrix dims = %d×%d", r, c)
	}
	if m.At(1, 4) != 4.7 {
		t.Errorf("ParamMatrix(1,4) = %v", m.At(1, 4))
	}
}

func TestReadEnsembleWithoutParams(t *testing.T) {
	e, err := ReadEnsemble(strings.NewReader(discharge), nil, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if e.Len() != 5 {
		t.Errorf("Len() = %d, want all 5 rows without bounds", e.Len())
	}
	if e.ParamMatrix() != nil {
		t.Error("ParamMatrix() should be nil without parameters")
	}
}

func TestReadEnsembleErrors(t *testing.T) {
	tests := []struct {
		name      string
		discharge string
		params    string
		code      errors.Code
	}{
		{"no datetime", "time,q_obs,q_ats_1\nx,1,1\n", "", errors.ErrCodeInvalidColumn},
		{"no members", "datetime,q_obs\n2015-01-01,1\n", "", errors.ErrCodeInvalidInput},
		{"bad time", "datetime,q_obs,q_ats_1\nyesterday,1,1\n", "", errors.ErrCodeParse},
		{"missing member", discharge, "id,s3,s6,g1,g5,g7\n3,1,1,1,1,1\n", errors.ErrCodeNotFound},
		{"missing field", discharge, "id,s3\n3,1\n7,1\n", errors.ErrCodeInvalidColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *strings.Reader
			if tt.params != "" {
				p = strings.NewReader(tt.params)
			}
			var err error
			if p == nil {
				_, err = ReadEnsemble(strings.NewReader(tt.discharge), nil, DefaultLoadOptions())
			} else {
				_, err = ReadEnsemble(strings.NewReader(tt.discharge), p, DefaultLoadOptions())
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadEnsemble(t *testing.T) {
	dir := t.TempDir()
	q := filepath.Join(dir, "q.csv")
	p := filepath.Join(dir, "p.csv")
	if err := os.WriteFile(q, []byte(discharge), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(params), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := LoadEnsemble(q, p, DefaultLoadOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(e.Params) != 2 {
		t.Errorf("Params = %v", e.Params)
	}

	if _, err := LoadEnsemble(filepath.Join(dir, "nope.csv"), "", DefaultLoadOptions()); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestFlowDuration(t *testing.T) {
	exceed, flows := FlowDuration([]float64{2, math.NaN(), 5, 1})
	if !reflect.DeepEqual(flows, []float64{5, 2, 1}) {
		t.Errorf("flows = %v", flows)
	}
	want := []float64{25, 50, 75}
	for i := range want {
		if !near(exceed[i], want[i], 1e-12) {
			t.Errorf("exceed[%d] = %v, want %v", i, exceed[i], want[i])
		}
	}

	exceed, flows = FlowDuration(nil)
	if len(exceed) != 0 || len(flows) != 0 {
		t.Errorf("FlowDuration(nil) = %v, %v", exceed, flows)
	}
}

func TestEnsembleFDC(t *testing.T) {
	exceed, flows, err := EnsembleFDC([][]float64{{1, 3}, {4, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if len(exceed) != 2 || !reflect.DeepEqual(flows, [][]float64{{3, 1}, {4, 2}}) {
		t.Errorf("EnsembleFDC = %v, %v", exceed, flows)
	}
	if _, _, err := EnsembleFDC([][]float64{{1, 2}, {1}}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ragged error = %v", err)
	}

	nan := math.NaN()
	exceed, flows, err = EnsembleFDC([][]float64{{5, nan, 1, 3}, {2, 8, 6, math.Inf(1)}})
	if err != nil {
		t.Fatalf("gap in one member: %v", err)
	}
	if !reflect.DeepEqual(flows, [][]float64{{5, 1}, {6, 2}}) {
		t.Errorf("flows = %v, want steps 1 and 3 dropped from both members", flows)
	}
	if len(exceed) != 2 || !near(exceed[0], 100.0/3, 1e-9) {
		t.Errorf("exceed = %v", exceed)
	}
}

func TestEnsembleStats(t *testing.T) {
	mean, lower, upper, err := EnsembleStats([][]float64{{1, 10}, {3, 10}})
	if err != nil {
		t.Fatal(err)
	}
	// sample σ of {1, 3} is √2
	s := math.Sqrt2
	if mean[0] != 2 || !near(lower[0], 2-2*s, 1e-12) || !near(upper[0], 2+2*s, 1e-12) {
		t.Errorf("step 0 = %v %v %v", mean[0], lower[0], upper[0])
	}
	if mean[1] != 10 || lower[1] != 10 || upper[1] != 10 {
		t.Errorf("step 1 = %v %v %v", mean[1], lower[1], upper[1])
	}

	mean, lower, upper, err = EnsembleStats([][]float64{{4}})
	if err != nil || mean[0] != 4 || lower[0] != 4 || upper[0] != 4 {
		t.Errorf("single member = %v %v %v, %v", mean, lower, upper, err)
	}

	if _, _, _, err := EnsembleStats(nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty error = %v", err)
	}
	if _, _, _, err := EnsembleStats([][]float64{{1, 2}, {1}}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ragged error = %v", err)
	}
}

func TestFit(t *testing.T) {
	obs := []float64{1, 2, 3, 4, math.NaN()}

	s, err := Fit(obs, []float64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.N != 4 {
		t.Errorf("N = %d, want 4", s.N)
	}
	for name, got := range map[string]float64{
		"slope": s.Slope - 1, "intercept": s.Intercept, "r2": s.R2 - 1,
		"rmse": s.RMSE, "mbe": s.MBE, "bias": s.Bias, "nse": s.NSE - 1, "kge": s.KGE - 1,
	} {
		if !near(got, 0, 1e-9) {
			t.Errorf("perfect fit %s off by %v", name, got)
		}
	}

	s, err = Fit(obs, []float64{2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if !near(s.Slope, 1, 1e-9) || !near(s.Intercept, 1, 1e-9) || !near(s.RMSE, 1, 1e-12) || !near(s.MBE, 1, 1e-12) {
		t.Errorf("offset fit = %+v", s)
	}

	over, err := Fit(obs, []float64{2, 3, 4, 5, 0})
	if err != nil {
		t.Fatal(err)
	}
	under, err := Fit(obs, []float64{0, 1, 2, 3, 0})
	if err != nil {
		t.Fatal(err)
	}
	if over.MBE <= 0 || under.MBE >= 0 {
		t.Errorf("mbe sign: over=%v under=%v, want sim-obs", over.MBE, under.MBE)
	}

	if _, err := Fit([]float64{1}, []float64{1, 2}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("length mismatch error = %v", err)
	}
	if _, err := Fit([]float64{1, math.NaN()}, []float64{1, 2}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("too few pairs error = %v", err)
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2015-03-04", "2015-03-04 00:00:00", "2015-03-04T00:00:00Z", " 2015-03-04T00:00:00 "} {
		ts, err := ParseTime(s)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", s, err)
			continue
		}
		if !ts.Equal(time.Date(2015, 3, 4, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("ParseTime(%q) = %v", s, ts)
		}
	}
}
