package table

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/geokit/pkg/errors"
)

func mustTable(t *testing.T, cols []string, rows [][]string) *Table {
	t.Helper()
	tbl, err := New(cols, rows)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cols     []string
		rows     [][]string
		wantCode errors.Code
	}{
		{"valid", []string{"lat", "lon"}, [][]string{{"1", "2"}}, ""},
		{"short row padded", []string{"lat", "lon"}, [][]string{{"1"}}, ""},
		{"long row", []string{"lat"}, [][]string{{"1", "2"}}, errors.ErrCodeInvalidInput},
		{"duplicate column", []string{"lat", "lat"}, nil, errors.ErrCodeInvalidColumn},
		{"empty column", []string{"lat", ""}, nil, errors.ErrCodeInvalidColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cols, tt.rows)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("got %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestFloats(t *testing.T) {
	tbl := mustTable(t, []string{"v"}, [][]string{{"1.5"}, {""}, {" 2 "}, {"3,25"}, {"NaN"}})
	got, err := tbl.Floats("v")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	want := []float64{1.5, math.NaN(), 2, 3.25, math.NaN()}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("row %d: got %v, want NaN", i, got[i])
			}
			continue
		}
		if got[i] != want[i] {
			t.Errorf("row %d: got %v, want %v", i, got[i], want[i])
		}
	}

	bad := mustTable(t, []string{"v"}, [][]string{{"1"}, {"abc"}})
	_, err = bad.Floats("v")
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Fatalf("got %v, want PARSE_ERROR", err)
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Errorf("error %q does not name the row", err)
	}

	if _, err := tbl.Floats("missing"); !errors.Is(err, errors.ErrCodeInvalidColumn) {
		t.Errorf("missing column: got %v", err)
	}
}

func TestWithColumnDoesNotMutate(t *testing.T) {
	tbl := mustTable(t, []string{"lat"}, [][]string{{"1"}, {"2"}})

	added, err := tbl.WithFloatColumn("x", []float64{10, math.NaN()})
	if err != nil {
		t.Fatalf("WithFloatColumn: %v", err)
	}
	if got := strings.Join(added.Columns(), ","); got != "lat,x" {
		t.Errorf("columns = %s", got)
	}
	if cell, _ := added.Cell(1, "x"); cell != "" {
		t.Errorf("NaN cell = %q, want blank", cell)
	}
	if tbl.Has("x") {
		t.Error("original table gained column x")
	}

	replaced, err := added.WithColumn("lat", []string{"a", "b"})
	if err != nil {
		t.Fatalf("WithColumn: %v", err)
	}
	if cell, _ := replaced.Cell(0, "lat"); cell != "a" {
		t.Errorf("replaced cell = %q", cell)
	}
	if cell, _ := added.Cell(0, "lat"); cell != "1" {
		t.Errorf("source cell changed to %q", cell)
	}

	if _, err := tbl.WithColumn("y", []string{"1"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("length mismatch: got %v", err)
	}
}

func TestFilterSelect(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b", "c"}, [][]string{{"1", "2", "3"}, {"4", "5", "6"}})

	f := tbl.Filter(func(i int) bool { return i == 1 })
	if f.Len() != 1 {
		t.Fatalf("Len = %d", f.Len())
	}
	if got := strings.Join(f.Row(0), ","); got != "4,5,6" {
		t.Errorf("row = %s", got)
	}

	s, err := tbl.Select("c", "a")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := strings.Join(s.Row(0), ","); got != "3,1" {
		t.Errorf("row = %s", got)
	}
	if _, err := tbl.Select("z"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := "name,lat,lon\nParis,48.8566,2.3522\n\"Den Haag, NL\",52.07,4.30\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d", tbl.Len())
	}

	var buf bytes.Buffer
	if err := WriteCSV(tbl, &buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != in {
		t.Errorf("round trip mismatch:\n%s", buf.String())
	}

	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty: got %v", err)
	}
	if _, err := ReadCSVFile(filepath.Join(t.TempDir(), "nope.csv")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: got %v", err)
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantCode errors.Code
	}{
		{
			name:  "records keep key order",
			input: `[{"name":"A","lat":1.5,"lon":2},{"lon":4,"name":"B"}]`,
			want:  "name,lat,lon\nA,1.5,2\nB,,4\n",
		},
		{
			name:  "columns",
			input: `{"z":[1,2],"a":["x",null]}`,
			want:  "z,a\n1,x\n2,\n",
		},
		{
			name:  "nested values re-encoded",
			input: `[{"id":1,"tags":{"b":1,"a":[true,false]}}]`,
			want:  "id,tags\n1,\"{\"\"b\"\":1,\"\"a\"\":[true,false]}\"\n",
		},
		{
			name:     "extra key",
			input:    `[{"a":1},{"a":2,"b":3}]`,
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "unequal columns",
			input:    `{"a":[1,2],"b":[1]}`,
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "scalar",
			input:    `42`,
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "malformed",
			input:    `[{"a":1`,
			wantCode: errors.ErrCodeParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := JSONToCSV(strings.NewReader(tt.input), &buf)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("got %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("JSONToCSV: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	tbl := mustTable(t, []string{"id", "lat", "note"}, [][]string{
		{"007", "48.5", "first"},
		{"8", "-12.25", ""},
	})
	path := filepath.Join(t.TempDir(), "points.xlsx")
	if err := WriteXLSX(tbl, path, "points"); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}

	got, err := ReadXLSX(path, "")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len = %d", got.Len())
	}
	if cell, _ := got.Cell(0, "id"); cell != "007" {
		t.Errorf("id = %q, want 007", cell)
	}
	lat, err := got.Floats("lat")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if lat[1] != -12.25 {
		t.Errorf("lat[1] = %v", lat[1])
	}
}

func ExampleJSONToCSV() {
	in := `[{"station":"S1","lat":52.1},{"station":"S2","lat":51.9}]`
	_ = JSONToCSV(strings.NewReader(in), os.Stdout)
	// Output:
	// station,lat
	// S1,52.1
	// S2,51.9
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "pts.csv")
	jsonPath := filepath.Join(dir, "pts.json")
	if err := os.WriteFile(csvPath, []byte("lat,lon\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, []byte(`[{"lat": 1, "lon": 2}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{csvPath, jsonPath} {
		tbl, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", path, err)
		}
		if got, _ := tbl.Cell(0, "lon"); got != "2" {
			t.Errorf("ReadFile(%s) lon = %q", path, got)
		}
	}

	for _, missing := range []string{"a.csv", "a.json", "a.xlsx"} {
		if _, err := ReadFile(filepath.Join(dir, missing)); !errors.Is(err, errors.ErrCodeFileNotFound) {
			t.Errorf("ReadFile(%s) error = %v", missing, err)
		}
	}
}
