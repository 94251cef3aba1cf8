package seq

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"testing"
)

func TestSortRows(t *testing.T) {
	rows := [][]float64{
		{1, 30},
		{2, 10},
		{3, 20},
	}

	asc, idx, err := SortRows(rows, 1, Ascending)
	if err != nil {
		t.Fatalf("SortRows: %v", err)
	}
	if want := []int{1, 2, 0}; !reflect.DeepEqual(idx, want) {
		t.Errorf("ascending idx = %v, want %v", idx, want)
	}
	if asc[0][0] != 2 || asc[2][0] != 1 {
		t.Errorf("ascending rows = %v", asc)
	}

	desc, didx, err := SortRows(rows, 1, Descending)
	if err != nil {
		t.Fatalf("SortRows: %v", err)
	}
	for k := range idx {
		if didx[k] != idx[len(idx)-1-k] {
			t.Fatalf("descending idx %v is not the reverse of %v", didx, idx)
		}
	}
	if desc[0][1] != 30 {
		t.Errorf("descending first row = %v", desc[0])
	}

	if rows[0][1] != 30 {
		t.Error("input was modified")
	}
	desc[0][0] = 99
	if rows[0][0] == 99 {
		t.Error("result shares storage with input")
	}
}

func TestSortRowsErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		col  int
	}{
		{"negative column", [][]float64{{1}}, -1},
		{"short row", [][]float64{{1, 2}, {3}}, 1},
		{"nan key", [][]float64{{1}, {math.NaN()}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := SortRows(tt.rows, tt.col, Ascending); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"asc": Ascending, "ascend": Ascending, "desc": Descending, "": Descending} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error")
	}
}

func TestFlattenList(t *testing.T) {
	got := FlattenList([]any{1, []any{2, 3}, "a", []float64{4.5}})
	want := [][]any{{1}, {2, 3}, {"a"}, {4.5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FlattenList = %v, want %v", got, want)
	}
}

func TestFlatten(t *testing.T) {
	got := Flatten([][]int{{1, 2}, nil, {3}})
	if want := []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten = %v, want %v", got, want)
	}
}

func TestIsMember(t *testing.T) {
	got := IsMember([]string{"a", "b", "z"}, []string{"a", "b", "b"})
	if want := []int{1, 2, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("IsMember = %v, want %v", got, want)
	}
}

func TestPadArray(t *testing.T) {
	m := PadArray([][]float64{{1, 2, 3}, {4}, {}}, math.NaN())
	r, c := m.Dims()
	if r != 3 || c != 3 {
		t.Fatalf("dims = %dx%d, want 3x3", r, c)
	}
	if m.At(1, 0) != 4 {
		t.Errorf("At(1,0) = %v", m.At(1, 0))
	}
	for _, ij := range [][2]int{{1, 1}, {1, 2}, {2, 0}} {
		if v := m.At(ij[0], ij[1]); !math.IsNaN(v) {
			t.Errorf("At%v = %v, want NaN", ij, v)
		}
	}

	if PadArray(nil, 0) != nil {
		t.Error("PadArray(nil) should be nil")
	}
}

func TestWriteLines(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLines(&buf, []float64{1.5, 2}); err != nil {
		t.Fatalf("WriteLines: %v", err)
	}
	if got := buf.String(); got != "1.5\n2\n" {
		t.Errorf("got %q", got)
	}
}

func ExampleIsMember() {
	fmt.Println(IsMember([]int{1, 2, 5}, []int{1, 1, 2}))
	// Output: [2 1 0]
}
