// Package seq provides reshaping helpers for in-memory numeric sequences.
//
// The helpers are pure: inputs are never modified and every result is a
// freshly allocated value owned by the caller.
//
//	sorted, idx, err := seq.SortRows(rows, 1, seq.Descending)
//	m := seq.PadArray([][]float64{{1, 2, 3}, {4}}, math.NaN())
package seq

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/geokit/pkg/errors"
)

// Direction selects the order used by [SortRows].
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// String returns "ascend" or "descend".
func (d Direction) String() string {
	if d == Descending {
		return "descend"
	}
	return "ascend"
}

// ParseDirection accepts "ascend"/"asc" and "descend"/"desc".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "ascend", "asc":
		return Ascending, nil
	case "descend", "desc", "":
		return Descending, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown sort direction %q", s)
}

// SortRows sorts rows by the values in column col and returns the sorted copy
// together with the permutation applied (sorted[k] = rows[idx[k]]).
//
// Descending order is exactly the ascending order reversed. Every row must
// have more than col entries and the sort column must not contain NaN.
func SortRows(rows [][]float64, col int, dir Direction) ([][]float64, []int, error) {
	if col < 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "column %d is negative", col)
	}
	keys := make([]float64, len(rows))
	for i, r := range rows {
		if col >= len(r) {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "row %d has %d columns, need %d", i, len(r), col+1)
		}
		if math.IsNaN(r[col]) {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "row %d has NaN in sort column", i)
		}
		keys[i] = r[col]
	}

	idx := make([]int, len(rows))
	floats.Argsort(keys, idx)
	if dir == Descending {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}

	out := make([][]float64, len(rows))
	for k, i := range idx {
		out[k] = append([]float64(nil), rows[i]...)
	}
	return out, idx, nil
}

// FlattenList normalises a mixed list so every element is a list:
// slices are kept as they are and scalars are wrapped in a one-element list.
func FlattenList(items []any) [][]any {
	out := make([][]any, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case []any:
			out = append(out, append([]any(nil), v...))
		case []float64:
			out = append(out, toAny(v))
		case []int:
			out = append(out, toAny(v))
		case []string:
			out = append(out, toAny(v))
		default:
			out = append(out, []any{it})
		}
	}
	return out
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// Flatten concatenates nested slices into one.
func Flatten[T any](nested [][]T) []T {
	n := 0
	for _, s := range nested {
		n += len(s)
	}
	out := make([]T, 0, n)
	for _, s := range nested {
		out = append(out, s...)
	}
	return out
}

// IsMember returns, for each element of a, how many elements of b equal it.
// A zero count means the element is not a member.
func IsMember[T comparable](a, b []T) []int {
	counts := make(map[T]int, len(b))
	for _, v := range b {
		counts[v]++
	}
	out := make([]int, len(a))
	for i, v := range a {
		out[i] = counts[v]
	}
	return out
}

// PadArray stacks ragged lists into a dense matrix, one list per row.
// Rows shorter than the longest list are filled with pad.
// It returns nil when every list is empty.
func PadArray(lists [][]float64, pad float64) *mat.Dense {
	cols := 0
	for _, l := range lists {
		cols = max(cols, len(l))
	}
	if len(lists) == 0 || cols == 0 {
		return nil
	}
	data := make([]float64, len(lists)*cols)
	for i, l := range lists {
		row := data[i*cols : (i+1)*cols]
		n := copy(row, l)
		for j := n; j < cols; j++ {
			row[j] = pad
		}
	}
	return mat.NewDense(len(lists), cols, data)
}

// WriteLines writes each item on its own line using its default format.
func WriteLines[T any](w io.Writer, items []T) error {
	bw := bufio.NewWriter(w)
	for _, it := range items {
		if _, err := fmt.Fprintln(bw, it); err != nil {
			return err
		}
	}
	return bw.Flush()
}
