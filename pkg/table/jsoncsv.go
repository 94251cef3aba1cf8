package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/geokit/pkg/errors"
)

// object is a decoded JSON object that remembers key order.
type object struct {
	keys []string
	vals map[string]any
}

// ReadJSON decodes a flat JSON table. Two shapes are accepted:
//
//	[{"name": "A", "lat": 48.8}, {"name": "B", "lat": 50.5}]   // list of records
//	{"name": ["A", "B"], "lat": [48.8, 50.5]}                 // object of columns
//
// For a list of records the header is the first record's keys in document
// order; a later record carrying a key outside that header is an error and a
// missing key becomes a blank cell. For an object of columns the header is the
// object's keys in document order and all columns must have equal length.
func ReadJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := readValue(dec)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode json")
	}

	switch data := v.(type) {
	case []any:
		return fromRecords(data)
	case *object:
		return fromColumns(data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "json table must be a list of objects or an object of lists")
	}
}

// JSONToCSV converts a JSON table read from r into CSV written to w.
// See [ReadJSON] for the accepted shapes.
func JSONToCSV(r io.Reader, w io.Writer) error {
	t, err := ReadJSON(r)
	if err != nil {
		return err
	}
	return WriteCSV(t, w)
}

func fromRecords(list []any) (*Table, error) {
	if len(list) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "json list is empty")
	}
	first, ok := list[0].(*object)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "record 1 is not an object")
	}
	header := first.keys
	pos := make(map[string]int, len(header))
	for i, k := range header {
		pos[k] = i
	}

	rows := make([][]string, len(list))
	for i, item := range list {
		rec, ok := item.(*object)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "record %d is not an object", i+1)
		}
		row := make([]string, len(header))
		for _, k := range rec.keys {
			j, ok := pos[k]
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidInput, "record %d has field %q not in header", i+1, k)
			}
			cell, err := cellString(rec.vals[k])
			if err != nil {
				return nil, err
			}
			row[j] = cell
		}
		rows[i] = row
	}
	return New(header, rows)
}

func fromColumns(obj *object) (*Table, error) {
	if len(obj.keys) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "json object is empty")
	}
	cols := make([][]any, len(obj.keys))
	n := -1
	for j, k := range obj.keys {
		list, ok := obj.vals[k].([]any)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "column %q is not a list", k)
		}
		if n >= 0 && len(list) != n {
			return nil, errors.New(errors.ErrCodeInvalidInput, "column %q has %d values, want %d", k, len(list), n)
		}
		n = len(list)
		cols[j] = list
	}

	rows := make([][]string, n)
	for i := range rows {
		row := make([]string, len(cols))
		for j, col := range cols {
			cell, err := cellString(col[i])
			if err != nil {
				return nil, err
			}
			row[j] = cell
		}
		rows[i] = row
	}
	return New(obj.keys, rows)
}

// readValue decodes the next JSON value, keeping object key order.
func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{vals: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", kt)
			}
			v, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.vals[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.vals[key] = v
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// cellString renders a decoded JSON value as a CSV cell.
// Nested objects and lists are re-encoded as compact JSON.
func cellString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	default:
		var buf bytes.Buffer
		if err := writeJSON(&buf, v); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}

func writeJSON(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case *object:
		buf.WriteByte('{')
		for i, k := range x.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeJSON(buf, x.vals[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
