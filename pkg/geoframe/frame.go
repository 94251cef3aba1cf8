// Package geoframe provides a geo-feature table: an ordered list of features,
// each carrying one geometry and a property map.
//
// A [Frame] is the Go counterpart of a GeoDataFrame. Geometries use the
// github.com/paulmach/orb model and are always two-dimensional; Z ordinates
// are stripped on input (see [DropZ]).
//
// # Construction
//
//   - [FromTable] builds point features from longitude/latitude columns
//   - [FromRecords] builds point features from a keyed record map
//   - [ReadGeoJSON] decodes a FeatureCollection
//   - [ReadShapefile] decodes an ESRI shapefile set
//
// # Ownership
//
// Functions in this package never modify their input frame. Operations that
// change geometries ([MakeValid], [Reproject]) return a deep copy.
package geoframe

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/table"
)

// Feature is one row of a Frame.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties map[string]any
}

// Frame is an ordered collection of features.
type Frame struct {
	Features []Feature

	// DroppedZ is set when Z ordinates were stripped while decoding.
	DroppedZ bool
}

// Len returns the number of features.
func (f *Frame) Len() int { return len(f.Features) }

// Clone returns a deep copy of f. Property values are copied shallowly.
func (f *Frame) Clone() *Frame {
	out := &Frame{Features: make([]Feature, len(f.Features)), DroppedZ: f.DroppedZ}
	for i, ft := range f.Features {
		out.Features[i] = cloneFeature(ft)
	}
	return out
}

func cloneFeature(ft Feature) Feature {
	c := Feature{ID: ft.ID}
	if ft.Geometry != nil {
		c.Geometry = orb.Clone(ft.Geometry)
	}
	if ft.Properties != nil {
		c.Properties = make(map[string]any, len(ft.Properties))
		for k, v := range ft.Properties {
			c.Properties[k] = v
		}
	}
	return c
}

// GeometryTypes returns the distinct GeoJSON geometry types in f, sorted.
// Features without geometry are reported as "Empty".
func (f *Frame) GeometryTypes() []string {
	seen := make(map[string]bool)
	for _, ft := range f.Features {
		seen[geometryType(ft.Geometry)] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "Empty"
	}
	return g.GeoJSONType()
}

// PropertyNames returns the union of property keys across features, sorted.
func (f *Frame) PropertyNames() []string {
	seen := make(map[string]bool)
	for _, ft := range f.Features {
		for k := range ft.Properties {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FromTable builds one point feature per row from lonCol and latCol.
// All other columns become string properties. The feature ID is the 0-based
// row index. Rows with blank or non-numeric coordinates are rejected.
func FromTable(t *table.Table, lonCol, latCol string) (*Frame, error) {
	lons, err := t.Floats(lonCol)
	if err != nil {
		return nil, err
	}
	lats, err := t.Floats(latCol)
	if err != nil {
		return nil, err
	}

	var propCols []string
	for _, c := range t.Columns() {
		if c != lonCol && c != latCol {
			propCols = append(propCols, c)
		}
	}

	out := &Frame{Features: make([]Feature, t.Len())}
	for i := range lons {
		if math.IsNaN(lons[i]) || math.IsNaN(lats[i]) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "row %d has no coordinates", i+1)
		}
		props := make(map[string]any, len(propCols))
		for _, c := range propCols {
			props[c], _ = t.Cell(i, c)
		}
		out.Features[i] = Feature{
			ID:         strconv.Itoa(i),
			Geometry:   orb.Point{lons[i], lats[i]},
			Properties: props,
		}
	}
	return out, nil
}

// FromRecords builds one point feature per key of records, ordered by key.
// Each record must carry numeric "lon" and "lat" entries; the remaining
// entries become properties and the key becomes the feature ID.
func FromRecords(records map[string]map[string]any) (*Frame, error) {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &Frame{Features: make([]Feature, 0, len(keys))}
	for _, k := range keys {
		rec := records[k]
		lon, err := number(rec["lon"])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "record %q: lon", k)
		}
		lat, err := number(rec["lat"])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "record %q: lat", k)
		}
		props := make(map[string]any, len(rec))
		for pk, pv := range rec {
			if pk != "lon" && pk != "lat" {
				props[pk] = pv
			}
		}
		out.Features = append(out.Features, Feature{
			ID:         k,
			Geometry:   orb.Point{lon, lat},
			Properties: props,
		})
	}
	return out, nil
}

// number converts the numeric types a decoded record may hold.
func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case interface{ Float64() (float64, error) }:
		return n.Float64()
	case string:
		f, err := table.ParseFloat(n)
		if err == nil && math.IsNaN(f) {
			return 0, fmt.Errorf("blank")
		}
		return f, err
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
