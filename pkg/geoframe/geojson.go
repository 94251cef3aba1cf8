package geoframe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/geokit/pkg/errors"
)

// ReadGeoJSON decodes a FeatureCollection, a single Feature or a bare
// geometry into a Frame. Z ordinates are dropped and recorded in
// [Frame.DroppedZ]. Features without an "id" get their 0-based index.
func ReadGeoJSON(r io.Reader) (*Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	data, hadZ, err := DropZ(data)
	if err != nil {
		return nil, err
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode geojson")
	}

	var features []*geojson.Feature
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "decode feature collection")
		}
		features = fc.Features
	case "Feature":
		ft, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "decode feature")
		}
		features = []*geojson.Feature{ft}
	case "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "geojson object has no type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "decode geometry")
		}
		features = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	}

	out := &Frame{Features: make([]Feature, len(features)), DroppedZ: hadZ}
	for i, gf := range features {
		id := strconv.Itoa(i)
		if gf.ID != nil {
			id = fmt.Sprint(gf.ID)
		}
		out.Features[i] = Feature{
			ID:         id,
			Geometry:   gf.Geometry,
			Properties: map[string]any(gf.Properties),
		}
	}
	return out, nil
}

// ReadGeoJSONFile reads a GeoJSON file.
func ReadGeoJSONFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	return ReadGeoJSON(fh)
}

// FeatureCollection converts f to an orb FeatureCollection carrying every
// property. Geometries are shared with f.
func FeatureCollection(f *Frame) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, ft := range f.Features {
		gf := geojson.NewFeature(ft.Geometry)
		gf.ID = ft.ID
		for k, v := range ft.Properties {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc
}

// WriteGeoJSON encodes f as a FeatureCollection.
func WriteGeoJSON(f *Frame, w io.Writer) error {
	data, err := FeatureCollection(f).MarshalJSON()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode geojson")
	}
	_, err = w.Write(data)
	return err
}

// ToGeoJSON builds a FeatureCollection holding only the named properties.
// Polygon geometries are promoted to MultiPolygon; other geometries are
// emitted unchanged. A feature lacking a requested property is an error.
func ToGeoJSON(f *Frame, props []string) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for i, ft := range f.Features {
		g := ft.Geometry
		if p, ok := g.(orb.Polygon); ok {
			g = orb.MultiPolygon{p}
		}
		gf := geojson.NewFeature(g)
		for _, name := range props {
			v, ok := ft.Properties[name]
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidInput, "feature %d has no property %q", i, name)
			}
			gf.Properties[name] = v
		}
		fc.Append(gf)
	}
	return fc, nil
}
