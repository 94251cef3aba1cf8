package geoframe

import (
	"bytes"
	"encoding/json"

	"github.com/matzehuels/geokit/pkg/errors"
)

// DropZ strips every ordinate after the second from the positions of a
// GeoJSON document and reports whether any were present. Geometries,
// Features and FeatureCollections are accepted. A six-value bbox is reduced
// to its four planar values.
func DropZ(data []byte) ([]byte, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeParse, err, "decode geojson")
	}

	hadZ := stripZ(doc)
	if !hadZ {
		return data, false, nil
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "encode geojson")
	}
	return out, true, nil
}

// stripZ walks a decoded GeoJSON value in place.
func stripZ(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		if list, ok := v.([]any); ok {
			found := false
			for _, item := range list {
				found = stripZ(item) || found
			}
			return found
		}
		return false
	}

	found := false
	for k, val := range obj {
		switch k {
		case "coordinates":
			var z bool
			obj[k], z = stripPositions(val)
			found = found || z
		case "bbox":
			if box, ok := val.([]any); ok && len(box) == 6 {
				obj[k] = []any{box[0], box[1], box[3], box[4]}
				found = true
			}
		case "geometry", "geometries", "features":
			found = stripZ(val) || found
		}
	}
	return found
}

// stripPositions truncates positions at any nesting depth. A position is
// an array whose first element is a number.
func stripPositions(v any) (any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return v, false
	}
	if _, isNum := list[0].(json.Number); isNum {
		if len(list) > 2 {
			return list[:2], true
		}
		return list, false
	}
	found := false
	for i, item := range list {
		var z bool
		list[i], z = stripPositions(item)
		found = found || z
	}
	return list, found
}
