package geoframe

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/paulmach/orb"

	"github.com/matzehuels/geokit/pkg/errors"
)

// ShapefileExtensions lists the sibling files removed by [RemoveShapefile].
var ShapefileExtensions = []string{".cpg", ".dbf", ".prj", ".shp", ".shx"}

// RemoveShapefile deletes a shapefile and its sidecar files. Nothing happens
// unless path itself exists. Missing siblings are skipped. The removed paths
// are returned in extension order.
func RemoveShapefile(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	var removed []string
	for _, ext := range ShapefileExtensions {
		p := filepath.Clean(base + ext)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

// ReadShapefile decodes the shapes of a shapefile set and the named
// attribute fields. Attribute values are kept as strings. Feature IDs are
// 0-based record numbers.
func ReadShapefile(path string, fields ...string) (*Frame, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "open shapefile %s", path)
	}
	defer dec.Close()

	out := &Frame{}
	for i := 0; ; i++ {
		g, attrs, more := dec.DecodeRowFields(fields...)
		if !more || dec.Error() != nil {
			break
		}
		og, err := FromGeom(g)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "record %d", i)
		}
		props := make(map[string]any, len(attrs))
		for k, v := range attrs {
			props[k] = strings.TrimSpace(v)
		}
		out.Features = append(out.Features, Feature{
			ID:         strconv.Itoa(i),
			Geometry:   og,
			Properties: props,
		})
	}
	if err := dec.Error(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode shapefile %s", path)
	}
	return out, nil
}

// FromGeom converts a github.com/ctessum/geom geometry to its orb equivalent.
func FromGeom(g geom.Geom) (orb.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case geom.Point:
		return orb.Point{g.X, g.Y}, nil
	case geom.MultiPoint:
		out := make(orb.MultiPoint, len(g))
		for i, p := range g {
			out[i] = orb.Point{p.X, p.Y}
		}
		return out, nil
	case geom.LineString:
		return lineString(g), nil
	case geom.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = lineString(ls)
		}
		return out, nil
	case geom.Polygon:
		return polygon(g), nil
	case geom.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = polygon(p)
		}
		return out, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "geometry type %T", g)
	}
}

func lineString(ls geom.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = orb.Point{p.X, p.Y}
	}
	return out
}

// polygon converts ring by ring. Shapefiles store exteriors clockwise, so
// callers that need RFC 7946 orientation should run MakeValid afterwards.
func polygon(p geom.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			r[j] = orb.Point{pt.X, pt.Y}
		}
		out[i] = r
	}
	return out
}
