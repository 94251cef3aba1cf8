package geoframe

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/geokit/pkg/errors"
)

// CoordinateList returns the coordinates of every feature: the position of a
// Point, the vertices of a LineString, or the exterior ring of a Polygon.
// All features must share one of these three types. With flatten set the
// per-feature lists are concatenated into a single list.
func CoordinateList(f *Frame, flatten bool) ([][]orb.Point, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	types := f.GeometryTypes()
	if len(types) != 1 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "mixed geometry types %v", types)
	}

	out := make([][]orb.Point, 0, f.Len())
	for _, ft := range f.Features {
		var pts []orb.Point
		switch g := ft.Geometry.(type) {
		case orb.Point:
			pts = []orb.Point{g}
		case orb.LineString:
			pts = append(pts, g...)
		case orb.Polygon:
			if len(g) > 0 {
				pts = append(pts, g[0]...)
			}
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "coordinate list of %s", types[0])
		}
		out = append(out, pts)
	}

	if flatten {
		var all []orb.Point
		for _, pts := range out {
			all = append(all, pts...)
		}
		return [][]orb.Point{all}, nil
	}
	return out, nil
}

// PointsInPolygon returns, for each polygon, the indexes of the point
// features of f that lie inside it. Polygons may be orb.Polygon or
// orb.MultiPolygon.
func PointsInPolygon(f *Frame, polys []orb.Geometry) ([][]int, error) {
	pts := make([]orb.Point, f.Len())
	for i, ft := range f.Features {
		p, ok := ft.Geometry.(orb.Point)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidGeometry, "feature %d is %s, want Point", i, geometryType(ft.Geometry))
		}
		pts[i] = p
	}

	out := make([][]int, len(polys))
	for j, poly := range polys {
		var contains func(orb.Point) bool
		switch g := poly.(type) {
		case orb.Polygon:
			contains = func(p orb.Point) bool { return planar.PolygonContains(g, p) }
		case orb.MultiPolygon:
			contains = func(p orb.Point) bool { return planar.MultiPolygonContains(g, p) }
		default:
			return nil, errors.New(errors.ErrCodeInvalidGeometry, "polygon %d is %s", j, geometryType(poly))
		}

		bound := poly.Bound()
		hits := []int{}
		for i, p := range pts {
			if bound.Contains(p) && contains(p) {
				hits = append(hits, i)
			}
		}
		out[j] = hits
	}
	return out, nil
}

// Polygons returns the polygonal geometries of f, in order.
// Features of any other type are skipped.
func Polygons(f *Frame) []orb.Geometry {
	var out []orb.Geometry
	for _, ft := range f.Features {
		switch ft.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			out = append(out, ft.Geometry)
		}
	}
	return out
}
