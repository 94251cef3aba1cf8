// Package reproject converts coordinates between coordinate reference systems
// identified by EPSG code or PROJ.4 definition.
//
// Projection math is delegated to github.com/ctessum/geom/proj, a pure-Go
// port of proj4js. Geometries use the github.com/paulmach/orb model.
//
// # Axis Order
//
// Coordinates are always (x, y). For geographic systems this means
// (longitude, latitude) in degrees, matching GeoJSON.
//
// # Usage
//
//	tr, err := reproject.New("EPSG:2154", "EPSG:4326")
//	if err != nil {
//	    return err
//	}
//	lon, lat, err := tr.Point(652000, 6862000)
//
// A [Transformer] is immutable and safe for concurrent use.
package reproject

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/geokit/pkg/coord"
	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/observability"
	"github.com/matzehuels/geokit/pkg/table"
)

// Transformer converts coordinates from one CRS to another.
type Transformer struct {
	src, dst string
	fn       proj.Transformer
}

// New builds a transformer between two CRS strings accepted by [ParseCRS].
func New(src, dst string) (*Transformer, error) {
	srcDef, err := ParseCRS(src)
	if err != nil {
		return nil, err
	}
	dstDef, err := ParseCRS(dst)
	if err != nil {
		return nil, err
	}
	return NewFromDefinitions(srcDef, dstDef)
}

// NewFromDefinitions builds a transformer from two PROJ.4 definitions.
// Projection methods the backend does not implement are rejected with
// UNSUPPORTED.
func NewFromDefinitions(srcDef, dstDef string) (*Transformer, error) {
	for _, def := range []string{srcDef, dstDef} {
		if err := checkProjection(def); err != nil {
			return nil, err
		}
	}
	srcSR, err := proj.Parse(srcDef)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCRS, err, "parse source CRS")
	}
	dstSR, err := proj.Parse(dstDef)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCRS, err, "parse target CRS")
	}
	fn, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "build transform")
	}
	return &Transformer{src: srcDef, dst: dstDef, fn: fn}, nil
}

// Source returns the PROJ.4 definition of the source CRS.
func (t *Transformer) Source() string { return t.src }

// Target returns the PROJ.4 definition of the target CRS.
func (t *Transformer) Target() string { return t.dst }

// Inverse returns a transformer in the opposite direction.
func (t *Transformer) Inverse() (*Transformer, error) {
	return NewFromDefinitions(t.dst, t.src)
}

// Point transforms a single coordinate pair.
func (t *Transformer) Point(x, y float64) (float64, float64, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "coordinate (%g, %g) is not finite", x, y)
	}
	if IsGeographic(t.src) && (math.Abs(x) > 180 || math.Abs(y) > 90) {
		return 0, 0, errors.Wrap(errors.ErrCodeOutOfRange, coord.ErrOutOfRange, "lon/lat (%g, %g)", x, y)
	}
	ox, oy, err := t.fn(x, y)
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeOutOfRange, err, "transform (%g, %g)", x, y)
	}
	if math.IsNaN(ox) || math.IsNaN(oy) || math.IsInf(ox, 0) || math.IsInf(oy, 0) {
		return 0, 0, errors.Wrap(errors.ErrCodeOutOfRange, coord.ErrOutOfRange, "transform (%g, %g) has no finite result", x, y)
	}
	return ox, oy, nil
}

func (t *Transformer) point(p orb.Point) (orb.Point, error) {
	x, y, err := t.Point(p[0], p[1])
	return orb.Point{x, y}, err
}

// Points transforms a batch concurrently. Results and per-point errors are
// aligned with pts; see coord.ConvertPoints.
func (t *Transformer) Points(ctx context.Context, pts []orb.Point) ([]orb.Point, []error, error) {
	start := time.Now()
	observability.Pipeline().OnTransformStart(ctx, t.src, t.dst, len(pts))
	out, errs, err := coord.ConvertPoints(ctx, pts, t.point)
	hookErr := err
	if hookErr == nil {
		_, hookErr = coord.FirstError(errs)
	}
	observability.Pipeline().OnTransformComplete(ctx, t.src, t.dst, time.Since(start), hookErr)
	return out, errs, err
}

// Geometry returns a transformed copy of g. The input is not modified.
// The first failing vertex aborts the transform.
func (t *Transformer) Geometry(g orb.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "nil geometry")
	}
	if p, ok := g.(orb.Point); ok {
		q, err := t.point(p)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	var firstErr error
	out := orb.Clone(g)
	mapPoints(out, func(p orb.Point) orb.Point {
		if firstErr != nil {
			return p
		}
		q, err := t.point(p)
		if err != nil {
			firstErr = err
			return p
		}
		return q
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// mapPoints rewrites every vertex of g in place.
func mapPoints(g orb.Geometry, fn func(orb.Point) orb.Point) {
	switch g := g.(type) {
	case orb.MultiPoint:
		for i := range g {
			g[i] = fn(g[i])
		}
	case orb.LineString:
		for i := range g {
			g[i] = fn(g[i])
		}
	case orb.MultiLineString:
		for _, ls := range g {
			mapPoints(ls, fn)
		}
	case orb.Ring:
		for i := range g {
			g[i] = fn(g[i])
		}
	case orb.Polygon:
		for _, r := range g {
			mapPoints(r, fn)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			mapPoints(p, fn)
		}
	case orb.Collection:
		for i := range g {
			if p, ok := g[i].(orb.Point); ok {
				g[i] = fn(p)
				continue
			}
			mapPoints(g[i], fn)
		}
	}
}

// GeoJSON reprojects a GeoJSON document. Geometry, Feature and
// FeatureCollection objects are accepted and the same kind is returned.
// Properties are preserved.
func (t *Transformer) GeoJSON(data []byte) ([]byte, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode geojson")
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "decode feature collection")
		}
		for i, f := range fc.Features {
			if err := t.feature(f); err != nil {
				return nil, errors.Wrap(errors.GetCode(err), err, "feature %d", i)
			}
		}
		return fc.MarshalJSON()
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "decode feature")
		}
		if err := t.feature(f); err != nil {
			return nil, err
		}
		return f.MarshalJSON()
	case "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "geojson object has no type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "decode geometry")
		}
		out, err := t.Geometry(g.Geometry())
		if err != nil {
			return nil, err
		}
		return geojson.NewGeometry(out).MarshalJSON()
	}
}

func (t *Transformer) feature(f *geojson.Feature) error {
	if f.Geometry == nil {
		return nil
	}
	g, err := t.Geometry(f.Geometry)
	if err != nil {
		return err
	}
	f.Geometry = g
	f.BBox = nil
	return nil
}

// Table returns a copy of tbl with the transformed xCol/yCol written to
// outX/outY. Rows whose input coordinates are blank or NaN are passed
// through with blank outputs; any other failing row aborts the call.
func (t *Transformer) Table(tbl *table.Table, xCol, yCol, outX, outY string) (*table.Table, error) {
	xs, err := tbl.Floats(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := tbl.Floats(yCol)
	if err != nil {
		return nil, err
	}

	pts := make([]orb.Point, len(xs))
	for i := range xs {
		pts[i] = orb.Point{xs[i], ys[i]}
	}
	res, errs, err := t.Points(context.Background(), pts)
	if err != nil {
		return nil, err
	}

	ox := make([]float64, len(pts))
	oy := make([]float64, len(pts))
	for i, p := range pts {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			ox[i], oy[i] = math.NaN(), math.NaN()
			continue
		}
		if errs[i] != nil {
			return nil, errors.Wrap(errors.GetCode(errs[i]), errs[i], "row %d", i+1)
		}
		ox[i], oy[i] = res[i][0], res[i][1]
	}

	out, err := tbl.WithFloatColumn(outX, ox)
	if err != nil {
		return nil, err
	}
	return out.WithFloatColumn(outY, oy)
}
