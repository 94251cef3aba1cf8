package coord

import (
	"context"
	"math"

	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/table"
)

// TableToWebMercator returns a copy of t with "x" and "y" columns holding the
// Web Mercator projection of latCol/lonCol. Existing x/y columns are
// overwritten in the copy. Rows with a blank latitude or longitude get blank
// x/y; any out-of-range row fails the whole call with its row number.
func TableToWebMercator(t *table.Table, latCol, lonCol string) (*table.Table, error) {
	xs, ys, err := projectColumns(t, latCol, lonCol)
	if err != nil {
		return nil, err
	}
	out, err := t.WithFloatColumn("x", xs)
	if err != nil {
		return nil, err
	}
	return out.WithFloatColumn("y", ys)
}

// TransformColumns is like [TableToWebMercator] but writes the projected
// values back into lonCol (easting) and latCol (northing) of the copy.
func TransformColumns(t *table.Table, latCol, lonCol string) (*table.Table, error) {
	xs, ys, err := projectColumns(t, latCol, lonCol)
	if err != nil {
		return nil, err
	}
	out, err := t.WithFloatColumn(lonCol, xs)
	if err != nil {
		return nil, err
	}
	return out.WithFloatColumn(latCol, ys)
}

func projectColumns(t *table.Table, latCol, lonCol string) ([]float64, []float64, error) {
	lats, err := t.Floats(latCol)
	if err != nil {
		return nil, nil, err
	}
	lons, err := t.Floats(lonCol)
	if err != nil {
		return nil, nil, err
	}

	pts := make([]LatLon, len(lats))
	for i := range lats {
		pts[i] = LatLon{Lat: lats[i], Lon: lons[i]}
	}

	res, errs, err := ToWebMercator(context.Background(), pts)
	if err != nil {
		return nil, nil, err
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
			xs[i], ys[i] = math.NaN(), math.NaN()
			continue
		}
		if errs[i] != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeOutOfRange, errs[i], "row %d", i+1)
		}
		xs[i], ys[i] = res[i].X, res[i].Y
	}
	return xs, ys, nil
}
