// Package coord implements closed-form conversions between geographic
// coordinates (WGS84, EPSG:4326) and spherical Web Mercator (EPSG:3857).
//
// The formulas need no projection library:
//
//	X = R·λ
//	Y = R/2·ln((1+sin φ)/(1−sin φ))        = R·ln(tan(π/4 + φ/2))
//
//	φ = π/2 − 2·atan(exp(−Y/R))
//	λ = X/R
//
// with R = [SemiMajorAxis]. Angles are in degrees at the API boundary.
//
// # Range Checks
//
// Inputs are rejected if any coordinate is out of its domain:
// |lat| ≥ 90 or |lon| > 180 for geographic input, |X| or |Y| > [MaxExtent]
// for projected input, or any non-finite value. Errors wrap [ErrOutOfRange]
// and carry the OUT_OF_RANGE code.
//
// Latitudes beyond [MaxLatitude] project outside the square Web Mercator
// extent and are rejected too, so every accepted forward result converts
// back.
package coord

import (
	"math"

	"github.com/matzehuels/geokit/pkg/errors"
)

const (
	// SemiMajorAxis is the WGS84 equatorial radius in meters.
	SemiMajorAxis = 6378137.0

	// MaxExtent is π·R, the half-width of the Web Mercator plane in meters.
	MaxExtent = 20037508.342789244

	// MaxLatitude is the latitude in degrees that projects onto MaxExtent.
	MaxLatitude = 85.0511287798066
)

// ErrOutOfRange is wrapped by every range rejection in this package.
var ErrOutOfRange = errors.New(errors.ErrCodeOutOfRange, "coordinate out of range")

// LatLon is a geographic position in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// XY is a projected position in meters (easting, northing).
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LatLonToWebMercator projects p onto the spherical Web Mercator plane.
func LatLonToWebMercator(p LatLon) (XY, error) {
	if !finite(p.Lat) || !finite(p.Lon) || math.Abs(p.Lat) >= 90 || math.Abs(p.Lon) > 180 {
		return XY{}, outOfRange("lat/lon (%g, %g) outside (-90, 90) x [-180, 180]", p.Lat, p.Lon)
	}

	phi := p.Lat * math.Pi / 180
	lambda := p.Lon * math.Pi / 180
	sin := math.Sin(phi)

	xy := XY{
		X: SemiMajorAxis * lambda,
		Y: SemiMajorAxis / 2 * math.Log((1+sin)/(1-sin)),
	}
	if math.Abs(xy.Y) > MaxExtent {
		return XY{}, outOfRange("lat %g beyond ±%g projects outside ±%g", p.Lat, MaxLatitude, MaxExtent)
	}
	return xy, nil
}

// WebMercatorToLatLon is the inverse of [LatLonToWebMercator].
// Longitudes are wrapped into [-180, 180).
func WebMercatorToLatLon(p XY) (LatLon, error) {
	if !finite(p.X) || !finite(p.Y) || math.Abs(p.X) > MaxExtent || math.Abs(p.Y) > MaxExtent {
		return LatLon{}, outOfRange("x/y (%g, %g) outside ±%g", p.X, p.Y, MaxExtent)
	}

	lat := (math.Pi/2 - 2*math.Atan(math.Exp(-p.Y/SemiMajorAxis))) * 180 / math.Pi
	lon := p.X / SemiMajorAxis * 180 / math.Pi

	return LatLon{Lat: lat, Lon: WrapLon(lon)}, nil
}

// WrapLon maps a longitude in degrees into [-180, 180).
func WrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func outOfRange(format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeOutOfRange, ErrOutOfRange, format, args...)
}
