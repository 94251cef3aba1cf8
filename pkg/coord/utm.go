package coord

import (
	"fmt"

	"github.com/im7mortal/UTM"

	"github.com/matzehuels/geokit/pkg/errors"
)

// UTMPoint is a position in a Universal Transverse Mercator zone.
type UTMPoint struct {
	Easting    float64 `json:"easting"`
	Northing   float64 `json:"northing"`
	ZoneNumber int     `json:"zone"`
	ZoneLetter string  `json:"letter"`
}

// String formats the point as "32U 500000 5500000".
func (u UTMPoint) String() string {
	return fmt.Sprintf("%d%s %.3f %.3f", u.ZoneNumber, u.ZoneLetter, u.Easting, u.Northing)
}

// Northern reports whether the zone letter lies in the northern hemisphere.
func (u UTMPoint) Northern() bool {
	return u.ZoneLetter >= "N"
}

// LatLonToUTM converts p to UTM. The zone is chosen from the position.
// UTM is defined between 80°S and 84°N.
func LatLonToUTM(p LatLon) (UTMPoint, error) {
	if !finite(p.Lat) || !finite(p.Lon) || p.Lat < -80 || p.Lat > 84 || p.Lon < -180 || p.Lon > 180 {
		return UTMPoint{}, outOfRange("lat/lon (%g, %g) outside UTM coverage", p.Lat, p.Lon)
	}
	e, n, zone, letter, err := UTM.FromLatLon(p.Lat, p.Lon, p.Lat >= 0)
	if err != nil {
		return UTMPoint{}, errors.Wrap(errors.ErrCodeOutOfRange, err, "utm from lat/lon")
	}
	return UTMPoint{Easting: e, Northing: n, ZoneNumber: zone, ZoneLetter: letter}, nil
}

// UTMToLatLon converts u back to geographic degrees.
func UTMToLatLon(u UTMPoint) (LatLon, error) {
	if u.ZoneNumber < 1 || u.ZoneNumber > 60 {
		return LatLon{}, errors.New(errors.ErrCodeInvalidInput, "utm zone %d outside 1..60", u.ZoneNumber)
	}
	lat, lon, err := UTM.ToLatLon(u.Easting, u.Northing, u.ZoneNumber, u.ZoneLetter)
	if err != nil {
		return LatLon{}, errors.Wrap(errors.ErrCodeOutOfRange, err, "utm to lat/lon")
	}
	return LatLon{Lat: lat, Lon: lon}, nil
}
