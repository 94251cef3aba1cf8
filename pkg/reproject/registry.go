package reproject

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/geokit/pkg/errors"
)

const (
	webMercator = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
	wgs84       = "+proj=longlat +datum=WGS84 +no_defs"
)

// registry maps EPSG codes to PROJ.4 definitions. UTM zones are generated
// on demand by utmDefinition. Every entry must use a projection listed in
// projections.
var registry = map[int]string{
	4326:   wgs84,
	4269:   "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs",
	3857:   webMercator,
	900913: webMercator,
	3395:   "+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs",
	2154:   "+proj=lcc +lat_0=46.5 +lon_0=3 +lat_1=49 +lat_2=44 +x_0=700000 +y_0=6600000 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	5070:   "+proj=aea +lat_0=23 +lon_0=-96 +lat_1=29.5 +lat_2=45.5 +x_0=0 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
}

// projections lists the +proj= methods implemented by ctessum/geom/proj.
// Definitions naming anything else parse but fail on every point.
var projections = map[string]bool{
	"aea":     true,
	"eqdc":    true,
	"krovak":  true,
	"lcc":     true,
	"longlat": true,
	"merc":    true,
	"tmerc":   true,
	"utm":     true,
}

// projection returns the +proj= value of a PROJ.4 definition.
func projection(def string) string {
	for _, f := range strings.Fields(def) {
		if name, ok := strings.CutPrefix(f, "+proj="); ok {
			return name
		}
	}
	return ""
}

// checkProjection rejects definitions whose projection method has no
// implementation.
func checkProjection(def string) error {
	name := projection(def)
	if name == "" {
		return errors.New(errors.ErrCodeInvalidCRS, "definition %q has no +proj=", def)
	}
	if !projections[name] {
		return errors.New(errors.ErrCodeUnsupported, "projection %q is not implemented", name)
	}
	return nil
}

var epsgPattern = regexp.MustCompile(`(?i)^\s*epsg:\s*([0-9]+)\s*$`)

// Lookup returns the PROJ.4 definition registered for an EPSG code.
// WGS84 UTM zones (32601-32660 north, 32701-32760 south) are expressed as
// transverse Mercator definitions.
func Lookup(code int) (string, error) {
	if def, ok := registry[code]; ok {
		return def, nil
	}
	if def, ok := utmDefinition(code); ok {
		return def, nil
	}
	return "", errors.New(errors.ErrCodeInvalidCRS, "EPSG:%d is not in the registry", code)
}

func utmDefinition(code int) (string, bool) {
	var zone int
	south := false
	switch {
	case code >= 32601 && code <= 32660:
		zone = code - 32600
	case code >= 32701 && code <= 32760:
		zone = code - 32700
		south = true
	default:
		return "", false
	}
	cm := -183 + 6*zone
	northing := 0
	if south {
		northing = 10000000
	}
	return fmt.Sprintf("+proj=tmerc +lat_0=0 +lon_0=%d +k=0.9996 +x_0=500000 +y_0=%d +datum=WGS84 +units=m +no_defs", cm, northing), true
}

// UTMCode returns the EPSG code of the WGS84 UTM zone.
func UTMCode(zone int, north bool) (int, error) {
	if zone < 1 || zone > 60 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "utm zone %d outside 1..60", zone)
	}
	if north {
		return 32600 + zone, nil
	}
	return 32700 + zone, nil
}

// ParseCRS resolves a CRS string to a PROJ.4 definition. It accepts
// "EPSG:<code>" (case-insensitive), a bare EPSG number, or a PROJ.4 string
// starting with "+proj=".
func ParseCRS(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+proj=") {
		return s, nil
	}
	if m := epsgPattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return "", errors.New(errors.ErrCodeInvalidCRS, "unrecognised CRS %q", s)
	}
	return Lookup(code)
}

// Codes returns the registered EPSG codes in ascending order, UTM zones excluded.
func Codes() []int {
	out := make([]int, 0, len(registry))
	for c := range registry {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// IsGeographic reports whether a PROJ.4 definition uses longitude/latitude degrees.
func IsGeographic(def string) bool {
	for _, f := range strings.Fields(def) {
		if f == "+proj=longlat" || f == "+proj=latlong" || f == "+proj=lonlat" {
			return true
		}
	}
	return false
}
