package geoframe

import (
	"math"

	"github.com/paulmach/orb"
)

// Report summarises a [MakeValid] pass.
type Report struct {
	Features int // features inspected
	Empty    int // features whose input geometry was missing or empty
	Invalid  int // features whose input geometry failed validation
	Repaired int // invalid features that still hold a geometry after repair
	Emptied  int // invalid features left empty after repair
}

// AnyEmpty reports whether any input geometry was empty.
func (r Report) AnyEmpty() bool { return r.Empty > 0 }

// AllValid reports whether every input geometry was already valid.
func (r Report) AllValid() bool { return r.Invalid == 0 }

// MakeValid returns a copy of f in which invalid geometries are repaired.
// Valid geometries are copied unchanged.
//
// A polygon ring is valid when it is closed, has at least four positions,
// contains no consecutive duplicate positions and has the RFC 7946
// orientation (exterior counter-clockwise, holes clockwise). Repair closes
// open rings, removes consecutive duplicates, drops rings left with fewer
// than four positions and reorients the rest. A polygon whose exterior is
// dropped becomes empty, and empty polygons are removed from multipolygons.
//
// Self-intersections are not detected.
func MakeValid(f *Frame) (*Frame, Report) {
	out := &Frame{Features: make([]Feature, len(f.Features)), DroppedZ: f.DroppedZ}
	rep := Report{Features: len(f.Features)}

	for i, ft := range f.Features {
		c := cloneFeature(ft)
		out.Features[i] = c

		if isEmpty(c.Geometry) {
			rep.Empty++
			continue
		}
		if IsValid(c.Geometry) {
			continue
		}

		rep.Invalid++
		g := repair(c.Geometry)
		out.Features[i].Geometry = g
		if isEmpty(g) {
			rep.Emptied++
		} else {
			rep.Repaired++
		}
	}
	return out, rep
}

// IsValid reports whether g passes the checks described in [MakeValid].
func IsValid(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return false
	case orb.Point:
		return finitePoint(g)
	case orb.MultiPoint:
		for _, p := range g {
			if !finitePoint(p) {
				return false
			}
		}
		return true
	case orb.LineString:
		return validPath(g, 2)
	case orb.MultiLineString:
		for _, ls := range g {
			if !validPath(ls, 2) {
				return false
			}
		}
		return true
	case orb.Ring:
		return validRing(g, orb.CCW)
	case orb.Polygon:
		return validPolygon(g)
	case orb.MultiPolygon:
		for _, p := range g {
			if !validPolygon(p) {
				return false
			}
		}
		return len(g) > 0
	case orb.Collection:
		for _, sub := range g {
			if !IsValid(sub) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func validPolygon(p orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}
	for i, r := range p {
		want := orb.CCW
		if i > 0 {
			want = orb.CW
		}
		if !validRing(r, want) {
			return false
		}
	}
	return true
}

func validRing(r orb.Ring, want orb.Orientation) bool {
	if len(r) < 4 || !r.Closed() {
		return false
	}
	if !validPath(orb.LineString(r), 4) {
		return false
	}
	return r.Orientation() == want
}

func validPath(ls orb.LineString, minLen int) bool {
	if len(ls) < minLen {
		return false
	}
	for i, p := range ls {
		if !finitePoint(p) {
			return false
		}
		if i > 0 && p.Equal(ls[i-1]) {
			return false
		}
	}
	return true
}

func finitePoint(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// repair rewrites g into a valid geometry, possibly empty.
func repair(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		if !finitePoint(g) {
			return nil
		}
		return g
	case orb.MultiPoint:
		var out orb.MultiPoint
		for _, p := range g {
			if finitePoint(p) {
				out = append(out, p)
			}
		}
		return out
	case orb.LineString:
		ls := dedupe(g)
		if len(ls) < 2 {
			return orb.LineString{}
		}
		return ls
	case orb.MultiLineString:
		var out orb.MultiLineString
		for _, l := range g {
			if ls := dedupe(l); len(ls) >= 2 {
				out = append(out, ls)
			}
		}
		return out
	case orb.Ring:
		r, ok := repairRing(g, orb.CCW)
		if !ok {
			return orb.Ring{}
		}
		return r
	case orb.Polygon:
		return repairPolygon(g)
	case orb.MultiPolygon:
		var out orb.MultiPolygon
		for _, p := range g {
			if rp := repairPolygon(p); len(rp) > 0 {
				out = append(out, rp)
			}
		}
		return out
	case orb.Collection:
		var out orb.Collection
		for _, sub := range g {
			if r := repair(sub); !isEmpty(r) {
				out = append(out, r)
			}
		}
		return out
	default:
		return g
	}
}

func repairPolygon(p orb.Polygon) orb.Polygon {
	if len(p) == 0 {
		return orb.Polygon{}
	}
	ext, ok := repairRing(p[0], orb.CCW)
	if !ok {
		return orb.Polygon{}
	}
	out := orb.Polygon{ext}
	for _, h := range p[1:] {
		if r, ok := repairRing(h, orb.CW); ok {
			out = append(out, r)
		}
	}
	return out
}

func repairRing(r orb.Ring, want orb.Orientation) (orb.Ring, bool) {
	ls := dedupe(orb.LineString(r))
	if len(ls) == 0 {
		return nil, false
	}
	ring := orb.Ring(ls)
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil, false
	}
	switch ring.Orientation() {
	case want:
	case 0:
		// zero area
		return nil, false
	default:
		ring.Reverse()
	}
	return ring, true
}

// dedupe returns a copy of ls without non-finite or consecutive duplicate positions.
func dedupe(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(ls))
	for _, p := range ls {
		if !finitePoint(p) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func isEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.MultiLineString:
		return len(g) == 0
	case orb.Ring:
		return len(g) == 0
	case orb.Polygon:
		return len(g) == 0
	case orb.MultiPolygon:
		return len(g) == 0
	case orb.Collection:
		return len(g) == 0
	default:
		return false
	}
}
