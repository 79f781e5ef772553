package spatial

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
)

const epsilon = 1e-9

// Geometry converts a value into a geometry. Accepted are orb geometries,
// GeoJSON geometries and features (parsed, raw, or as a fastjson value or a
// decoded map), and WKT text.
func Geometry(value any) (orb.Geometry, error) {
	switch v := value.(type) {
	case orb.Bound:
		return v.ToPolygon(), nil
	case orb.Geometry:
		return v, nil
	case *geojson.Geometry:
		return v.Geometry(), nil
	case *geojson.Feature:
		return v.Geometry, nil
	case *fastjson.Value:
		return parseGeoJSON(v.MarshalTo(nil))
	case []byte:
		return parseText(string(v))
	case string:
		return parseText(v)
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(p.ErrUnsupportedValue, err.Error())
		}
		return parseGeoJSON(data)
	}
	return nil, errors.Wrapf(p.ErrUnsupportedValue, "%T is not a geometry", value)
}

func parseText(s string) (orb.Geometry, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return parseGeoJSON([]byte(s))
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, errors.Wrapf(p.ErrUnsupportedValue, "invalid wkt %q: %v", s, err)
	}
	return g, nil
}

func parseGeoJSON(data []byte) (orb.Geometry, error) {
	if bytes.Contains(data, []byte(`"Feature"`)) {
		f, err := geojson.UnmarshalFeature(data)
		if err == nil && f.Geometry != nil {
			return f.Geometry, nil
		}
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, errors.Wrapf(p.ErrUnsupportedValue, "invalid geojson: %v", err)
	}
	return g.Geometry(), nil
}

// Intersects reports whether a and b share at least one point.
func Intersects(a, b orb.Geometry) bool {
	for _, sa := range segments(a) {
		for _, sb := range segments(b) {
			if segmentsIntersect(sa, sb) {
				return true
			}
		}
	}
	for _, v := range vertices(a) {
		if touches(v, b) {
			return true
		}
	}
	for _, v := range vertices(b) {
		if touches(v, a) {
			return true
		}
	}
	return false
}

// Contains reports whether every point of b lies in a.
func Contains(a, b orb.Geometry) bool {
	vs := vertices(b)
	if len(vs) == 0 {
		return false
	}
	for _, v := range vs {
		if !touches(v, a) {
			return false
		}
	}
	if len(polygons(a)) == 0 {
		return true
	}
	// All vertices inside is not enough for a concave container: an edge of b
	// may still leave a between two vertices.
	for _, sb := range segments(b) {
		for _, sa := range segments(a) {
			if segmentsCross(sa, sb) {
				return false
			}
		}
	}
	return true
}

// Distance is the smallest planar distance between a and b, zero when they
// intersect.
func Distance(a, b orb.Geometry) float64 {
	if Intersects(a, b) {
		return 0
	}
	d := math.Inf(1)
	for _, v := range vertices(a) {
		d = math.Min(d, planar.DistanceFrom(b, v))
	}
	for _, v := range vertices(b) {
		d = math.Min(d, planar.DistanceFrom(a, v))
	}
	return d
}

func touches(pt orb.Point, g orb.Geometry) bool {
	for _, poly := range polygons(g) {
		if planar.PolygonContains(poly, pt) {
			return true
		}
	}
	for _, s := range segments(g) {
		if onSegment(pt, s) {
			return true
		}
	}
	for _, q := range points(g) {
		if q.Equal(pt) {
			return true
		}
	}
	return false
}

type segment [2]orb.Point

func points(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return v
	case orb.Collection:
		var result []orb.Point
		for _, member := range v {
			result = append(result, points(member)...)
		}
		return result
	}
	return nil
}

func vertices(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return v
	case orb.LineString:
		return v
	case orb.Ring:
		return v
	case orb.Bound:
		return v.ToRing()
	}
	var result []orb.Point
	switch v := g.(type) {
	case orb.MultiLineString:
		for _, ls := range v {
			result = append(result, ls...)
		}
	case orb.Polygon:
		for _, r := range v {
			result = append(result, r...)
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			result = append(result, vertices(poly)...)
		}
	case orb.Collection:
		for _, member := range v {
			result = append(result, vertices(member)...)
		}
	}
	return result
}

func segments(g orb.Geometry) []segment {
	var result []segment
	path := func(ps []orb.Point) {
		for i := 1; i < len(ps); i++ {
			result = append(result, segment{ps[i-1], ps[i]})
		}
	}
	switch v := g.(type) {
	case orb.LineString:
		path(v)
	case orb.Ring:
		path(v)
	case orb.Bound:
		path(v.ToRing())
	case orb.MultiLineString:
		for _, ls := range v {
			path(ls)
		}
	case orb.Polygon:
		for _, r := range v {
			path(r)
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			result = append(result, segments(poly)...)
		}
	case orb.Collection:
		for _, member := range v {
			result = append(result, segments(member)...)
		}
	}
	return result
}

func polygons(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return v
	case orb.Bound:
		return []orb.Polygon{v.ToPolygon()}
	case orb.Collection:
		var result []orb.Polygon
		for _, member := range v {
			result = append(result, polygons(member)...)
		}
		return result
	}
	return nil
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func sign(v float64) int {
	switch {
	case v > epsilon:
		return 1
	case v < -epsilon:
		return -1
	}
	return 0
}

func onSegment(pt orb.Point, s segment) bool {
	if sign(orientation(s[0], s[1], pt)) != 0 {
		return false
	}
	return pt[0] >= math.Min(s[0][0], s[1][0])-epsilon && pt[0] <= math.Max(s[0][0], s[1][0])+epsilon &&
		pt[1] >= math.Min(s[0][1], s[1][1])-epsilon && pt[1] <= math.Max(s[0][1], s[1][1])+epsilon
}

func segmentsIntersect(a, b segment) bool {
	if segmentsCross(a, b) {
		return true
	}
	return onSegment(b[0], a) || onSegment(b[1], a) || onSegment(a[0], b) || onSegment(a[1], b)
}

// segmentsCross reports a proper crossing: the segments meet in a single
// point interior to both.
func segmentsCross(a, b segment) bool {
	d1 := sign(orientation(a[0], a[1], b[0]))
	d2 := sign(orientation(a[0], a[1], b[1]))
	d3 := sign(orientation(b[0], b[1], a[0]))
	d4 := sign(orientation(b[0], b[1], a[1]))
	return d1*d2 < 0 && d3*d4 < 0
}
