package geom

import (
	"errors"
	"fmt"

	"github.com/spatial-go/geoos/planar"
	"github.com/spatial-go/geoos/space"
)

// ErrOperation is the sentinel for a failed kernel operation on
// degenerate input. Callers match it with errors.Is.
var ErrOperation = errors.New("geometry operation failed")

// Number of segments per quarter circle when dilating boundaries.
const bufferSegments = 8

var strategy = planar.NormalStrategy()

// Polygons decomposes a geometry into its single-part polygonal
// constituents. Non-areal parts (points, lines) are discarded, as are
// parts with a degenerate outer ring.
func Polygons(g space.Geometry) []space.Polygon {
	if g == nil || g.IsEmpty() {
		return nil
	}
	switch t := g.(type) {
	case space.Polygon:
		if len(t) == 0 || len(t[0]) < 4 {
			return nil
		}
		return []space.Polygon{t}
	case space.MultiPolygon:
		out := make([]space.Polygon, 0, len(t))
		for _, p := range t {
			if len(p) == 0 || len(p[0]) < 4 {
				continue
			}
			out = append(out, p)
		}
		return out
	case space.Collection:
		var out []space.Polygon
		for _, sub := range t {
			out = append(out, Polygons(sub)...)
		}
		return out
	default:
		return nil
	}
}

// FromPolygons reassembles single-part polygons into one geometry:
// nil for none, the polygon itself for one, a multipolygon otherwise.
func FromPolygons(polys []space.Polygon) space.Geometry {
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		mp := make(space.MultiPolygon, 0, len(polys))
		for _, p := range polys {
			mp = append(mp, p)
		}
		return mp
	}
}

// Area returns the summed planar area of the polygonal parts of g, in
// squared CRS units.
func Area(g space.Geometry) (float64, error) {
	total := 0.0
	for _, p := range Polygons(g) {
		a, err := strategy.Area(p)
		if err != nil {
			return 0, fmt.Errorf("%w: area: %v", ErrOperation, err)
		}
		total += a
	}
	return total, nil
}

// Union dissolves a and b into one region. A nil or empty operand is
// the identity.
func Union(a, b space.Geometry) (space.Geometry, error) {
	if a == nil || a.IsEmpty() {
		return b, nil
	}
	if b == nil || b.IsEmpty() {
		return a, nil
	}
	out, err := strategy.Union(a, b)
	if err != nil {
		return nil, fmt.Errorf("%w: union: %v", ErrOperation, err)
	}
	return FromPolygons(Polygons(out)), nil
}

// UnionAll folds Union over all geometries; nil for an empty input.
func UnionAll(geoms []space.Geometry) (space.Geometry, error) {
	var acc space.Geometry
	for _, g := range geoms {
		next, err := Union(acc, g)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// Difference removes b from a. An empty b is the identity, an empty a
// yields nil.
func Difference(a, b space.Geometry) (space.Geometry, error) {
	if a == nil || a.IsEmpty() {
		return nil, nil
	}
	if b == nil || b.IsEmpty() {
		return a, nil
	}
	if disjointBounds(a, b) {
		return a, nil
	}
	out, err := strategy.Difference(a, b)
	if err != nil {
		return nil, fmt.Errorf("%w: difference: %v", ErrOperation, err)
	}
	return FromPolygons(Polygons(out)), nil
}

// Intersection returns the region common to a and b; nil when either
// operand is empty or their bounds are disjoint.
func Intersection(a, b space.Geometry) (space.Geometry, error) {
	if a == nil || a.IsEmpty() || b == nil || b.IsEmpty() {
		return nil, nil
	}
	if disjointBounds(a, b) {
		return nil, nil
	}
	out, err := strategy.Intersection(a, b)
	if err != nil {
		return nil, fmt.Errorf("%w: intersection: %v", ErrOperation, err)
	}
	return FromPolygons(Polygons(out)), nil
}

// Buffer dilates the boundary of g by dist CRS units. A zero distance
// is the identity; negative distances are rejected by the caller
// before reaching the kernel.
func Buffer(g space.Geometry, dist float64) (space.Geometry, error) {
	if g == nil || g.IsEmpty() || dist == 0 {
		return g, nil
	}
	out := strategy.Buffer(g, dist, bufferSegments)
	if out == nil || out.IsEmpty() {
		return nil, fmt.Errorf("%w: buffer produced no geometry", ErrOperation)
	}
	return FromPolygons(Polygons(out)), nil
}

func disjointBounds(a, b space.Geometry) bool {
	ba, oka := BoundsOf(a)
	bb, okb := BoundsOf(b)
	if !oka || !okb {
		return false
	}
	return !ba.Intersects(bb)
}
