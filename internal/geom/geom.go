// Package geom wraps the planar geometry kernel and reprojection used
// by the eligibility analysis. All union/difference/intersection/buffer
// calls go through this package so the kernel stays swappable.
package geom

import (
	"github.com/spatial-go/geoos/space"
)

// Attributes is the per-feature attribute record.
type Attributes map[string]any

// Feature pairs one geometry with its attribute record.
type Feature struct {
	Geometry   space.Geometry
	Attributes Attributes
}

// Collection is an ordered sequence of features sharing one reference
// system. CRS is an authority string such as "EPSG:25832".
type Collection struct {
	CRS      string
	Features []Feature
}

// Empty reports whether the collection carries no usable geometry.
func (c Collection) Empty() bool {
	for _, f := range c.Features {
		if f.Geometry != nil && !f.Geometry.IsEmpty() {
			return false
		}
	}
	return true
}

// Clone returns a copy whose feature slice and attribute maps are
// independent of the receiver. Geometries are shared; all operations
// in this package treat geometries as immutable.
func (c Collection) Clone() Collection {
	out := Collection{CRS: c.CRS, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		attrs := make(Attributes, len(f.Attributes))
		for k, v := range f.Attributes {
			attrs[k] = v
		}
		out.Features[i] = Feature{Geometry: f.Geometry, Attributes: attrs}
	}
	return out
}

// Geometries returns the non-empty geometries of the collection.
func (c Collection) Geometries() []space.Geometry {
	out := make([]space.Geometry, 0, len(c.Features))
	for _, f := range c.Features {
		if f.Geometry == nil || f.Geometry.IsEmpty() {
			continue
		}
		out = append(out, f.Geometry)
	}
	return out
}

// Bounds is an axis-aligned bounding box in the collection's CRS.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Intersects reports whether two boxes overlap or touch.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Extend grows the box to cover o.
func (b Bounds) Extend(o Bounds) Bounds {
	if o.MinX < b.MinX {
		b.MinX = o.MinX
	}
	if o.MinY < b.MinY {
		b.MinY = o.MinY
	}
	if o.MaxX > b.MaxX {
		b.MaxX = o.MaxX
	}
	if o.MaxY > b.MaxY {
		b.MaxY = o.MaxY
	}
	return b
}

// BoundsOf computes the bounding box of a geometry from its polygonal
// parts. ok is false for nil, empty, or non-areal geometry.
func BoundsOf(g space.Geometry) (Bounds, bool) {
	polys := Polygons(g)
	if len(polys) == 0 {
		return Bounds{}, false
	}
	first := true
	var b Bounds
	for _, p := range polys {
		for _, ring := range p {
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				x, y := pt[0], pt[1]
				if first {
					b = Bounds{MinX: x, MinY: y, MaxX: x, MaxY: y}
					first = false
					continue
				}
				b = b.Extend(Bounds{MinX: x, MinY: y, MaxX: x, MaxY: y})
			}
		}
	}
	if first {
		return Bounds{}, false
	}
	return b, true
}
