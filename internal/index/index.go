// Package index provides an R-tree over the features of a collection
// for bounding-box prefiltering before set algebra.
package index

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/geosift/eligo/internal/geom"
)

// R-tree requires non-zero extents; degenerate boxes get this pad.
const epsilon = 1e-9

type entry struct {
	pos    int
	bounds geom.Bounds
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	point := rtreego.Point{e.bounds.MinX, e.bounds.MinY}
	w := e.bounds.MaxX - e.bounds.MinX
	h := e.bounds.MaxY - e.bounds.MinY
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	rect, _ := rtreego.NewRect(point, []float64{w, h})
	return rect
}

// Index answers which features of one collection may intersect a
// query box. Feature positions refer to the collection it was built
// from.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// Build indexes every feature with usable polygonal geometry.
func Build(c geom.Collection) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	size := 0
	for i, f := range c.Features {
		b, ok := geom.BoundsOf(f.Geometry)
		if !ok {
			continue
		}
		tree.Insert(&entry{pos: i, bounds: b})
		size++
	}
	return &Index{tree: tree, size: size}
}

// Size returns the number of indexed features.
func (ix *Index) Size() int { return ix.size }

// IntersectingPositions returns, in ascending order, the positions of
// features whose bounding boxes intersect b.
func (ix *Index) IntersectingPositions(b geom.Bounds) []int {
	point := rtreego.Point{b.MinX, b.MinY}
	w := b.MaxX - b.MinX
	h := b.MaxY - b.MinY
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	rect, err := rtreego.NewRect(point, []float64{w, h})
	if err != nil {
		return nil
	}
	hits := ix.tree.SearchIntersect(rect)
	out := make([]int, 0, len(hits))
	for _, s := range hits {
		if e, ok := s.(*entry); ok {
			out = append(out, e.pos)
		}
	}
	sort.Ints(out)
	return out
}
