package eligibility

import (
	"fmt"

	"github.com/geosift/eligo/internal/geom"
)

// RemoveSlivers drops every single-part polygonal constituent whose
// area is strictly below threshold, regrouping survivors by their
// original feature. Features left with no parts are dropped entirely.
// A zero threshold is the identity transform. Returns the number of
// discarded parts alongside the filtered collection.
func RemoveSlivers(c geom.Collection, threshold float64) (geom.Collection, int, error) {
	if threshold < 0 {
		return geom.Collection{}, 0, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	if threshold == 0 {
		return c.Clone(), 0, nil
	}

	out := geom.Collection{CRS: c.CRS}
	removed := 0
	for _, f := range c.Features {
		parts := geom.Polygons(f.Geometry)
		kept := parts[:0:0]
		for _, p := range parts {
			a, err := geom.Area(p)
			if err != nil {
				return geom.Collection{}, 0, err
			}
			if a < threshold {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue
		}
		attrs := make(geom.Attributes, len(f.Attributes))
		for k, v := range f.Attributes {
			attrs[k] = v
		}
		out.Features = append(out.Features, geom.Feature{
			Geometry:   geom.FromPolygons(kept),
			Attributes: attrs,
		})
	}
	return out, removed, nil
}
