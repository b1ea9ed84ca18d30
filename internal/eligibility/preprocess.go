package eligibility

import (
	"fmt"

	"github.com/geosift/eligo/internal/geom"
)

// Preprocess applies the optional attribute filter and then the
// optional buffer to a normalized collection. The order is fixed:
// filtering must see the un-dilated geometry. The input collection is
// never modified.
func Preprocess(c geom.Collection, where Predicate, buffer float64) (geom.Collection, error) {
	if buffer < 0 {
		return geom.Collection{}, fmt.Errorf("%w: %v", ErrInvalidBuffer, buffer)
	}

	out := geom.Collection{CRS: c.CRS}
	for _, f := range c.Features {
		if where != nil {
			keep, err := where.Eval(f.Attributes)
			if err != nil {
				return geom.Collection{}, err
			}
			if !keep {
				continue
			}
		}

		g := f.Geometry
		if buffer > 0 {
			var err error
			g, err = geom.Buffer(g, buffer)
			if err != nil {
				return geom.Collection{}, err
			}
		}
		if g == nil || g.IsEmpty() {
			continue
		}

		attrs := make(geom.Attributes, len(f.Attributes))
		for k, v := range f.Attributes {
			attrs[k] = v
		}
		out.Features = append(out.Features, geom.Feature{Geometry: g, Attributes: attrs})
	}
	return out, nil
}
