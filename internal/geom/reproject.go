package geom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spatial-go/geoos/space"
	"github.com/wroge/wgs84"
)

// ErrCRS is the sentinel for an unknown or unreprojectable reference
// system.
var ErrCRS = errors.New("cannot resolve reference system")

// ParseCRS extracts the numeric EPSG code from an authority string
// such as "EPSG:25832" or a bare "25832".
func ParseCRS(crs string) (int, error) {
	s := strings.TrimSpace(crs)
	if s == "" {
		return 0, fmt.Errorf("%w: empty identifier", ErrCRS)
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		auth := strings.ToUpper(strings.TrimSpace(s[:i]))
		if auth != "EPSG" {
			return 0, fmt.Errorf("%w: unsupported authority %q", ErrCRS, auth)
		}
		s = s[i+1:]
	}
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("%w: bad code %q", ErrCRS, crs)
	}
	return code, nil
}

// SameCRS reports whether two identifiers name the same system.
func SameCRS(a, b string) bool {
	ca, errA := ParseCRS(a)
	cb, errB := ParseCRS(b)
	return errA == nil && errB == nil && ca == cb
}

// Transform builds an (x, y) coordinate transform between two EPSG
// codes. Unknown codes fail with ErrCRS.
func Transform(fromCRS, toCRS string) (func(x, y float64) (float64, float64), error) {
	from, err := ParseCRS(fromCRS)
	if err != nil {
		return nil, err
	}
	to, err := ParseCRS(toCRS)
	if err != nil {
		return nil, err
	}
	if from == to {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	epsg := wgs84.EPSG()
	src := epsg.Code(from)
	if src == nil {
		return nil, fmt.Errorf("%w: unknown EPSG code %d", ErrCRS, from)
	}
	dst := epsg.Code(to)
	if dst == nil {
		return nil, fmt.Errorf("%w: unknown EPSG code %d", ErrCRS, to)
	}
	f := wgs84.Transform(src, dst)
	return func(x, y float64) (float64, float64) {
		x2, y2, _ := f(x, y, 0)
		return x2, y2
	}, nil
}

// Reproject expresses every feature of c in the target system. The
// input collection is left untouched; a same-system call still returns
// an independent copy.
func Reproject(c Collection, targetCRS string) (Collection, error) {
	if SameCRS(c.CRS, targetCRS) {
		out := c.Clone()
		out.CRS = targetCRS
		return out, nil
	}
	tr, err := Transform(c.CRS, targetCRS)
	if err != nil {
		return Collection{}, err
	}
	out := Collection{CRS: targetCRS, Features: make([]Feature, 0, len(c.Features))}
	for _, f := range c.Features {
		g := transformGeometry(f.Geometry, tr)
		if g == nil {
			continue
		}
		attrs := make(Attributes, len(f.Attributes))
		for k, v := range f.Attributes {
			attrs[k] = v
		}
		out.Features = append(out.Features, Feature{Geometry: g, Attributes: attrs})
	}
	return out, nil
}

func transformGeometry(g space.Geometry, tr func(x, y float64) (float64, float64)) space.Geometry {
	polys := Polygons(g)
	if len(polys) == 0 {
		return nil
	}
	out := make([]space.Polygon, 0, len(polys))
	for _, p := range polys {
		np := make(space.Polygon, len(p))
		for i, ring := range p {
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				x, y := tr(pt[0], pt[1])
				np[i] = append(np[i], space.Point{x, y})
			}
		}
		out = append(out, np)
	}
	return FromPolygons(out)
}
