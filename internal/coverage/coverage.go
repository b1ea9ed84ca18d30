// Package coverage summarizes an output region as a set of H3 cells,
// used in response metadata and run-completion events.
package coverage

import (
	"fmt"
	"sort"

	"github.com/spatial-go/geoos/space"
	h3 "github.com/uber/h3-go/v4"

	"github.com/geosift/eligo/internal/geom"
)

const wgs84CRS = "EPSG:4326"

// Cells returns the sorted, deduplicated H3 cells at the given
// resolution covering the collection's polygons. The collection is
// reprojected to EPSG:4326 first; H3 wants degrees.
func Cells(c geom.Collection, res int) ([]string, error) {
	if res < 0 || res > 15 {
		return nil, fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	if c.Empty() {
		return nil, nil
	}

	ll, err := geom.Reproject(c, wgs84CRS)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, f := range ll.Features {
		for _, p := range geom.Polygons(f.Geometry) {
			cells, err := polyfillOne(p, res)
			if err != nil {
				return nil, err
			}
			for _, cell := range cells {
				if _, ok := seen[cell]; ok {
					continue
				}
				seen[cell] = struct{}{}
				out = append(out, cell)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func polyfillOne(p space.Polygon, res int) ([]string, error) {
	loops := make([]h3.GeoLoop, 0, len(p))
	for _, ring := range p {
		// x=lon, y=lat; drop the duplicated closing vertex
		loop := make(h3.GeoLoop, 0, len(ring))
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			loop = append(loop, h3.LatLng{Lat: pt[1], Lng: pt[0]})
		}
		if len(loop) >= 2 {
			last, first := loop[len(loop)-1], loop[0]
			if last.Lat == first.Lat && last.Lng == first.Lng {
				loop = loop[:len(loop)-1]
			}
		}
		if len(loop) < 3 {
			continue
		}
		loops = append(loops, loop)
	}
	if len(loops) == 0 {
		return nil, nil
	}

	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: loops[0], Holes: loops[1:]}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}
	out := make([]string, 0, len(cells))
	for _, cell := range cells {
		out = append(out, cell.String())
	}
	return out, nil
}
