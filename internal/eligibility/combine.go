package eligibility

import (
	"github.com/spatial-go/geoos/space"

	"github.com/geosift/eligo/internal/geom"
)

// UnionCollections dissolves all geometries of all collections into a
// single aggregate region. An empty input list is a valid absent
// constraint and yields nil.
func UnionCollections(collections []geom.Collection) (space.Geometry, error) {
	var geoms []space.Geometry
	for _, c := range collections {
		geoms = append(geoms, c.Geometries()...)
	}
	return geom.UnionAll(geoms)
}
