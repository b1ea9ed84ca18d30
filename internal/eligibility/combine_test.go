package eligibility

import (
	"testing"

	"github.com/geosift/eligo/internal/geom"
)

func TestUnionCollections_DissolvesOverlap(t *testing.T) {
	a := geom.Collection{CRS: "EPSG:3857", Features: []geom.Feature{
		{Geometry: square(0, 0, 2), Attributes: geom.Attributes{}},
	}}
	b := geom.Collection{CRS: "EPSG:3857", Features: []geom.Feature{
		{Geometry: square(1, 0, 2), Attributes: geom.Attributes{}},
	}}

	region, err := UnionCollections([]geom.Collection{a, b})
	if err != nil {
		t.Fatalf("UnionCollections: %v", err)
	}
	// two 2x2 squares overlapping in a 1x2 strip dissolve to area 6
	if got := area(t, region); got < 5.99 || got > 6.01 {
		t.Fatalf("area = %v, want 6", got)
	}
}

func TestUnionCollections_EmptyInput(t *testing.T) {
	region, err := UnionCollections(nil)
	if err != nil {
		t.Fatalf("UnionCollections: %v", err)
	}
	if region != nil {
		t.Fatalf("expected nil region for absent constraint, got %T", region)
	}

	region, err = UnionCollections([]geom.Collection{{CRS: "EPSG:3857"}})
	if err != nil {
		t.Fatalf("UnionCollections: %v", err)
	}
	if region != nil {
		t.Fatalf("expected nil region for empty collections, got %T", region)
	}
}
