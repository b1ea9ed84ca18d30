package geom

import (
	"testing"

	"github.com/spatial-go/geoos/space"
)

func TestArea_Square(t *testing.T) {
	if a := mustArea(t, square(0, 0, 10)); !almostEqual(a, 100) {
		t.Fatalf("area = %v, want 100", a)
	}
}

func TestUnion_DisjointSquaresSumAreas(t *testing.T) {
	u, err := Union(square(0, 0, 2), square(10, 10, 3))
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if a := mustArea(t, u); !almostEqual(a, 13) {
		t.Fatalf("area = %v, want 13", a)
	}
}

func TestUnion_OverlappingSquaresDissolve(t *testing.T) {
	// two 2x2 squares sharing a 1x2 overlap: 4 + 4 - 2 = 6
	u, err := Union(square(0, 0, 2), square(1, 0, 2))
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if a := mustArea(t, u); !almostEqual(a, 6) {
		t.Fatalf("area = %v, want 6", a)
	}
}

func TestUnion_EmptyOperandIsIdentity(t *testing.T) {
	sq := square(0, 0, 2)
	u, err := Union(nil, sq)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if a := mustArea(t, u); !almostEqual(a, 4) {
		t.Fatalf("area = %v, want 4", a)
	}
	u, err = Union(sq, nil)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if a := mustArea(t, u); !almostEqual(a, 4) {
		t.Fatalf("area = %v, want 4", a)
	}
}

func TestUnionAll_EmptyInputYieldsNil(t *testing.T) {
	u, err := UnionAll(nil)
	if err != nil {
		t.Fatalf("UnionAll: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil union of no geometries, got %v", u)
	}
}

func TestDifference_CornerCut(t *testing.T) {
	d, err := Difference(square(0, 0, 10), square(0, 0, 4))
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if a := mustArea(t, d); !almostEqual(a, 84) {
		t.Fatalf("area = %v, want 84", a)
	}
}

func TestDifference_DisjointSubtrahendIsIdentity(t *testing.T) {
	sq := square(0, 0, 10)
	d, err := Difference(sq, square(100, 100, 5))
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if a := mustArea(t, d); !almostEqual(a, 100) {
		t.Fatalf("area = %v, want 100", a)
	}
}

func TestIntersection_PartialOverlap(t *testing.T) {
	g, err := Intersection(square(0, 0, 4), square(2, 2, 4))
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	if a := mustArea(t, g); !almostEqual(a, 4) {
		t.Fatalf("area = %v, want 4", a)
	}
}

func TestIntersection_DisjointYieldsNil(t *testing.T) {
	g, err := Intersection(square(0, 0, 2), square(10, 10, 2))
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	if g != nil && !g.IsEmpty() {
		t.Fatalf("expected empty intersection, got area %v", mustArea(t, g))
	}
}

func TestBuffer_GrowsArea(t *testing.T) {
	g, err := Buffer(square(0, 0, 2), 1)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	a := mustArea(t, g)
	// side 2 square dilated by 1: at least core + edges, at most the
	// mitre bound (4x4 square)
	if a <= 12 || a > 16.01 {
		t.Fatalf("buffered area = %v, want in (12, 16]", a)
	}
}

func TestBuffer_ZeroDistanceIsIdentity(t *testing.T) {
	sq := square(0, 0, 2)
	g, err := Buffer(sq, 0)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if a := mustArea(t, g); !almostEqual(a, 4) {
		t.Fatalf("area = %v, want 4", a)
	}
}

func TestPolygons_Decompose(t *testing.T) {
	mp := space.MultiPolygon{square(0, 0, 1), square(5, 5, 2)}
	parts := Polygons(mp)
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts := Polygons(nil); parts != nil {
		t.Fatalf("nil geometry must decompose to nothing")
	}
}

func TestFromPolygons(t *testing.T) {
	if g := FromPolygons(nil); g != nil {
		t.Fatalf("no parts must assemble to nil")
	}
	one := FromPolygons([]space.Polygon{square(0, 0, 1)})
	if _, ok := one.(space.Polygon); !ok {
		t.Fatalf("single part must stay a polygon, got %T", one)
	}
	many := FromPolygons([]space.Polygon{square(0, 0, 1), square(3, 3, 1)})
	if _, ok := many.(space.MultiPolygon); !ok {
		t.Fatalf("multiple parts must assemble to a multipolygon, got %T", many)
	}
}

func TestArea_MultiPolygonSumsParts(t *testing.T) {
	mp := space.MultiPolygon{square(0, 0, 2), square(10, 0, 3)}
	if a := mustArea(t, mp); !almostEqual(a, 13) {
		t.Fatalf("area = %v, want 13", a)
	}
}
