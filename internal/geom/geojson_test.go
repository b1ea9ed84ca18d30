package geom

import (
	"encoding/json"
	"testing"
)

const sampleFC = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"landuse": "forest", "grade": 2},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"landuse": "road"},
      "geometry": {
        "type": "LineString",
        "coordinates": [[0,0],[1,1]]
      }
    },
    {
      "type": "Feature",
      "properties": {},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[10,10],[12,10],[12,12],[10,12],[10,10]]],
          [[[20,20],[21,20],[21,21],[20,21],[20,20]]]
        ]
      }
    }
  ]
}`

func TestDecodeGeoJSON_FeatureCollection(t *testing.T) {
	c, err := DecodeGeoJSON([]byte(sampleFC), "EPSG:3857")
	if err != nil {
		t.Fatalf("DecodeGeoJSON: %v", err)
	}
	if c.CRS != "EPSG:3857" {
		t.Fatalf("CRS = %q", c.CRS)
	}
	// the line-string feature carries no areal geometry and is dropped
	if len(c.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(c.Features))
	}
	if c.Features[0].Attributes["landuse"] != "forest" {
		t.Fatalf("attributes not preserved: %v", c.Features[0].Attributes)
	}
	if a := mustArea(t, c.Features[0].Geometry); !almostEqual(a, 16) {
		t.Fatalf("first feature area = %v, want 16", a)
	}
	if a := mustArea(t, c.Features[1].Geometry); !almostEqual(a, 5) {
		t.Fatalf("multipolygon area = %v, want 5", a)
	}
}

func TestDecodeGeoJSON_BareGeometryAndFeature(t *testing.T) {
	poly := `{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}`
	c, err := DecodeGeoJSON([]byte(poly), "EPSG:3857")
	if err != nil {
		t.Fatalf("bare polygon: %v", err)
	}
	if len(c.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(c.Features))
	}

	feat := `{"type":"Feature","properties":{"a":1},"geometry":` + poly + `}`
	c, err = DecodeGeoJSON([]byte(feat), "EPSG:3857")
	if err != nil {
		t.Fatalf("single feature: %v", err)
	}
	if len(c.Features) != 1 || c.Features[0].Attributes["a"] == nil {
		t.Fatalf("single feature not decoded: %+v", c)
	}
}

func TestDecodeGeoJSON_OpenRingGetsClosed(t *testing.T) {
	poly := `{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2]]]}`
	c, err := DecodeGeoJSON([]byte(poly), "EPSG:3857")
	if err != nil {
		t.Fatalf("open ring: %v", err)
	}
	if a := mustArea(t, c.Features[0].Geometry); !almostEqual(a, 4) {
		t.Fatalf("area = %v, want 4", a)
	}
}

func TestDecodeGeoJSON_RejectsUnknownRoot(t *testing.T) {
	if _, err := DecodeGeoJSON([]byte(`{"type":"GeometryCollection"}`), "EPSG:3857"); err == nil {
		t.Fatalf("expected error for unsupported root type")
	}
	if _, err := DecodeGeoJSON([]byte(`not json`), "EPSG:3857"); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestEncodeGeoJSON_RoundTrip(t *testing.T) {
	orig, err := DecodeGeoJSON([]byte(sampleFC), "EPSG:3857")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, err := EncodeGeoJSON(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var probe struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		t.Fatalf("encoded output is not valid json: %v", err)
	}
	if probe.Type != "FeatureCollection" || len(probe.Features) != 2 {
		t.Fatalf("unexpected shape: type=%q features=%d", probe.Type, len(probe.Features))
	}

	again, err := DecodeGeoJSON(data, "EPSG:3857")
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if a := mustArea(t, again.Features[0].Geometry); !almostEqual(a, 16) {
		t.Fatalf("area after round trip = %v, want 16", a)
	}
}

func TestEncodeGeoJSON_EmptyCollection(t *testing.T) {
	data, err := EncodeGeoJSON(Collection{CRS: "EPSG:3857"})
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	var probe struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(probe.Features) != 0 {
		t.Fatalf("empty collection encoded %d features", len(probe.Features))
	}
}
