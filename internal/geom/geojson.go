package geom

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spatial-go/geoos/space"
)

// GeoJSON decoding is deliberately narrow: the analysis only consumes
// areal geometry, so Polygon and MultiPolygon members are kept and
// everything else is dropped. Accepted roots are FeatureCollection,
// Feature, Polygon, and MultiPolygon.

type rawFeatureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DecodeGeoJSON parses GeoJSON into a collection carrying the given
// CRS identifier. Features without polygonal geometry are dropped.
func DecodeGeoJSON(data []byte, crs string) (Collection, error) {
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		return Collection{}, fmt.Errorf("parse geojson: %w", err)
	}

	out := Collection{CRS: crs}
	switch hdr.Type {
	case "FeatureCollection":
		var fc rawFeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return Collection{}, fmt.Errorf("parse feature collection: %w", err)
		}
		for i, raw := range fc.Features {
			f, err := decodeFeature(raw)
			if err != nil {
				return Collection{}, fmt.Errorf("feature %d: %w", i, err)
			}
			if f.Geometry == nil {
				continue
			}
			out.Features = append(out.Features, f)
		}
		return out, nil

	case "Feature":
		f, err := decodeFeature(data)
		if err != nil {
			return Collection{}, err
		}
		if f.Geometry != nil {
			out.Features = append(out.Features, f)
		}
		return out, nil

	case "Polygon", "MultiPolygon":
		g, err := decodeGeometry(data)
		if err != nil {
			return Collection{}, err
		}
		if g != nil {
			out.Features = append(out.Features, Feature{Geometry: g, Attributes: Attributes{}})
		}
		return out, nil

	default:
		return Collection{}, fmt.Errorf(`unsupported geojson type %q`, hdr.Type)
	}
}

func decodeFeature(data []byte) (Feature, error) {
	var f rawFeature
	if err := json.Unmarshal(data, &f); err != nil {
		return Feature{}, fmt.Errorf("parse feature: %w", err)
	}
	if f.Type != "Feature" {
		return Feature{}, fmt.Errorf(`type is %q (want "Feature")`, f.Type)
	}
	attrs := Attributes(f.Properties)
	if attrs == nil {
		attrs = Attributes{}
	}
	if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
		return Feature{Attributes: attrs}, nil
	}
	g, err := decodeGeometry(f.Geometry)
	if err != nil {
		return Feature{}, err
	}
	return Feature{Geometry: g, Attributes: attrs}, nil
}

func decodeGeometry(data []byte) (space.Geometry, error) {
	var g rawGeometry
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse geometry: %w", err)
	}
	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		p, err := buildPolygon(coords)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("parse multipolygon coordinates: %w", err)
		}
		mp := make(space.MultiPolygon, 0, len(coords))
		for i, pc := range coords {
			p, err := buildPolygon(pc)
			if err != nil {
				return nil, fmt.Errorf("polygon %d: %w", i, err)
			}
			mp = append(mp, p)
		}
		if len(mp) == 0 {
			return nil, nil
		}
		return mp, nil
	default:
		// Non-areal members carry no eligible area.
		return nil, nil
	}
}

func buildPolygon(coords [][][]float64) (space.Polygon, error) {
	if len(coords) == 0 {
		return nil, errors.New("polygon has no rings")
	}
	p := make(space.Polygon, len(coords))
	for i, ring := range coords {
		for _, pt := range ring {
			if len(pt) < 2 {
				return nil, fmt.Errorf("ring %d: coordinate with < 2 values", i)
			}
			p[i] = append(p[i], space.Point{pt[0], pt[1]})
		}
		// close the ring if the source left it open
		n := len(p[i])
		if n >= 3 && (p[i][0][0] != p[i][n-1][0] || p[i][0][1] != p[i][n-1][1]) {
			p[i] = append(p[i], space.Point{p[i][0][0], p[i][0][1]})
		}
		if len(p[i]) < 4 {
			return nil, fmt.Errorf("ring %d has < 4 vertices", i)
		}
	}
	return p, nil
}

// EncodeGeoJSON renders a collection as a GeoJSON FeatureCollection.
func EncodeGeoJSON(c Collection) ([]byte, error) {
	type outGeometry struct {
		Type        string `json:"type"`
		Coordinates any    `json:"coordinates"`
	}
	type outFeature struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Geometry   *outGeometry   `json:"geometry"`
	}
	type outCollection struct {
		Type     string       `json:"type"`
		Features []outFeature `json:"features"`
	}

	fc := outCollection{Type: "FeatureCollection", Features: make([]outFeature, 0, len(c.Features))}
	for _, f := range c.Features {
		props := map[string]any(f.Attributes)
		if props == nil {
			props = map[string]any{}
		}
		var g *outGeometry
		switch t := f.Geometry.(type) {
		case space.Polygon:
			g = &outGeometry{Type: "Polygon", Coordinates: polygonCoords(t)}
		case space.MultiPolygon:
			coords := make([][][][]float64, 0, len(t))
			for _, p := range t {
				coords = append(coords, polygonCoords(p))
			}
			g = &outGeometry{Type: "MultiPolygon", Coordinates: coords}
		default:
			if f.Geometry != nil {
				if polys := Polygons(f.Geometry); len(polys) > 0 {
					coords := make([][][][]float64, 0, len(polys))
					for _, p := range polys {
						coords = append(coords, polygonCoords(p))
					}
					g = &outGeometry{Type: "MultiPolygon", Coordinates: coords}
				}
			}
		}
		fc.Features = append(fc.Features, outFeature{Type: "Feature", Properties: props, Geometry: g})
	}

	b, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("marshal feature collection: %w", err)
	}
	return b, nil
}

func polygonCoords(p space.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(p))
	for _, ring := range p {
		pts := make([][]float64, 0, len(ring))
		for _, pt := range ring {
			pts = append(pts, []float64{pt[0], pt[1]})
		}
		rings = append(rings, pts)
	}
	return rings
}
