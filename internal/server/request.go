package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/geosift/eligo/internal/cache/keys"
	"github.com/geosift/eligo/internal/config"
	"github.com/geosift/eligo/internal/eligibility"
)

// LayerSpecDTO is the wire form of one layer specification.
type LayerSpecDTO struct {
	Name    string          `json:"name,omitempty"`
	Path    string          `json:"path,omitempty"`
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
	CRS     string          `json:"crs,omitempty"`
	Where   json.RawMessage `json:"where,omitempty"`
	Buffer  float64         `json:"buffer,omitempty"`
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	CRS             string         `json:"crs,omitempty"`
	SliverThreshold *float64       `json:"sliver_threshold,omitempty"`
	BaseArea        LayerSpecDTO   `json:"base_area"`
	Included        []LayerSpecDTO `json:"included,omitempty"`
	Excluded        []LayerSpecDTO `json:"excluded,omitempty"`
	Restricted      []LayerSpecDTO `json:"restricted,omitempty"`
}

// ToInput validates the request and resolves it against configured
// defaults into the engine's input form.
func (r AnalyzeRequest) ToInput(cfg config.Config) (eligibility.Input, error) {
	crs := strings.TrimSpace(r.CRS)
	if crs == "" {
		crs = cfg.DefaultCRS
	}

	threshold := cfg.DefaultSliverThreshold
	if r.SliverThreshold != nil {
		threshold = *r.SliverThreshold
	}
	if threshold < 0 {
		return eligibility.Input{}, fmt.Errorf("%w: %v", eligibility.ErrInvalidThreshold, threshold)
	}

	base, err := r.BaseArea.toSpec()
	if err != nil {
		return eligibility.Input{}, fmt.Errorf("base_area: %w", err)
	}
	if base.Path == "" && len(base.GeoJSON) == 0 && base.Collection == nil {
		return eligibility.Input{}, fmt.Errorf("base_area: missing source")
	}

	in := eligibility.Input{
		BaseArea:        base,
		SliverThreshold: threshold,
		CRS:             crs,
	}
	for role, dtos := range map[string][]LayerSpecDTO{
		"included":   r.Included,
		"excluded":   r.Excluded,
		"restricted": r.Restricted,
	} {
		specs := make([]eligibility.LayerSpec, 0, len(dtos))
		for i, dto := range dtos {
			spec, err := dto.toSpec()
			if err != nil {
				return eligibility.Input{}, fmt.Errorf("%s[%d]: %w", role, i, err)
			}
			specs = append(specs, spec)
		}
		switch role {
		case "included":
			in.Included = specs
		case "excluded":
			in.Excluded = specs
		case "restricted":
			in.Restricted = specs
		}
	}
	return in, nil
}

func (d LayerSpecDTO) toSpec() (eligibility.LayerSpec, error) {
	if d.Buffer < 0 {
		return eligibility.LayerSpec{}, fmt.Errorf("%w: %v", eligibility.ErrInvalidBuffer, d.Buffer)
	}
	spec := eligibility.LayerSpec{
		Name:   d.Name,
		Path:   d.Path,
		CRS:    d.CRS,
		Buffer: d.Buffer,
	}
	if len(d.GeoJSON) > 0 && string(d.GeoJSON) != "null" {
		spec.GeoJSON = d.GeoJSON
	}
	if len(d.Where) > 0 && string(d.Where) != "null" {
		where, err := eligibility.DecodePredicate(d.Where)
		if err != nil {
			return eligibility.LayerSpec{}, err
		}
		spec.Where = where
	}
	return spec, nil
}

// Fingerprint builds the result-cache key: defaults applied, raw JSON
// members compacted, so equivalent requests share a key regardless of
// formatting.
func (r AnalyzeRequest) Fingerprint(cfg config.Config) (string, error) {
	norm := r
	if strings.TrimSpace(norm.CRS) == "" {
		norm.CRS = cfg.DefaultCRS
	}
	if norm.SliverThreshold == nil {
		t := cfg.DefaultSliverThreshold
		norm.SliverThreshold = &t
	}
	norm.BaseArea = norm.BaseArea.compacted()
	norm.Included = compactAll(norm.Included)
	norm.Excluded = compactAll(norm.Excluded)
	norm.Restricted = compactAll(norm.Restricted)

	payload, err := json.Marshal(norm)
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	layers := len(norm.Included) + len(norm.Excluded) + len(norm.Restricted)
	return keys.Key(norm.CRS, layers, payload), nil
}

func compactAll(dtos []LayerSpecDTO) []LayerSpecDTO {
	out := make([]LayerSpecDTO, len(dtos))
	for i, d := range dtos {
		out[i] = d.compacted()
	}
	return out
}

func (d LayerSpecDTO) compacted() LayerSpecDTO {
	d.GeoJSON = compactJSON(d.GeoJSON)
	d.Where = compactJSON(d.Where)
	return d
}

func compactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
