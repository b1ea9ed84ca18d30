package eligibility

import (
	"strings"

	"github.com/geosift/eligo/internal/geom"
)

// LayerSpec describes one input layer. Exactly one of Path, GeoJSON,
// or Collection must be resolvable; resolution is the loader's
// responsibility, the engine never inspects the source itself. Specs
// are treated as immutable once handed to the engine.
type LayerSpec struct {
	// Name identifies the layer in errors, logs, and metrics.
	Name string

	// Source alternatives, resolved by the loader.
	Path       string
	GeoJSON    []byte
	Collection *geom.Collection

	// CRS of the source data when it differs from the analysis target.
	// Empty means the source is already in the target system.
	CRS string

	// Where restricts the layer to features whose attributes satisfy
	// the predicate. Applied before Buffer.
	Where Predicate

	// Buffer dilates every remaining geometry by this distance in
	// target-CRS units. Must be >= 0.
	Buffer float64
}

// DisplayName returns a stable human-readable identity for the layer.
func (s LayerSpec) DisplayName() string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	if s.Path != "" {
		return s.Path
	}
	return ""
}

// Input is the configuration surface of one analysis run, owned by
// the caller and never mutated by the engine.
type Input struct {
	// BaseArea names the starting region. Where and Buffer are not
	// applied to it; a base spec carrying either fails the run.
	BaseArea   LayerSpec
	Included   []LayerSpec
	Excluded   []LayerSpec
	Restricted []LayerSpec

	// SliverThreshold drops output fragments with area strictly below
	// it (squared target-CRS units). Zero disables filtering.
	SliverThreshold float64

	// CRS is the target reference system; all outputs carry it.
	CRS string
}

// Output holds the two disjoint result regions of a run.
type Output struct {
	Eligible                 geom.Collection
	EligibleWithRestrictions geom.Collection
}
