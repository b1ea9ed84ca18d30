package eligibility

import (
	"errors"
	"fmt"

	"github.com/geosift/eligo/internal/geom"
)

// Sentinel errors of the analysis. A failed layer aborts the whole
// run; results are all-or-nothing.
var (
	ErrInvalidFilter    = errors.New("invalid attribute filter")
	ErrInvalidBuffer    = errors.New("invalid buffer distance")
	ErrInvalidThreshold = errors.New("invalid sliver threshold")

	// Kernel-level sentinels, shared with the geom package so wrapped
	// errors match from either side.
	ErrCRSResolution     = geom.ErrCRS
	ErrGeometryOperation = geom.ErrOperation
)

// LayerError identifies the layer that triggered a failure so callers
// can correct the offending specification.
type LayerError struct {
	Role  string // "base", "included", "excluded", "restricted"
	Name  string
	Index int
	Err   error
}

func (e *LayerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("layer %s[%d] %q: %v", e.Role, e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("layer %s[%d]: %v", e.Role, e.Index, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }

func layerErr(role, name string, index int, err error) error {
	if err == nil {
		return nil
	}
	return &LayerError{Role: role, Name: name, Index: index, Err: err}
}
