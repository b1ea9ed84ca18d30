// Package loader resolves layer specifications into normalized
// geometry collections in the analysis target system.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/geosift/eligo/internal/eligibility"
	"github.com/geosift/eligo/internal/geom"
)

// ErrNoSource is returned when a spec names no resolvable source.
var ErrNoSource = errors.New("layer spec has no resolvable source")

// FileLoader resolves specs from in-memory collections, raw GeoJSON,
// or GeoJSON files. Parsed files are memoized by path through an LRU
// so repeated runs over the same layer set skip disk and decode work.
type FileLoader struct {
	log  *slog.Logger
	memo *lru.Cache[string, geom.Collection]
}

var _ eligibility.Loader = (*FileLoader)(nil)

func New(logger *slog.Logger, memoSize int) (*FileLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if memoSize < 2 {
		memoSize = 2
	}
	memo, err := lru.New[string, geom.Collection](memoSize)
	if err != nil {
		return nil, fmt.Errorf("layer memo: %w", err)
	}
	return &FileLoader{log: logger, memo: memo}, nil
}

// Load resolves the spec's source, drops empty geometry, and
// reprojects into targetCRS.
func (l *FileLoader) Load(ctx context.Context, spec eligibility.LayerSpec, targetCRS string) (geom.Collection, error) {
	if err := ctx.Err(); err != nil {
		return geom.Collection{}, err
	}

	native, err := l.resolve(spec, targetCRS)
	if err != nil {
		return geom.Collection{}, err
	}

	out, err := geom.Reproject(dropEmpty(native), targetCRS)
	if err != nil {
		return geom.Collection{}, err
	}
	return out, nil
}

func (l *FileLoader) resolve(spec eligibility.LayerSpec, targetCRS string) (geom.Collection, error) {
	nativeCRS := spec.CRS
	if nativeCRS == "" {
		nativeCRS = targetCRS
	}

	switch {
	case spec.Collection != nil:
		c := spec.Collection.Clone()
		if c.CRS == "" {
			c.CRS = nativeCRS
		}
		return c, nil

	case len(spec.GeoJSON) > 0:
		return geom.DecodeGeoJSON(spec.GeoJSON, nativeCRS)

	case spec.Path != "":
		return l.loadFile(spec.Path, nativeCRS)

	default:
		return geom.Collection{}, ErrNoSource
	}
}

func (l *FileLoader) loadFile(path, nativeCRS string) (geom.Collection, error) {
	if c, ok := l.memo.Get(path); ok {
		c = c.Clone()
		c.CRS = nativeCRS
		return c, nil
	}

	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return geom.Collection{}, fmt.Errorf("read layer file: %w", err)
	}
	c, err := geom.DecodeGeoJSON(data, nativeCRS)
	if err != nil {
		return geom.Collection{}, fmt.Errorf("decode %s: %w", path, err)
	}
	l.log.Debug("layer file loaded",
		"path", path,
		"features", len(c.Features),
		"duration", time.Since(start).String())

	l.memo.Add(path, c.Clone())
	return c, nil
}

func dropEmpty(c geom.Collection) geom.Collection {
	out := geom.Collection{CRS: c.CRS, Features: make([]geom.Feature, 0, len(c.Features))}
	for _, f := range c.Features {
		if f.Geometry == nil || f.Geometry.IsEmpty() {
			continue
		}
		out.Features = append(out.Features, f)
	}
	return out
}
