// Package eligibility implements the eligibility-resolution algebra:
// combining a base area with included, excluded, and restricted layers
// into two disjoint output regions.
package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spatial-go/geoos/space"

	"github.com/geosift/eligo/internal/geom"
	"github.com/geosift/eligo/internal/index"
	"github.com/geosift/eligo/internal/observability"
)

// Loader resolves a layer spec into a normalized collection in the
// target reference system. Called once per layer; whether the source
// is a file path or an in-memory structure is its concern alone.
type Loader interface {
	Load(ctx context.Context, spec LayerSpec, targetCRS string) (geom.Collection, error)
}

// Engine orchestrates one analysis run: normalize, preprocess,
// aggregate, algebra, sliver removal. Safe for concurrent use; each
// run builds its own state.
type Engine struct {
	log     *slog.Logger
	loader  Loader
	workers int
}

func New(logger *slog.Logger, loader Loader, workers int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{log: logger, loader: loader, workers: workers}
}

const (
	roleBase       = "base"
	roleIncluded   = "included"
	roleExcluded   = "excluded"
	roleRestricted = "restricted"
)

// Run executes the full analysis. Any layer failure aborts the run
// with the layer's identity attached; no partial output is produced.
func (e *Engine) Run(ctx context.Context, in Input) (Output, error) {
	if in.SliverThreshold < 0 {
		return Output{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, in.SliverThreshold)
	}
	if _, err := geom.ParseCRS(in.CRS); err != nil {
		return Output{}, err
	}
	// The base area is taken as-is; filter and buffer apply to
	// constraint layers only.
	if in.BaseArea.Where != nil {
		return Output{}, layerErr(roleBase, in.BaseArea.DisplayName(), 0,
			fmt.Errorf("%w: base area does not take a filter", ErrInvalidFilter))
	}
	if in.BaseArea.Buffer != 0 {
		return Output{}, layerErr(roleBase, in.BaseArea.DisplayName(), 0,
			fmt.Errorf("%w: base area does not take a buffer", ErrInvalidBuffer))
	}

	start := time.Now()

	base, err := e.loadBase(ctx, in)
	if err != nil {
		return Output{}, err
	}

	included, excluded, restricted, err := e.preprocessAll(ctx, in)
	if err != nil {
		return Output{}, err
	}

	stageStart := time.Now()
	includedRegion, err := UnionCollections(included)
	if err != nil {
		return Output{}, err
	}

	baseRegion, err := UnionCollections([]geom.Collection{base})
	if err != nil {
		return Output{}, err
	}
	candidate, err := geom.Union(baseRegion, includedRegion)
	if err != nil {
		return Output{}, err
	}

	excludedRegion, err := UnionCollections(prefilter(excluded, candidate))
	if err != nil {
		return Output{}, err
	}
	restrictedRegion, err := UnionCollections(prefilter(restricted, candidate))
	if err != nil {
		return Output{}, err
	}
	observability.ObserveAnalysisStage("aggregate", time.Since(stageStart).Seconds())

	stageStart = time.Now()

	// Inclusion takes precedence over exclusion: the removable region
	// is the exclusion minus everything specifically included.
	removable, err := geom.Difference(excludedRegion, includedRegion)
	if err != nil {
		return Output{}, err
	}
	eligibleRaw, err := geom.Difference(candidate, removable)
	if err != nil {
		return Output{}, err
	}
	restrictedOverlap, err := geom.Intersection(eligibleRaw, restrictedRegion)
	if err != nil {
		return Output{}, err
	}
	eligibleFinal, err := geom.Difference(eligibleRaw, restrictedOverlap)
	if err != nil {
		return Output{}, err
	}
	observability.ObserveAnalysisStage("algebra", time.Since(stageStart).Seconds())

	stageStart = time.Now()
	eligible, err := e.finishRegion(eligibleFinal, in)
	if err != nil {
		return Output{}, err
	}
	restrictedOut, err := e.finishRegion(restrictedOverlap, in)
	if err != nil {
		return Output{}, err
	}
	observability.ObserveAnalysisStage("sliver", time.Since(stageStart).Seconds())

	e.log.Debug("analysis complete",
		"eligible_features", len(eligible.Features),
		"restricted_features", len(restrictedOut.Features),
		"duration", time.Since(start).String())

	return Output{Eligible: eligible, EligibleWithRestrictions: restrictedOut}, nil
}

func (e *Engine) loadBase(ctx context.Context, in Input) (geom.Collection, error) {
	stageStart := time.Now()
	defer func() {
		observability.ObserveAnalysisStage("normalize_base", time.Since(stageStart).Seconds())
	}()

	base, err := e.loader.Load(ctx, in.BaseArea, in.CRS)
	if err != nil {
		return geom.Collection{}, layerErr(roleBase, in.BaseArea.DisplayName(), 0, err)
	}
	return base, nil
}

type layerJob struct {
	role  string
	index int
	spec  LayerSpec
	slot  int
}

// preprocessAll loads and preprocesses every constraint layer over a
// bounded worker pool. Layers are independent, so execution order
// does not matter; results land in per-role slices in input order.
func (e *Engine) preprocessAll(ctx context.Context, in Input) (included, excluded, restricted []geom.Collection, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(in.Included) + len(in.Excluded) + len(in.Restricted)
	observability.AddAnalysisLayers(roleIncluded, len(in.Included))
	observability.AddAnalysisLayers(roleExcluded, len(in.Excluded))
	observability.AddAnalysisLayers(roleRestricted, len(in.Restricted))

	results := make([]geom.Collection, total)
	jobs := make(chan layerJob)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(ferr error) {
		errOnce.Do(func() {
			firstErr = ferr
			cancel()
		})
	}

	workers := e.workers
	if workers > total {
		workers = total
	}
	stageStart := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				c, jerr := e.prepareLayer(ctx, job.spec, in.CRS)
				if jerr != nil {
					fail(layerErr(job.role, job.spec.DisplayName(), job.index, jerr))
					continue
				}
				results[job.slot] = c
			}
		}()
	}

	slot := 0
	enqueue := func(role string, specs []LayerSpec) {
		for i, s := range specs {
			select {
			case jobs <- layerJob{role: role, index: i, spec: s, slot: slot}:
			case <-ctx.Done():
			}
			slot++
		}
	}
	enqueue(roleIncluded, in.Included)
	enqueue(roleExcluded, in.Excluded)
	enqueue(roleRestricted, in.Restricted)
	close(jobs)
	wg.Wait()
	observability.ObserveAnalysisStage("preprocess", time.Since(stageStart).Seconds())

	if firstErr != nil {
		return nil, nil, nil, firstErr
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, nil, nil, cerr
	}

	included = results[:len(in.Included)]
	excluded = results[len(in.Included) : len(in.Included)+len(in.Excluded)]
	restricted = results[len(in.Included)+len(in.Excluded):]
	return included, excluded, restricted, nil
}

func (e *Engine) prepareLayer(ctx context.Context, spec LayerSpec, targetCRS string) (geom.Collection, error) {
	c, err := e.loader.Load(ctx, spec, targetCRS)
	if err != nil {
		return geom.Collection{}, err
	}
	return Preprocess(c, spec.Where, spec.Buffer)
}

// prefilter drops features whose bounding boxes cannot intersect the
// candidate area; they cannot change a difference or intersection
// against it.
func prefilter(collections []geom.Collection, candidate space.Geometry) []geom.Collection {
	cb, ok := geom.BoundsOf(candidate)
	if !ok {
		return collections
	}
	out := make([]geom.Collection, 0, len(collections))
	for _, c := range collections {
		ix := index.Build(c)
		keep := ix.IntersectingPositions(cb)
		if len(keep) == len(c.Features) {
			out = append(out, c)
			continue
		}
		filtered := geom.Collection{CRS: c.CRS, Features: make([]geom.Feature, 0, len(keep))}
		for _, pos := range keep {
			filtered.Features = append(filtered.Features, c.Features[pos])
		}
		out = append(out, filtered)
	}
	return out
}

// finishRegion turns a raw region geometry into an output collection:
// sliver removal first, then one feature per single-part polygon.
func (e *Engine) finishRegion(region space.Geometry, in Input) (geom.Collection, error) {
	c := geom.Collection{CRS: in.CRS}
	if region != nil && !region.IsEmpty() {
		c.Features = append(c.Features, geom.Feature{Geometry: region, Attributes: geom.Attributes{}})
	}
	filtered, removed, err := RemoveSlivers(c, in.SliverThreshold)
	if err != nil {
		return geom.Collection{}, err
	}
	if removed > 0 {
		observability.AddSliversRemoved(removed)
		e.log.Debug("slivers removed", "count", removed)
	}

	out := geom.Collection{CRS: in.CRS}
	for _, f := range filtered.Features {
		for _, p := range geom.Polygons(f.Geometry) {
			out.Features = append(out.Features, geom.Feature{Geometry: p, Attributes: geom.Attributes{}})
		}
	}
	return out, nil
}
