package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/geosift/eligo/internal/cache"
	"github.com/geosift/eligo/internal/config"
	"github.com/geosift/eligo/internal/coverage"
	"github.com/geosift/eligo/internal/eligibility"
	"github.com/geosift/eligo/internal/events"
	"github.com/geosift/eligo/internal/geom"
	"github.com/geosift/eligo/internal/loader"
	"github.com/geosift/eligo/internal/logger"
	"github.com/geosift/eligo/internal/observability"
)

// Meta is the non-geometry part of an analyze response.
type Meta struct {
	RunID              string   `json:"run_id"`
	CRS                string   `json:"crs"`
	EligibleArea       float64  `json:"eligible_area"`
	RestrictedArea     float64  `json:"restricted_area"`
	CoverageCells      []string `json:"coverage_cells,omitempty"`
	CoverageResolution int      `json:"coverage_resolution,omitempty"`
	DurationMillis     int64    `json:"duration_ms"`
}

// AnalyzeResponse carries the two output regions as GeoJSON feature
// collections plus run metadata.
type AnalyzeResponse struct {
	Eligible                 json.RawMessage `json:"eligible"`
	EligibleWithRestrictions json.RawMessage `json:"eligible_with_restrictions"`
	Meta                     Meta            `json:"meta"`
}

// Handler serves POST /analyze.
type Handler struct {
	log    *slog.Logger
	cfg    config.Config
	engine *eligibility.Engine
	store  cache.Interface  // nil when caching is disabled
	events events.Publisher // never nil; NopPublisher when disabled
}

func NewHandler(log *slog.Logger, cfg config.Config, engine *eligibility.Engine, store cache.Interface, pub events.Publisher) *Handler {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Handler{log: log, cfg: cfg, engine: engine, store: store, events: pub}
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
	defer func() {
		observability.ObserveHTTP(r.Method, "/analyze", sw.code, time.Since(start).Seconds())
	}()

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(sw, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	in, err := req.ToInput(h.cfg)
	if err != nil {
		http.Error(sw, err.Error(), statusFor(err))
		return
	}

	key := ""
	if h.store != nil {
		key, err = req.Fingerprint(h.cfg)
		if err == nil {
			if cached, ok, gerr := h.store.Get(r.Context(), key); gerr == nil && ok {
				observability.IncCacheHit()
				sw.Header().Set("Content-Type", "application/json")
				sw.Header().Set("X-Cache", "hit")
				_, _ = sw.Write(cached)
				return
			} else if gerr != nil {
				h.log.Warn("cache read failed", "err", gerr)
			}
			observability.IncCacheMiss()
		}
	}

	runID := uuid.NewString()
	ctx := logger.WithRunID(r.Context(), runID)

	out, err := h.engine.Run(ctx, in)
	duration := time.Since(start)
	if err != nil {
		observability.ObserveAnalysisRun("error", duration.Seconds())
		h.log.Error("analysis failed", "run_id", runID, "err", err)
		http.Error(sw, err.Error(), statusFor(err))
		return
	}
	observability.ObserveAnalysisRun("ok", duration.Seconds())

	resp, err := h.buildResponse(runID, in, out, duration)
	if err != nil {
		h.log.Error("encode response failed", "run_id", runID, "err", err)
		http.Error(sw, "internal error", http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(sw, "internal error", http.StatusInternalServerError)
		return
	}

	if h.store != nil && key != "" {
		if serr := h.store.Set(r.Context(), key, body, h.cfg.CacheTTL); serr != nil {
			h.log.Warn("cache write failed", "err", serr)
		}
	}

	h.publish(in, resp)

	sw.Header().Set("Content-Type", "application/json")
	sw.Header().Set("X-Cache", "miss")
	_, _ = sw.Write(body)
}

func (h *Handler) buildResponse(runID string, in eligibility.Input, out eligibility.Output, duration time.Duration) (AnalyzeResponse, error) {
	eligibleJSON, err := geom.EncodeGeoJSON(out.Eligible)
	if err != nil {
		return AnalyzeResponse{}, err
	}
	restrictedJSON, err := geom.EncodeGeoJSON(out.EligibleWithRestrictions)
	if err != nil {
		return AnalyzeResponse{}, err
	}

	eligibleArea, err := collectionArea(out.Eligible)
	if err != nil {
		return AnalyzeResponse{}, err
	}
	restrictedArea, err := collectionArea(out.EligibleWithRestrictions)
	if err != nil {
		return AnalyzeResponse{}, err
	}

	meta := Meta{
		RunID:          runID,
		CRS:            in.CRS,
		EligibleArea:   eligibleArea,
		RestrictedArea: restrictedArea,
		DurationMillis: duration.Milliseconds(),
	}

	// Coverage is advisory; a CRS the summary cannot express is not a
	// reason to fail a finished run.
	if cells, cerr := coverage.Cells(out.Eligible, h.cfg.CoverageRes); cerr == nil {
		meta.CoverageCells = cells
		meta.CoverageResolution = h.cfg.CoverageRes
	} else {
		h.log.Debug("coverage summary skipped", "err", cerr)
	}

	return AnalyzeResponse{
		Eligible:                 eligibleJSON,
		EligibleWithRestrictions: restrictedJSON,
		Meta:                     meta,
	}, nil
}

func (h *Handler) publish(in eligibility.Input, resp AnalyzeResponse) {
	ev := events.RunCompleted{
		RunID:              resp.Meta.RunID,
		CRS:                resp.Meta.CRS,
		EligibleArea:       resp.Meta.EligibleArea,
		RestrictedArea:     resp.Meta.RestrictedArea,
		SliverThreshold:    in.SliverThreshold,
		LayerCount:         len(in.Included) + len(in.Excluded) + len(in.Restricted),
		CoverageCells:      resp.Meta.CoverageCells,
		CoverageResolution: resp.Meta.CoverageResolution,
		DurationMillis:     resp.Meta.DurationMillis,
		FinishedAt:         time.Now().UTC(),
	}
	if err := h.events.Publish(ev); err != nil {
		h.log.Warn("event publish failed", "run_id", ev.RunID, "err", err)
	}
}

func collectionArea(c geom.Collection) (float64, error) {
	total := 0.0
	for _, f := range c.Features {
		a, err := geom.Area(f.Geometry)
		if err != nil {
			return 0, err
		}
		total += a
	}
	return total, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, eligibility.ErrInvalidFilter),
		errors.Is(err, eligibility.ErrInvalidBuffer),
		errors.Is(err, eligibility.ErrInvalidThreshold),
		errors.Is(err, loader.ErrNoSource):
		return http.StatusBadRequest
	case errors.Is(err, eligibility.ErrCRSResolution),
		errors.Is(err, eligibility.ErrGeometryOperation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
