// Package events publishes run-completion summaries to Kafka.
package events

import "time"

// RunCompleted summarizes a finished analysis run. Consumers use it
// for bookkeeping and for invalidating derived artifacts; it carries
// no geometry beyond the coverage cells.
type RunCompleted struct {
	RunID              string    `json:"run_id"`
	CRS                string    `json:"crs"`
	EligibleArea       float64   `json:"eligible_area"`
	RestrictedArea     float64   `json:"restricted_area"`
	SliverThreshold    float64   `json:"sliver_threshold"`
	LayerCount         int       `json:"layer_count"`
	CoverageCells      []string  `json:"coverage_cells,omitempty"`
	CoverageResolution int       `json:"coverage_resolution,omitempty"`
	DurationMillis     int64     `json:"duration_ms"`
	FinishedAt         time.Time `json:"finished_at"`
}
