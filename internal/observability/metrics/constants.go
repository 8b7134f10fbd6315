// Package metrics provides constants used across metric definitions.
package metrics

// Operation names recorded through the Recorder interface.
const (
	// OpRun represents one complete pipeline run over a building model.
	OpRun = "run"
	// OpTriangulate represents triangulation of a single roof element.
	OpTriangulate = "triangulate"
	// OpSegment represents clustering and segment property computation.
	OpSegment = "segment"
	// OpEstimate represents one call to the solar yield estimator.
	OpEstimate = "estimate"
	// OpResolve represents metadata resolution through the alias chains.
	OpResolve = "resolve"
	// OpCacheGet represents estimator response cache lookups.
	OpCacheGet = "cache_get"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
	StatusHit     = "hit"
	StatusMiss    = "miss"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
