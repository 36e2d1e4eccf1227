// Package metrics provides constants used across metric definitions.
package metrics

// Operation label values.
const (
	// OpSearch is a filtered, paginated event search.
	OpSearch = "search"
	// OpVideos is an id-only event listing.
	OpVideos = "videos"
	// OpAnalytics is an aggregation report over the full corpus.
	OpAnalytics = "analytics"
	// OpOverrideSpecies replaces an event's species list.
	OpOverrideSpecies = "override_species"
	// OpAddBehavior adds a behavior interval.
	OpAddBehavior = "add_behavior"
	// OpDeleteBehavior deletes a behavior interval.
	OpDeleteBehavior = "delete_behavior"
	// OpDeleteEvent deletes an event.
	OpDeleteEvent = "delete_event"
	// OpAddChoice adds a behavior choice.
	OpAddChoice = "add_behavior_choice"
)

// Status label values.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusError    = "error"
	StatusSkipped  = "skipped"
	StatusInvalid  = "invalid"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketFactor2 is the common exponential growth factor.
	BucketFactor2 = 2
	// BucketCount15 defines 15 exponential buckets (1ms to ~16s).
	BucketCount15 = 15
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketStart64B is the starting bucket for byte-size histograms.
	BucketStart64B = 64.0
)
