// Package query defines the storage-agnostic predicate vocabulary used to select events.
//
// A Predicate is an AND of independent Fragments. Every fragment can be evaluated in
// memory against a Record; record stores may translate the fragments they understand
// into their native query language and evaluate the rest with Match.
package query

import (
	"time"

	"golang.org/x/text/cases"
)

// Record is the flattened view of an event and its detection that fragments match against.
type Record struct {
	EventID         string
	DeviceID        string
	StartedAt       time.Time // UTC
	DurationSeconds float64
	Detected        []string       // machine-detected labels, in detection order
	Overridden      []string       // operator labels, meaningful only when HasOverride
	HasOverride     bool           // true even when Overridden is empty
	MaxCounts       map[string]int // label -> max count per frame
	MaxConfidence   *float64       // event_summary.max_confidence, nil when absent
	Behaviors       []string       // behavior descriptions
}

// EffectiveSpecies returns the overridden list when an override is present,
// otherwise the detected list. An empty override yields an empty list.
func EffectiveSpecies(detected, overridden []string, hasOverride bool) []string {
	if hasOverride {
		if overridden == nil {
			return []string{}
		}
		return overridden
	}
	return detected
}

// EffectiveSpecies returns the record's effective species list.
func (r *Record) EffectiveSpecies() []string {
	return EffectiveSpecies(r.Detected, r.Overridden, r.HasOverride)
}

// FoldLabel returns the case-folded form of a species label for comparisons.
func FoldLabel(label string) string {
	// A Caser is stateful and not safe to share between goroutines.
	return cases.Fold().String(label)
}

// foldedSet returns the set of case-folded labels.
func foldedSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[FoldLabel(l)] = struct{}{}
	}
	return set
}

// countFor looks up the max count of a folded label, matching keys case-insensitively.
func (r *Record) countFor(folded string) (int, bool) {
	if n, ok := r.MaxCounts[folded]; ok {
		return n, true
	}
	for k, n := range r.MaxCounts {
		if FoldLabel(k) == folded {
			return n, true
		}
	}
	return 0, false
}
