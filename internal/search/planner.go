package search

import (
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

// Plan translates a filter into a predicate and an ordering.
//
// Each criterion becomes one independent fragment. A minimum count only applies per
// species within the species fragment and is ignored when no species was given.
// A species parameter holding only blank names yields a fragment that matches nothing.
func Plan(f Filter) (query.Predicate, query.Order) {
	var fragments []query.Fragment

	if f.SpeciesGiven {
		fragments = append(fragments, query.Species{
			Labels:   f.Species,
			Mode:     f.Match,
			MinCount: f.MinCount,
		})
	}

	if !f.StartDate.IsZero() || !f.EndDate.IsZero() {
		fragments = append(fragments, query.DateRange{From: f.StartDate, To: f.EndDate})
	}
	if f.DeviceID != "" {
		fragments = append(fragments, query.Device{ID: f.DeviceID})
	}
	if f.MinDuration != nil {
		fragments = append(fragments, query.MinDuration{Seconds: *f.MinDuration})
	}
	if f.TimeOfDay != "" {
		fragments = append(fragments, query.HourBucket{Bucket: f.TimeOfDay})
	}
	if f.MinConfidence != nil {
		fragments = append(fragments, query.MinConfidence{Value: *f.MinConfidence})
	}
	if f.Behavior != "" {
		fragments = append(fragments, query.BehaviorDescription{Text: f.Behavior})
	}

	sortKey := f.Sort
	if sortKey == "" {
		sortKey = query.SortRecent
	}
	return query.And(fragments...), query.Order{Key: sortKey}
}
