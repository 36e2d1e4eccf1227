package query

import (
	"fmt"
	"strings"
	"time"
)

// MatchMode selects how a species fragment combines its labels.
type MatchMode string

const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// TimeOfDay is a bucket of the UTC start hour.
type TimeOfDay string

const (
	TimeOfDayDay   TimeOfDay = "day"
	TimeOfDayNight TimeOfDay = "night"
)

// Day bucket bounds, [DayStartHour, DayEndHour). Night is every other hour.
const (
	DayStartHour = 6
	DayEndHour   = 18
)

// Fragment is one independent condition of a Predicate.
type Fragment interface {
	// Match reports whether the record satisfies the condition.
	Match(r *Record) bool
	// String describes the fragment for logs and query explanations.
	String() string
}

// Species matches on the effective species list.
//
// Under MatchAny the record matches when any label is present and, if MinCount is set,
// that same label's max count meets it. Under MatchAll every label must be present
// and, if MinCount is set, meet it. An empty label set matches nothing.
type Species struct {
	Labels   []string // case-folded, deduplicated
	Mode     MatchMode
	MinCount *int
}

func (f Species) Match(r *Record) bool {
	if len(f.Labels) == 0 {
		return false
	}
	present := foldedSet(r.EffectiveSpecies())

	satisfied := func(label string) bool {
		if _, ok := present[label]; !ok {
			return false
		}
		if f.MinCount == nil {
			return true
		}
		n, ok := r.countFor(label)
		return ok && n >= *f.MinCount
	}

	if f.Mode == MatchAll {
		for _, l := range f.Labels {
			if !satisfied(l) {
				return false
			}
		}
		return true
	}
	for _, l := range f.Labels {
		if satisfied(l) {
			return true
		}
	}
	return false
}

func (f Species) String() string {
	s := fmt.Sprintf("species %s [%s]", f.Mode, strings.Join(f.Labels, ", "))
	if f.MinCount != nil {
		s += fmt.Sprintf(" count>=%d", *f.MinCount)
	}
	return s
}

// DateRange matches start times in [From, To). A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (f DateRange) Match(r *Record) bool {
	if !f.From.IsZero() && r.StartedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.StartedAt.Before(f.To) {
		return false
	}
	return true
}

func (f DateRange) String() string {
	return fmt.Sprintf("started in [%s, %s)", formatBound(f.From), formatBound(f.To))
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// Device matches the source device identifier exactly.
type Device struct {
	ID string
}

func (f Device) Match(r *Record) bool { return r.DeviceID == f.ID }

func (f Device) String() string { return fmt.Sprintf("device=%q", f.ID) }

// MinDuration matches events lasting at least Seconds.
type MinDuration struct {
	Seconds float64
}

func (f MinDuration) Match(r *Record) bool { return r.DurationSeconds >= f.Seconds }

func (f MinDuration) String() string { return fmt.Sprintf("duration>=%gs", f.Seconds) }

// HourBucket matches on the UTC hour of the start time.
type HourBucket struct {
	Bucket TimeOfDay
}

// InDayBucket reports whether a UTC hour belongs to the day bucket.
func InDayBucket(hour int) bool {
	return hour >= DayStartHour && hour < DayEndHour
}

func (f HourBucket) Match(r *Record) bool {
	day := InDayBucket(r.StartedAt.UTC().Hour())
	if f.Bucket == TimeOfDayNight {
		return !day
	}
	return day
}

func (f HourBucket) String() string { return "time of day " + string(f.Bucket) }

// MinConfidence matches when the nested max confidence is at least Value.
// A record without a confidence never matches.
type MinConfidence struct {
	Value float64
}

func (f MinConfidence) Match(r *Record) bool {
	return r.MaxConfidence != nil && *r.MaxConfidence >= f.Value
}

func (f MinConfidence) String() string { return fmt.Sprintf("max_confidence>=%g", f.Value) }

// BehaviorDescription matches events with a behavior whose description equals Text exactly.
type BehaviorDescription struct {
	Text string
}

func (f BehaviorDescription) Match(r *Record) bool {
	for _, b := range r.Behaviors {
		if b == f.Text {
			return true
		}
	}
	return false
}

func (f BehaviorDescription) String() string { return fmt.Sprintf("behavior=%q", f.Text) }
