package query

import (
	"sort"
	"strings"
)

// Predicate is the AND of its fragments. The zero value matches everything.
type Predicate struct {
	Fragments []Fragment
}

// And returns a predicate combining the given fragments, skipping nil ones.
func And(fragments ...Fragment) Predicate {
	p := Predicate{}
	for _, f := range fragments {
		if f != nil {
			p.Fragments = append(p.Fragments, f)
		}
	}
	return p
}

// Match reports whether every fragment matches the record.
func (p Predicate) Match(r *Record) bool {
	for _, f := range p.Fragments {
		if !f.Match(r) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the predicate has no fragments.
func (p Predicate) IsEmpty() bool { return len(p.Fragments) == 0 }

func (p Predicate) String() string {
	if p.IsEmpty() {
		return "all events"
	}
	parts := make([]string, len(p.Fragments))
	for i, f := range p.Fragments {
		parts[i] = f.String()
	}
	return strings.Join(parts, " AND ")
}

// SortKey names an ordering of matched events.
type SortKey string

const (
	SortRecent   SortKey = "recent"
	SortOldest   SortKey = "oldest"
	SortLongest  SortKey = "longest"
	SortShortest SortKey = "shortest"
)

// Order is a total ordering over records. Ties on the sort key are broken by
// ascending event id so that pagination is deterministic.
type Order struct {
	Key SortKey
}

// Less reports whether a sorts before b.
func (o Order) Less(a, b *Record) bool {
	switch o.Key {
	case SortOldest:
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
	case SortLongest:
		if a.DurationSeconds != b.DurationSeconds {
			return a.DurationSeconds > b.DurationSeconds
		}
	case SortShortest:
		if a.DurationSeconds != b.DurationSeconds {
			return a.DurationSeconds < b.DurationSeconds
		}
	default:
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
	}
	return a.EventID < b.EventID
}

// Sort orders records in place.
func (o Order) Sort(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return o.Less(records[i], records[j])
	})
}
