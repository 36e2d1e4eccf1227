// Package analytics computes aggregate statistics over the full detection corpus:
// class frequency, events per day and pairwise class co-occurrence.
//
// The functions are pure and operate on effective species lists. Engine loads the
// corpus from a record store and builds a Report.
package analytics

import (
	"sort"
	"strings"
	"time"
)

// LabelCount is one entry of a class-frequency distribution.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ClassFrequency flattens the species lists into one multiset and counts each label.
// Entries are ordered by count descending, then label.
func ClassFrequency(lists [][]string) []LabelCount {
	counts := make(map[string]int)
	for _, list := range lists {
		for _, label := range list {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			counts[label]++
		}
	}

	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// DateCount is the number of events that started on one UTC calendar date.
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// DailyCounts groups start times by UTC date. Only dates with events appear; missing
// days are not filled.
func DailyCounts(starts []time.Time) []DateCount {
	counts := make(map[string]int)
	for _, t := range starts {
		counts[t.UTC().Format(time.DateOnly)]++
	}

	out := make([]DateCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, DateCount{Date: date, Count: n})
	}
	// ISO dates sort chronologically as strings
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
