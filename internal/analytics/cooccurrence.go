package analytics

import (
	"sort"
	"strings"
)

// Matrix is a symmetric label-by-label co-occurrence count matrix.
// Counts[i][j] is the number of detections in which Labels[i] and Labels[j] both
// appear. The diagonal is always zero.
type Matrix struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"matrix"`
}

type pair struct{ a, b string }

// CoOccurrence counts unordered label pairs per detection. Each species list is
// deduplicated first, so a repeated label never pairs with itself. The axis holds
// only labels that occur in at least one pair, sorted.
func CoOccurrence(lists [][]string) Matrix {
	pairs := make(map[pair]int)
	axis := make(map[string]struct{})

	for _, list := range lists {
		labels := distinct(list)
		if len(labels) < 2 {
			continue
		}
		for i := 0; i < len(labels); i++ {
			for j := i + 1; j < len(labels); j++ {
				// labels is sorted, so (a, b) is already canonical
				pairs[pair{labels[i], labels[j]}]++
				axis[labels[i]] = struct{}{}
				axis[labels[j]] = struct{}{}
			}
		}
	}

	m := Matrix{Labels: make([]string, 0, len(axis))}
	for label := range axis {
		m.Labels = append(m.Labels, label)
	}
	sort.Strings(m.Labels)

	index := make(map[string]int, len(m.Labels))
	for i, label := range m.Labels {
		index[label] = i
	}
	m.Counts = make([][]int, len(m.Labels))
	for i := range m.Counts {
		m.Counts[i] = make([]int, len(m.Labels))
	}
	for p, n := range pairs {
		i, j := index[p.a], index[p.b]
		m.Counts[i][j] = n
		m.Counts[j][i] = n
	}
	return m
}

// Count returns the co-occurrence count of two labels, 0 when either is off the axis
// or a == b.
func (m Matrix) Count(a, b string) int {
	i, j := -1, -1
	for k, label := range m.Labels {
		if label == a {
			i = k
		}
		if label == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0
	}
	return m.Counts[i][j]
}

// distinct returns the trimmed, non-empty, deduplicated labels of list, sorted.
func distinct(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, label := range list {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
