package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func record(id string, detected ...string) *Record {
	return &Record{
		EventID:   id,
		StartedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Detected:  detected,
		MaxCounts: map[string]int{},
	}
}

func TestEffectiveSpecies(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Deer"}, EffectiveSpecies([]string{"Deer"}, nil, false))
	assert.Equal(t, []string{"Fox"}, EffectiveSpecies([]string{"Deer"}, []string{"Fox"}, true))
	assert.Empty(t, EffectiveSpecies([]string{"Deer"}, nil, true))
	assert.NotNil(t, EffectiveSpecies([]string{"Deer"}, nil, true))
}

func TestSpeciesMatch(t *testing.T) {
	t.Parallel()

	deerFox := record("a", "Deer", "Fox")
	deerFox.MaxCounts = map[string]int{"Deer": 3, "Fox": 1}
	deer := record("b", "deer")
	deer.MaxCounts = map[string]int{"deer": 1}
	emptied := record("c", "Deer")
	emptied.HasOverride = true
	overridden := record("d", "Deer")
	overridden.HasOverride = true
	overridden.Overridden = []string{"Owl"}

	tests := []struct {
		name     string
		fragment Species
		rec      *Record
		want     bool
	}{
		{"any hit", Species{Labels: []string{"fox", "owl"}, Mode: MatchAny}, deerFox, true},
		{"any miss", Species{Labels: []string{"owl"}, Mode: MatchAny}, deerFox, false},
		{"any case insensitive", Species{Labels: []string{"deer"}, Mode: MatchAny}, deer, true},
		{"all hit", Species{Labels: []string{"deer", "fox"}, Mode: MatchAll}, deerFox, true},
		{"all miss", Species{Labels: []string{"deer", "fox"}, Mode: MatchAll}, deer, false},
		{"empty override excludes", Species{Labels: []string{"deer"}, Mode: MatchAny}, emptied, false},
		{"override replaces detected", Species{Labels: []string{"deer"}, Mode: MatchAny}, overridden, false},
		{"override label matches", Species{Labels: []string{"owl"}, Mode: MatchAny}, overridden, true},
		{"any count per species", Species{Labels: []string{"fox", "deer"}, Mode: MatchAny, MinCount: intPtr(2)}, deerFox, true},
		{"any count not met", Species{Labels: []string{"fox"}, Mode: MatchAny, MinCount: intPtr(2)}, deerFox, false},
		{"all count every species", Species{Labels: []string{"fox", "deer"}, Mode: MatchAll, MinCount: intPtr(2)}, deerFox, false},
		{"missing count never matches", Species{Labels: []string{"owl"}, Mode: MatchAny, MinCount: intPtr(0)}, overridden, false},
		{"no labels any", Species{Mode: MatchAny}, deerFox, false},
		{"no labels all", Species{Mode: MatchAll}, deerFox, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.fragment.Match(tt.rec))
		})
	}
}

func TestDateRangeBounds(t *testing.T) {
	t.Parallel()

	f := DateRange{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	at := func(ts time.Time) *Record {
		r := record("x")
		r.StartedAt = ts
		return r
	}

	assert.True(t, f.Match(at(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	assert.True(t, f.Match(at(time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC))))
	assert.False(t, f.Match(at(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))))
	assert.False(t, f.Match(at(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC))))
	assert.True(t, DateRange{}.Match(at(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))))
}

func TestHourBucket(t *testing.T) {
	t.Parallel()

	for hour := 0; hour < 24; hour++ {
		r := record("x")
		r.StartedAt = time.Date(2024, 5, 5, hour, 30, 0, 0, time.UTC)

		day := HourBucket{Bucket: TimeOfDayDay}.Match(r)
		night := HourBucket{Bucket: TimeOfDayNight}.Match(r)

		assert.NotEqual(t, day, night, "hour %d must be in exactly one bucket", hour)
		assert.Equal(t, hour >= 6 && hour < 18, day, "hour %d", hour)
	}
}

func TestScalarFragments(t *testing.T) {
	t.Parallel()

	r := record("x", "Deer")
	r.DeviceID = "cam-1"
	r.DurationSeconds = 12.5
	r.MaxConfidence = floatPtr(0.8)
	r.Behaviors = []string{"grazing", "running"}

	assert.True(t, Device{ID: "cam-1"}.Match(r))
	assert.False(t, Device{ID: "cam-2"}.Match(r))
	assert.True(t, MinDuration{Seconds: 12.5}.Match(r))
	assert.False(t, MinDuration{Seconds: 13}.Match(r))
	assert.True(t, MinConfidence{Value: 0.8}.Match(r))
	assert.False(t, MinConfidence{Value: 0.81}.Match(r))
	assert.True(t, BehaviorDescription{Text: "running"}.Match(r))
	assert.False(t, BehaviorDescription{Text: "Running"}.Match(r))

	r.MaxConfidence = nil
	assert.False(t, MinConfidence{Value: 0}.Match(r))
}

func TestPredicateIsConjunction(t *testing.T) {
	t.Parallel()

	r := record("x", "Deer")
	r.DeviceID = "cam-1"

	assert.True(t, Predicate{}.Match(r))
	assert.True(t, And(Device{ID: "cam-1"}, nil, Species{Labels: []string{"deer"}}).Match(r))
	assert.False(t, And(Device{ID: "cam-1"}, Species{Labels: []string{"fox"}}).Match(r))
	assert.Len(t, And(nil, nil).Fragments, 0)
	assert.Equal(t, `device="cam-1" AND species any [deer]`,
		And(Device{ID: "cam-1"}, Species{Labels: []string{"deer"}, Mode: MatchAny}).String())
}

func TestOrderTieBreak(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, offset time.Duration, dur float64) *Record {
		return &Record{EventID: id, StartedAt: base.Add(offset), DurationSeconds: dur}
	}

	ids := func(rs []*Record) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.EventID
		}
		return out
	}

	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortRecent, []string{"c", "a", "b"}},
		{SortOldest, []string{"a", "b", "c"}},
		{SortLongest, []string{"b", "c", "a"}},
		{SortShortest, []string{"a", "b", "c"}},
		{"", []string{"c", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			t.Parallel()
			rs := []*Record{mk("c", time.Hour, 5), mk("b", 0, 5), mk("a", 0, 1)}
			Order{Key: tt.key}.Sort(rs)
			assert.Equal(t, tt.want, ids(rs))
		})
	}
}
