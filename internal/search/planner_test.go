package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

func TestPlanEmptyFilter(t *testing.T) {
	t.Parallel()

	pred, order := Plan(Filter{})
	assert.True(t, pred.IsEmpty())
	assert.Equal(t, query.SortRecent, order.Key)
}

func TestPlanFragments(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{
		Species:       []string{"Deer"},
		Match:         "all",
		MinCount:      "2",
		MinDuration:   "5",
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-02",
		DeviceID:      "cam-1",
		TimeOfDay:     "night",
		MinConfidence: "0.6",
		Behavior:      "grazing",
		Sort:          "shortest",
	})
	require.NoError(t, err)

	pred, order := Plan(f)
	assert.Equal(t, query.SortShortest, order.Key)

	two := 2
	assert.Equal(t, []query.Fragment{
		query.Species{Labels: []string{"deer"}, Mode: query.MatchAll, MinCount: &two},
		query.DateRange{
			From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
		query.Device{ID: "cam-1"},
		query.MinDuration{Seconds: 5},
		query.HourBucket{Bucket: query.TimeOfDayNight},
		query.MinConfidence{Value: 0.6},
		query.BehaviorDescription{Text: "grazing"},
	}, pred.Fragments)
}

func TestPlanMinCountWithoutSpecies(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{MinCount: "3"})
	require.NoError(t, err)

	assert.True(t, f.SearchPerformed)

	pred, _ := Plan(f)
	assert.True(t, pred.IsEmpty(), "count without species does not restrict results")
}

func TestPlanBlankSpeciesNames(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{Species: []string{" , "}, MinCount: "1"})
	require.NoError(t, err)
	assert.Empty(t, f.Species)
	assert.True(t, f.SpeciesGiven)

	pred, _ := Plan(f)
	one := 1
	require.Equal(t, []query.Fragment{query.Species{Mode: query.MatchAny, MinCount: &one}}, pred.Fragments)
	assert.False(t, pred.Match(&query.Record{Detected: []string{"Deer"}, MaxCounts: map[string]int{"Deer": 1}}))
}

func TestPlanOpenDateRange(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{StartDate: "2024-02-01"})
	require.NoError(t, err)

	pred, _ := Plan(f)
	require.Len(t, pred.Fragments, 1)
	dr, ok := pred.Fragments[0].(query.DateRange)
	require.True(t, ok)
	assert.True(t, dr.To.IsZero())
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), dr.From)
}
