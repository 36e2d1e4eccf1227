package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

func TestParseFilterDefaults(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{})
	require.NoError(t, err)

	assert.Equal(t, query.MatchAny, f.Match)
	assert.Equal(t, query.SortRecent, f.Sort)
	assert.Equal(t, 1, f.Page)
	assert.False(t, f.SearchPerformed)
	assert.Empty(t, f.Species)
	assert.Nil(t, f.MinCount)
	assert.True(t, f.StartDate.IsZero())
}

func TestParseFilterNormalizesSpecies(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{Species: []string{" Deer, fox ", "DEER", ",", "Red Fox"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"deer", "fox", "red fox"}, f.Species)
	assert.True(t, f.SearchPerformed)
}

func TestParseFilterDates(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{StartDate: "2024-01-01", EndDate: "2024-01-05"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.StartDate)
	assert.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), f.EndDate, "calendar end date covers the whole day")

	f, err = ParseFilter(RawParams{EndDate: "2024-01-05T12:30:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 12, 30, 0, 0, time.UTC), f.EndDate, "timestamps are used as-is")

	f, err = ParseFilter(RawParams{StartDate: "2024-01-05T12:30:00+02:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC), f.StartDate)
}

func TestParseFilterSearchPerformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  RawParams
		want bool
	}{
		{"sort only", RawParams{Sort: "oldest"}, false},
		{"match and page only", RawParams{Match: "all", Page: "3"}, false},
		{"blank values", RawParams{DeviceID: "  ", Species: []string{""}}, false},
		{"blank species names", RawParams{Species: []string{" , "}}, true},
		{"device", RawParams{DeviceID: "cam-1"}, true},
		{"min count", RawParams{MinCount: "2"}, true},
		{"min duration", RawParams{MinDuration: "0"}, true},
		{"end date", RawParams{EndDate: "2024-01-01"}, true},
		{"time of day", RawParams{TimeOfDay: "night"}, true},
		{"confidence", RawParams{MinConfidence: "0.5"}, true},
		{"behavior", RawParams{Behavior: "grazing"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := ParseFilter(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.SearchPerformed)
		})
	}
}

func TestParseFilterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   RawParams
		field string
	}{
		{"bad start date", RawParams{StartDate: "01/02/2024"}, "start_date"},
		{"bad end date", RawParams{EndDate: "tomorrow"}, "end_date"},
		{"non numeric count", RawParams{MinCount: "two"}, "min_count"},
		{"fractional count", RawParams{MinCount: "1.5"}, "min_count"},
		{"negative count", RawParams{MinCount: "-1"}, "min_count"},
		{"non numeric duration", RawParams{MinDuration: "long"}, "min_duration"},
		{"nan confidence", RawParams{MinConfidence: "NaN"}, "min_confidence"},
		{"negative confidence", RawParams{MinConfidence: "-0.1"}, "min_confidence"},
		{"unknown match", RawParams{Match: "some"}, "match"},
		{"unknown sort", RawParams{Sort: "random"}, "sort"},
		{"unknown time of day", RawParams{TimeOfDay: "dusk"}, "time_of_day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseFilter(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))

			var enhanced *errors.EnhancedError
			require.ErrorAs(t, err, &enhanced)
			assert.Equal(t, tt.field, enhanced.GetContext()["field"])
		})
	}
}

func TestParseFilterEnumsAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	f, err := ParseFilter(RawParams{Match: "ALL", Sort: "Longest", TimeOfDay: "Day"})
	require.NoError(t, err)
	assert.Equal(t, query.MatchAll, f.Match)
	assert.Equal(t, query.SortLongest, f.Sort)
	assert.Equal(t, query.TimeOfDayDay, f.TimeOfDay)
}

func TestParseFilterPage(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]int{"": 1, "0": 1, "-4": 1, "abc": 1, "7": 7, " 2 ": 2} {
		f, err := ParseFilter(RawParams{Page: raw})
		require.NoError(t, err)
		assert.Equal(t, want, f.Page, "page %q", raw)
	}
}
