package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
)

func TestClassFrequency(t *testing.T) {
	t.Parallel()

	got := ClassFrequency([][]string{{"Deer"}, {"Deer", "Fox"}})
	assert.Equal(t, []LabelCount{{"Deer", 2}, {"Fox", 1}}, got)

	assert.Empty(t, ClassFrequency(nil))
	assert.NotNil(t, ClassFrequency(nil))
}

func TestClassFrequencyCountsRepeats(t *testing.T) {
	t.Parallel()

	got := ClassFrequency([][]string{{"Owl", "Owl", " "}, {"Badger"}})
	assert.Equal(t, []LabelCount{{"Owl", 2}, {"Badger", 1}}, got)
}

func TestDailyCounts(t *testing.T) {
	t.Parallel()

	starts := []time.Time{
		time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		// 01:30 in UTC+2 is still March 4th in UTC
		time.Date(2024, 3, 5, 1, 30, 0, 0, time.FixedZone("CEST", 2*3600)),
	}

	assert.Equal(t, []DateCount{
		{"2024-03-01", 1},
		{"2024-03-02", 2},
		{"2024-03-04", 1},
		{"2024-03-05", 1},
	}, DailyCounts(starts))

	assert.Empty(t, DailyCounts(nil))
}

func TestCoOccurrence(t *testing.T) {
	t.Parallel()

	m := CoOccurrence([][]string{{"Deer", "Fox"}, {"Deer", "Fox", "Owl"}})

	assert.Equal(t, []string{"Deer", "Fox", "Owl"}, m.Labels)
	assert.Equal(t, 2, m.Count("Deer", "Fox"))
	assert.Equal(t, 1, m.Count("Deer", "Owl"))
	assert.Equal(t, 1, m.Count("Fox", "Owl"))
	assert.Equal(t, [][]int{
		{0, 2, 1},
		{2, 0, 1},
		{1, 1, 0},
	}, m.Counts)
}

func TestCoOccurrenceAxisExcludesSolitaryLabels(t *testing.T) {
	t.Parallel()

	m := CoOccurrence([][]string{{"Badger"}, {"Deer", "Deer"}, {"Fox", "Owl", "Fox"}})

	assert.Equal(t, []string{"Fox", "Owl"}, m.Labels)
	assert.Equal(t, 1, m.Count("Owl", "Fox"))
	assert.Zero(t, m.Count("Fox", "Fox"))
	assert.Zero(t, m.Count("Deer", "Fox"))
}

func TestCoOccurrenceIsSymmetric(t *testing.T) {
	t.Parallel()

	lists := [][]string{
		{"A", "B", "C", "D"},
		{"B", "D"},
		{"C", "A", "A"},
		{"E"},
		{"D", "E", "B"},
		{},
	}
	m := CoOccurrence(lists)
	require.Len(t, m.Counts, len(m.Labels))
	for i := range m.Counts {
		require.Len(t, m.Counts[i], len(m.Labels))
		assert.Zero(t, m.Counts[i][i])
		for j := range m.Counts[i] {
			assert.Equal(t, m.Counts[i][j], m.Counts[j][i])
		}
	}
	assert.Equal(t, 3, m.Count("B", "D"))
}

func TestCoOccurrenceEmpty(t *testing.T) {
	t.Parallel()

	m := CoOccurrence([][]string{{"Deer"}, {}})
	assert.NotNil(t, m.Labels)
	assert.NotNil(t, m.Counts)
	assert.Empty(t, m.Labels)
	assert.Empty(t, m.Counts)
}

func saveEvent(t *testing.T, store *datastore.MemoryStore, id string, start time.Time, species ...string) {
	t.Helper()
	require.NoError(t, store.SaveEvent(context.Background(), &entities.Event{
		ID:        id,
		DeviceID:  "cam-1",
		StartedAt: start,
		Detection: &entities.Detection{ClassesDetected: species},
	}))
}

func TestEngineUsesEffectiveSpecies(t *testing.T) {
	t.Parallel()

	store := datastore.NewMemoryStore()
	day := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	saveEvent(t, store, "e1", day, "Deer", "Fox")
	saveEvent(t, store, "e2", day.Add(time.Hour), "Deer")
	saveEvent(t, store, "e3", day.Add(48*time.Hour), "Owl")
	require.NoError(t, store.SetOverriddenSpecies(context.Background(), "e3", []string{"Fox", "Owl"}))

	m, err := metrics.NewSearchMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	report, err := NewEngine(store, m).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []LabelCount{{"Deer", 2}, {"Fox", 2}, {"Owl", 1}}, report.ClassFrequency)
	assert.Equal(t, []DateCount{{"2024-01-01", 2}, {"2024-01-03", 1}}, report.DailyCounts)
	assert.Equal(t, 1, report.CoOccurrence.Count("Deer", "Fox"))
	assert.Equal(t, 1, report.CoOccurrence.Count("Fox", "Owl"))
	assert.Equal(t, 1, testutil.CollectAndCount(m, "camtrap_search_operations_total"))
}

func TestEngineEmptyCorpus(t *testing.T) {
	t.Parallel()

	report, err := NewEngine(datastore.NewMemoryStore(), nil).Compute(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report.ClassFrequency)
	assert.NotNil(t, report.DailyCounts)
	assert.Empty(t, report.CoOccurrence.Labels)
}

type brokenCorpus struct{}

func (brokenCorpus) ListAllDetections(context.Context) ([]entities.Detection, error) {
	return nil, errors.StoreError(errors.NewStd("connection reset"), "list_all_detections")
}

func (brokenCorpus) ListEventStarts(context.Context) ([]time.Time, error) {
	return []time.Time{}, nil
}

func TestEngineStoreFailure(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(brokenCorpus{}, nil).Compute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsStore(err))
}
