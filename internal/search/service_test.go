package search

import (
	"context"
	"fmt"
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
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func event(id, device string, start time.Time, duration float64, species ...string) *entities.Event {
	counts := make(map[string]int, len(species))
	for _, s := range species {
		counts[s] = 1
	}
	return &entities.Event{
		ID:              id,
		DeviceID:        device,
		StartedAt:       start,
		EndedAt:         start.Add(time.Duration(duration) * time.Second),
		DurationSeconds: duration,
		Detection: &entities.Detection{
			Payload:          entities.RawDocument(`{"event_summary":{"max_confidence":0.8}}`),
			ClassesDetected:  species,
			MaxCountPerFrame: counts,
		},
	}
}

// corpus stores n events one hour apart, alternating Deer and Fox.
func corpus(t *testing.T, n int) *datastore.MemoryStore {
	t.Helper()
	store := datastore.NewMemoryStore()
	for i := range n {
		species := "Deer"
		if i%2 == 1 {
			species = "Fox"
		}
		id := fmt.Sprintf("ev-%03d", i)
		require.NoError(t, store.SaveEvent(context.Background(), event(id, "cam-1", base.Add(time.Duration(i)*time.Hour), float64(i), species)))
	}
	return store
}

func resultIDs(r *Result) []string {
	ids := make([]string, len(r.Events))
	for i := range r.Events {
		ids[i] = r.Events[i].ID
	}
	return ids
}

func TestSearchPaginates(t *testing.T) {
	t.Parallel()

	svc := NewService(corpus(t, 65))
	ctx := context.Background()

	first, err := svc.Search(ctx, RawParams{})
	require.NoError(t, err)
	assert.Equal(t, 65, first.Window.Total)
	assert.Equal(t, 3, first.Window.Pages)
	require.Len(t, first.Events, PageSize)
	assert.Equal(t, "ev-064", first.Events[0].ID, "newest first by default")
	assert.False(t, first.Filter.SearchPerformed)

	last, err := svc.Search(ctx, RawParams{Page: "3"})
	require.NoError(t, err)
	require.Len(t, last.Events, 5)
	assert.Equal(t, "ev-000", last.Events[4].ID)

	beyond, err := svc.Search(ctx, RawParams{Page: "9999"})
	require.NoError(t, err)
	assert.Empty(t, beyond.Events)
	assert.Equal(t, 65, beyond.Window.Total)
}

func TestSearchFiltersAndSorts(t *testing.T) {
	t.Parallel()

	svc := NewService(corpus(t, 10), WithPageSize(4))

	r, err := svc.Search(context.Background(), RawParams{Species: []string{"fox"}, Sort: "oldest"})
	require.NoError(t, err)
	assert.True(t, r.Filter.SearchPerformed)
	assert.Equal(t, 5, r.Window.Total)
	assert.Equal(t, 2, r.Window.Pages)
	assert.Equal(t, []string{"ev-001", "ev-003", "ev-005", "ev-007"}, resultIDs(r))

	r, err = svc.Search(context.Background(), RawParams{MinDuration: "7", Sort: "shortest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ev-007", "ev-008", "ev-009"}, resultIDs(r))
}

func TestSearchEmptyResult(t *testing.T) {
	t.Parallel()

	svc := NewService(corpus(t, 3))
	r, err := svc.Search(context.Background(), RawParams{DeviceID: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, r.Events)
	assert.Equal(t, 0, r.Window.Pages)
	assert.Equal(t, 1, r.Window.Page)
}

func TestSearchCountWithoutSpeciesKeepsAllEvents(t *testing.T) {
	t.Parallel()

	svc := NewService(corpus(t, 3))
	r, err := svc.Search(context.Background(), RawParams{MinCount: "5"})
	require.NoError(t, err)
	assert.True(t, r.Filter.SearchPerformed)
	assert.Equal(t, 3, r.Window.Total, "every event has a count of 1, yet none is excluded")
}

func TestSearchBlankSpeciesNamesMatchNothing(t *testing.T) {
	t.Parallel()

	svc := NewService(corpus(t, 3))
	r, err := svc.Search(context.Background(), RawParams{Species: []string{" , "}})
	require.NoError(t, err)
	assert.True(t, r.Filter.SearchPerformed)
	assert.Empty(t, r.Events)
	assert.Equal(t, 0, r.Window.Total)
}

func TestSearchInvalidInput(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewSearchMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	svc := NewService(datastore.NewMemoryStore(), WithMetrics(m))

	_, err = svc.Search(context.Background(), RawParams{MinCount: "many"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 1, testutil.CollectAndCount(m, "camtrap_search_operations_total"))
}

type failingFinder struct{ err error }

func (f failingFinder) FindEvents(context.Context, query.Predicate, query.Order) ([]string, error) {
	return nil, f.err
}

func (f failingFinder) CountMatches(context.Context, query.Predicate) (int64, error) {
	return 0, f.err
}

func (f failingFinder) GetEvents(context.Context, []string) ([]entities.Event, error) {
	return nil, f.err
}

func TestSearchStoreFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.StoreError(errors.NewStd("disk gone"), "find_events")
	svc := NewService(failingFinder{err: storeErr})

	_, err := svc.Search(context.Background(), RawParams{})
	require.Error(t, err)
	assert.True(t, errors.IsStore(err))

	_, err = svc.MatchingIDs(context.Background(), Filter{})
	require.ErrorIs(t, err, storeErr)
}

func TestMatchingIDsIgnoresPaging(t *testing.T) {
	t.Parallel()

	svc := NewService(corpus(t, 40))
	f, err := ParseFilter(RawParams{Species: []string{"Deer"}, Page: "2", Sort: "oldest"})
	require.NoError(t, err)

	ids, err := svc.MatchingIDs(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, ids, 20)
	assert.Equal(t, "ev-000", ids[0])
	assert.Equal(t, "ev-038", ids[19])
}
