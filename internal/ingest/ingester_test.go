package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/mqtt"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func document(id string, hour int, species ...string) string {
	classes, _ := json.Marshal(species)
	return fmt.Sprintf(`{"event_id":%q,"device_id":"cam-1","timestamp_start_utc":"2024-01-01T%02d:00:00","duration_seconds":10,"classes_detected":%s}`,
		id, hour, classes)
}

type countingClient struct {
	mu     sync.Mutex
	topics []string
}

func (c *countingClient) Connect(context.Context) error { return nil }
func (c *countingClient) IsConnected() bool             { return true }
func (c *countingClient) Disconnect()                   {}
func (c *countingClient) Publish(_ context.Context, topic string, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	return nil
}

func TestRunIngestsFolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := range 12 {
		writeFile(t, dir, fmt.Sprintf("ev%02d.json", i), document(fmt.Sprintf("ev%02d", i), i, "Deer"))
	}
	writeFile(t, dir, "ev00.mp4", "video")
	writeFile(t, dir, "broken.json", `{"event_id":`)
	writeFile(t, dir, "notes.txt", "ignored")

	store := datastore.NewMemoryStore()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewIngestMetrics(reg)
	require.NoError(t, err)
	client := &countingClient{}

	ing := New(store, WithWorkers(3), WithMetrics(m), WithNotifier(mqtt.NewNotifier(client, "camtrap")))
	summary, err := ing.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 13, summary.Scanned)
	assert.Equal(t, 12, summary.Ingested)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, client.topics, 12)

	e, err := store.GetEvent(context.Background(), "ev00")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ev00.mp4"), e.VideoPath)
	assert.Equal(t, filepath.Join(dir, "ev00.json"), e.DetectionPath)

	e, err = store.GetEvent(context.Background(), "ev01")
	require.NoError(t, err)
	assert.Empty(t, e.VideoPath)

	// a second run skips everything already stored
	summary, err = ing.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Ingested)
	assert.Equal(t, 12, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)

	expected := `
# HELP camtrap_ingest_documents_total Total number of detection documents processed by outcome
# TYPE camtrap_ingest_documents_total counter
camtrap_ingest_documents_total{status="failed"} 2
camtrap_ingest_documents_total{status="ingested"} 12
camtrap_ingest_documents_total{status="skipped"} 12
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "camtrap_ingest_documents_total"))
}

func TestRunRecordsDocumentPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "clip-001.json", document("evt-1", 21, "Deer"))
	writeFile(t, dir, "clip-001.mp4", "video")
	writeFile(t, dir, "clip-002.json", document("../evt-2", 22, "Fox"))

	store := datastore.NewMemoryStore()
	summary, err := New(store).Run(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Ingested)

	e, err := store.GetEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip-001.json"), e.DetectionPath)
	assert.Equal(t, filepath.Join(dir, "clip-001.mp4"), e.VideoPath, "videos are found by document name")

	e, err = store.GetEvent(context.Background(), "../evt-2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip-002.json"), e.DetectionPath)
	assert.Empty(t, e.VideoPath)
}

func TestRunEmptyFolder(t *testing.T) {
	t.Parallel()

	summary, err := New(datastore.NewMemoryStore()).Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Summary{Elapsed: summary.Elapsed}, summary)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := range 5 {
		writeFile(t, dir, fmt.Sprintf("ev%d.json", i), document(fmt.Sprintf("ev%d", i), i, "Fox"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(datastore.NewMemoryStore(), WithWorkers(1)).Run(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Ingested)
}

func TestRunStoreFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "ev1.json", document("ev1", 1, "Owl"))

	store := datastore.NewMemoryStore()
	store.FailWrites(fmt.Errorf("read-only database"))

	summary, err := New(store).Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}
