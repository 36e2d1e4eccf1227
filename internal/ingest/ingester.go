package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/mqtt"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
)

// Document outcomes, also used as metric status labels.
const (
	StatusIngested = "ingested"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

const defaultWorkers = 4

// Summary counts the documents of one run.
type Summary struct {
	Scanned  int
	Ingested int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

// Ingester loads <id>.json documents from a folder. A document whose event id is
// already stored is skipped, so runs are idempotent.
type Ingester struct {
	store    datastore.EventWriter
	notifier *mqtt.Notifier
	metrics  *metrics.IngestMetrics
	log      logger.Logger
	workers  int
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithWorkers bounds the number of documents processed concurrently.
func WithWorkers(n int) Option {
	return func(i *Ingester) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithNotifier publishes a notification per ingested event.
func WithNotifier(n *mqtt.Notifier) Option {
	return func(i *Ingester) { i.notifier = n }
}

// WithMetrics records ingest metrics.
func WithMetrics(m *metrics.IngestMetrics) Option {
	return func(i *Ingester) { i.metrics = m }
}

// New creates an ingester writing to store.
func New(store datastore.EventWriter, opts ...Option) *Ingester {
	i := &Ingester{
		store:   store,
		log:     logger.Global().Module("ingest"),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run ingests every *.json document in dir. Failures of single documents are
// logged and counted; Run only fails when the folder cannot be listed or ctx ends.
func (i *Ingester) Run(ctx context.Context, dir string) (Summary, error) {
	start := time.Now()

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return Summary{}, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("folder", dir).
			Build()
	}
	sort.Strings(paths)

	var ingested, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch i.ingestFile(gctx, path) {
			case StatusIngested:
				ingested.Add(1)
			case StatusSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	summary := Summary{
		Scanned:  len(paths),
		Ingested: int(ingested.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
		Elapsed:  time.Since(start),
	}
	i.metrics.ObserveRun(summary.Elapsed.Seconds())

	if waitErr == nil {
		waitErr = ctx.Err()
	}
	if waitErr != nil {
		i.log.Warn("ingest interrupted", logger.String("folder", dir), logger.Error(waitErr))
		return summary, waitErr
	}

	i.log.Info("ingest completed",
		logger.String("folder", dir),
		logger.Int("scanned", summary.Scanned),
		logger.Int("ingested", summary.Ingested),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
		logger.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// ingestFile stores one document and returns its status.
func (i *Ingester) ingestFile(ctx context.Context, path string) string {
	status, err := i.ingestOne(ctx, path)
	i.metrics.RecordDocument(status)
	if err != nil {
		i.log.Warn("document not ingested",
			logger.String("path", path),
			logger.String("status", status),
			logger.Error(err))
	}
	return status
}

func (i *Ingester) ingestOne(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StatusFailed, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parsed, err := ParseDocument(data, stem)
	if err != nil {
		return StatusFailed, err
	}
	event := parsed.Event

	exists, err := i.store.EventExists(ctx, event.ID)
	if err != nil {
		return StatusFailed, err
	}
	if exists {
		return StatusSkipped, nil
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	event.DetectionPath = path
	event.VideoPath = findVideo(filepath.Dir(path), stem, event.ID)

	if err := i.store.SaveEvent(ctx, event); err != nil {
		// another run stored the same id first
		if errors.IsConflict(err) {
			return StatusSkipped, nil
		}
		return StatusFailed, err
	}

	if parsed.Dropped > 0 {
		i.log.Warn("dropped invalid behavior entries",
			logger.String("event_id", event.ID),
			logger.Int("dropped", parsed.Dropped))
	}
	i.notifier.EventIngested(ctx, mqtt.EventMessage{
		EventID:   event.ID,
		DeviceID:  event.DeviceID,
		StartedAt: event.StartedAt,
		Species:   event.Detection.EffectiveSpecies(),
	})
	return StatusIngested, nil
}

// findVideo returns the video next to a document, named after the document or
// after the last element of the event id, or "".
func findVideo(dir, stem, eventID string) string {
	for _, name := range []string{stem, filepath.Base(eventID)} {
		if name == "" || name == "." || name == ".." {
			continue
		}
		if video := filepath.Join(dir, name+".mp4"); fileExists(video) {
			return video
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
