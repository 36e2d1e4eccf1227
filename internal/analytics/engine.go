package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
)

// Report holds the three corpus statistics. Empty corpora yield empty, non-nil values.
type Report struct {
	ClassFrequency []LabelCount `json:"class_frequency"`
	DailyCounts    []DateCount  `json:"daily_counts"`
	CoOccurrence   Matrix       `json:"cooccurrence"`
}

// Engine computes Reports from a record store.
type Engine struct {
	store   datastore.CorpusReader
	metrics *metrics.SearchMetrics
	log     logger.Logger
}

// NewEngine creates an engine. m may be nil.
func NewEngine(store datastore.CorpusReader, m *metrics.SearchMetrics) *Engine {
	return &Engine{
		store:   store,
		metrics: m,
		log:     logger.Global().Module("analytics"),
	}
}

// Compute scans the full corpus and builds a Report. The detection scan and the
// start-time scan run concurrently.
func (e *Engine) Compute(ctx context.Context) (*Report, error) {
	start := time.Now()

	var (
		lists  [][]string
		starts []time.Time
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		detections, err := e.store.ListAllDetections(gctx)
		if err != nil {
			return err
		}
		lists = make([][]string, len(detections))
		for i := range detections {
			lists[i] = detections[i].EffectiveSpecies()
		}
		return nil
	})
	g.Go(func() error {
		var err error
		starts, err = e.store.ListEventStarts(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		e.metrics.RecordOperation(metrics.OpAnalytics, metrics.StatusError, time.Since(start).Seconds())
		e.log.WithContext(ctx).Error("analytics scan failed", logger.Error(err))
		return nil, err
	}

	report := &Report{
		ClassFrequency: ClassFrequency(lists),
		DailyCounts:    DailyCounts(starts),
		CoOccurrence:   CoOccurrence(lists),
	}

	elapsed := time.Since(start)
	e.metrics.RecordOperation(metrics.OpAnalytics, metrics.StatusSuccess, elapsed.Seconds())
	e.log.WithContext(ctx).Debug("analytics computed",
		logger.Int("detections", len(lists)),
		logger.Int("days", len(report.DailyCounts)),
		logger.Int("labels", len(report.CoOccurrence.Labels)),
		logger.Duration("elapsed", elapsed))
	return report, nil
}
