package search

import (
	"context"
	"time"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
)

// Result is one page of a search.
type Result struct {
	Filter Filter
	Window Window
	Events []entities.Event
}

// Service runs searches against a record store. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	store    datastore.EventFinder
	metrics  *metrics.SearchMetrics
	log      logger.Logger
	pageSize int
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records search metrics.
func WithMetrics(m *metrics.SearchMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithPageSize overrides PageSize.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewService creates a search service over store.
func NewService(store datastore.EventFinder, opts ...Option) *Service {
	s := &Service{store: store, pageSize: PageSize}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("search")
	}
	return s
}

// Search validates raw inputs and returns the requested page.
func (s *Service) Search(ctx context.Context, raw RawParams) (*Result, error) {
	f, err := ParseFilter(raw)
	if err != nil {
		s.metrics.RecordOperation(metrics.OpSearch, metrics.StatusInvalid, 0)
		return nil, err
	}
	return s.Run(ctx, f)
}

// Run executes a validated filter and loads the events of the requested page.
func (s *Service) Run(ctx context.Context, f Filter) (*Result, error) {
	start := time.Now()
	log := s.log.WithContext(ctx)

	pred, order := Plan(f)
	ids, err := s.store.FindEvents(ctx, pred, order)
	if err != nil {
		s.metrics.RecordOperation(metrics.OpSearch, metrics.StatusError, time.Since(start).Seconds())
		log.Error("search failed", logger.String("predicate", pred.String()), logger.Error(err))
		return nil, err
	}

	w := Paginate(len(ids), f.Page, s.pageSize)
	events, err := s.store.GetEvents(ctx, Slice(w, ids))
	if err != nil {
		s.metrics.RecordOperation(metrics.OpSearch, metrics.StatusError, time.Since(start).Seconds())
		log.Error("loading search page failed", logger.Int("page", w.Page), logger.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	s.metrics.RecordOperation(metrics.OpSearch, metrics.StatusSuccess, elapsed.Seconds())
	s.metrics.ObserveResults(len(ids))
	log.Debug("search completed",
		logger.String("predicate", pred.String()),
		logger.String("sort", string(order.Key)),
		logger.Int("total", w.Total),
		logger.Int("page", w.Page),
		logger.Duration("elapsed", elapsed))

	return &Result{Filter: f, Window: w, Events: events}, nil
}

// MatchingIDs returns the ids of every event matching f, in f's order, without paging.
func (s *Service) MatchingIDs(ctx context.Context, f Filter) ([]string, error) {
	start := time.Now()
	pred, order := Plan(f)
	ids, err := s.store.FindEvents(ctx, pred, order)
	if err != nil {
		s.metrics.RecordOperation(metrics.OpVideos, metrics.StatusError, time.Since(start).Seconds())
		return nil, err
	}
	s.metrics.RecordOperation(metrics.OpVideos, metrics.StatusSuccess, time.Since(start).Seconds())
	return ids, nil
}
