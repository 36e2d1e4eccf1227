// Package annotation applies operator edits to events: species overrides,
// behavior intervals, event deletion and the behavior-choice catalog.
//
// Every edit is a two-step write. The record store write is authoritative and
// transactional. The mirror update that follows is best-effort: when it fails the
// edit is still committed and reported as degraded, never rolled back.
package annotation

import (
	"context"
	"strings"
	"time"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/mirror"
	"github.com/Himson2006/Yolo-Gpu-2/internal/mqtt"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

const defaultMirrorTimeout = 5 * time.Second

// Store is the part of the record store the service writes to.
type Store interface {
	datastore.AnnotationWriter
	datastore.ChoiceCatalog
	DeleteEvent(ctx context.Context, id string) (*entities.Event, error)
}

// Outcome describes the secondary effects of a committed edit.
type Outcome struct {
	// Degraded is true when the mirror update failed.
	Degraded bool
	// MirrorErr is the mirror failure, categorized as a mirror error.
	MirrorErr error
}

// Config configures a Service. Only Store is required.
type Config struct {
	Store         Store
	Mirror        mirror.Mirror
	Notifier      *mqtt.Notifier
	Metrics       *metrics.AnnotationMetrics
	Logger        logger.Logger
	MirrorTimeout time.Duration
}

// Service applies annotations. It is safe for concurrent use; conflicting writes to
// one event are serialized by the store.
type Service struct {
	store         Store
	mirror        mirror.Mirror
	notifier      *mqtt.Notifier
	metrics       *metrics.AnnotationMetrics
	log           logger.Logger
	mirrorTimeout time.Duration
}

// NewService creates an annotation service.
func NewService(cfg *Config) *Service {
	s := &Service{
		store:         cfg.Store,
		mirror:        cfg.Mirror,
		notifier:      cfg.Notifier,
		metrics:       cfg.Metrics,
		log:           cfg.Logger,
		mirrorTimeout: cfg.MirrorTimeout,
	}
	if s.mirror == nil {
		s.mirror = mirror.Nop{}
	}
	if s.log == nil {
		s.log = logger.Global().Module("annotation")
	}
	if s.mirrorTimeout <= 0 {
		s.mirrorTimeout = defaultMirrorTimeout
	}
	return s
}

// NormalizeSpecies trims labels, drops blanks and removes case-insensitive
// duplicates, keeping the first spelling. The result is never nil.
func NormalizeSpecies(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := query.FoldLabel(l)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// OverrideSpecies replaces the override list of an event. An empty list is a valid
// "no species" override.
func (s *Service) OverrideSpecies(ctx context.Context, eventID string, labels []string) (Outcome, error) {
	labels = NormalizeSpecies(labels)
	log := s.log.WithContext(ctx).With(logger.String("event_id", eventID))

	if err := s.store.SetOverriddenSpecies(ctx, eventID, labels); err != nil {
		s.metrics.RecordOperation(metrics.OpOverrideSpecies, metrics.StatusError)
		log.Warn("species override failed", logger.Error(err))
		return Outcome{}, err
	}

	outcome := s.syncMirror(ctx, metrics.OpOverrideSpecies, eventID, func(ctx context.Context) error {
		return s.mirror.SetOverriddenSpecies(ctx, eventID, labels)
	})
	log.Info("species overridden", logger.Strings("species", labels), logger.Bool("degraded", outcome.Degraded))

	s.notifier.Annotated(ctx, mqtt.AnnotationMessage{
		EventID:   eventID,
		Operation: metrics.OpOverrideSpecies,
		Degraded:  outcome.Degraded,
		Species:   labels,
	})
	return outcome, nil
}

// AddBehavior records a behavior interval. The end time must be strictly greater
// than the start time.
func (s *Service) AddBehavior(ctx context.Context, eventID string, start, end float64, description string) (*entities.Behavior, Outcome, error) {
	description = strings.TrimSpace(description)
	log := s.log.WithContext(ctx).With(logger.String("event_id", eventID))

	if err := validateInterval(start, end, description); err != nil {
		s.metrics.RecordOperation(metrics.OpAddBehavior, metrics.StatusInvalid)
		return nil, Outcome{}, err
	}

	b, err := s.store.AddBehavior(ctx, eventID, start, end, description)
	if err != nil {
		s.metrics.RecordOperation(metrics.OpAddBehavior, metrics.StatusError)
		log.Warn("adding behavior failed", logger.Error(err))
		return nil, Outcome{}, err
	}

	entry := mirror.Behavior{StartTime: b.StartTime, EndTime: b.EndTime, Description: b.Description}
	outcome := s.syncMirror(ctx, metrics.OpAddBehavior, eventID, func(ctx context.Context) error {
		return s.mirror.AddBehavior(ctx, eventID, entry)
	})
	log.Info("behavior added",
		logger.String("description", b.Description),
		logger.Float64("start", b.StartTime),
		logger.Float64("end", b.EndTime),
		logger.Bool("degraded", outcome.Degraded))

	s.notifier.Annotated(ctx, mqtt.AnnotationMessage{
		EventID:   eventID,
		Operation: metrics.OpAddBehavior,
		Degraded:  outcome.Degraded,
		Behavior:  b.Description,
	})
	return b, outcome, nil
}

// DeleteBehavior removes a behavior and the matching mirror entry.
func (s *Service) DeleteBehavior(ctx context.Context, behaviorID uint) (*entities.Behavior, Outcome, error) {
	b, err := s.store.DeleteBehavior(ctx, behaviorID)
	if err != nil {
		s.metrics.RecordOperation(metrics.OpDeleteBehavior, metrics.StatusError)
		s.log.WithContext(ctx).Warn("deleting behavior failed", logger.Int64("behavior_id", int64(behaviorID)), logger.Error(err))
		return nil, Outcome{}, err
	}

	entry := mirror.Behavior{StartTime: b.StartTime, EndTime: b.EndTime, Description: b.Description}
	outcome := s.syncMirror(ctx, metrics.OpDeleteBehavior, b.EventID, func(ctx context.Context) error {
		return s.mirror.RemoveBehavior(ctx, b.EventID, entry)
	})
	s.log.WithContext(ctx).Info("behavior deleted",
		logger.String("event_id", b.EventID),
		logger.Int64("behavior_id", int64(behaviorID)),
		logger.Bool("degraded", outcome.Degraded))

	s.notifier.Annotated(ctx, mqtt.AnnotationMessage{
		EventID:   b.EventID,
		Operation: metrics.OpDeleteBehavior,
		Degraded:  outcome.Degraded,
		Behavior:  b.Description,
	})
	return b, outcome, nil
}

// DeleteEvent removes an event with its detection and behaviors. Mirror documents
// are left in place.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) (*entities.Event, error) {
	e, err := s.store.DeleteEvent(ctx, eventID)
	if err != nil {
		s.metrics.RecordOperation(metrics.OpDeleteEvent, metrics.StatusError)
		return nil, err
	}
	s.metrics.RecordOperation(metrics.OpDeleteEvent, metrics.StatusSuccess)
	s.log.WithContext(ctx).Info("event deleted", logger.String("event_id", eventID))

	msg := mqtt.EventMessage{EventID: e.ID, DeviceID: e.DeviceID, StartedAt: e.StartedAt}
	if e.Detection != nil {
		msg.Species = e.Detection.EffectiveSpecies()
	}
	s.notifier.EventDeleted(ctx, msg)
	return e, nil
}

// ListBehaviorChoices returns the behavior-choice catalog.
func (s *Service) ListBehaviorChoices(ctx context.Context) ([]entities.BehaviorChoice, error) {
	return s.store.ListBehaviorChoices(ctx)
}

// AddBehaviorChoice adds a catalog entry. Names are unique.
func (s *Service) AddBehaviorChoice(ctx context.Context, name string) (*entities.BehaviorChoice, error) {
	c, err := s.store.AddBehaviorChoice(ctx, name)
	if err != nil {
		status := metrics.StatusError
		if errors.IsValidation(err) {
			status = metrics.StatusInvalid
		}
		s.metrics.RecordOperation(metrics.OpAddChoice, status)
		return nil, err
	}
	s.metrics.RecordOperation(metrics.OpAddChoice, metrics.StatusSuccess)
	return c, nil
}

// syncMirror runs the mirror step of a committed edit and records the outcome.
func (s *Service) syncMirror(ctx context.Context, operation, eventID string, update func(context.Context) error) Outcome {
	mctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
	defer cancel()

	if err := update(mctx); err != nil {
		merr := errors.MirrorError(err, operation, eventID)
		s.metrics.RecordOperation(operation, metrics.StatusDegraded)
		s.metrics.RecordMirrorError(operation)
		s.log.WithContext(ctx).Warn("mirror update failed, edit kept",
			logger.String("operation", operation),
			logger.String("event_id", eventID),
			logger.String("mirror", s.mirror.Name()),
			logger.Error(err))
		return Outcome{Degraded: true, MirrorErr: merr}
	}
	s.metrics.RecordOperation(operation, metrics.StatusSuccess)
	return Outcome{}
}

func validateInterval(start, end float64, description string) error {
	if !(end > start) {
		return errors.Newf("end time %g must be greater than start time %g", end, start).
			Component("annotation").
			Category(errors.CategoryValidation).
			Context("field", "end_time").
			Build()
	}
	if description == "" {
		return errors.Newf("behavior description must not be empty").
			Component("annotation").
			Category(errors.CategoryValidation).
			Context("field", "description").
			Build()
	}
	return nil
}
