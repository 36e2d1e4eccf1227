package datastore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

// Store is the GORM-backed RecordStore.
type Store struct {
	db      *gorm.DB
	backend string
	log     logger.Logger
}

// NewStore wraps an open, migrated database.
func NewStore(db *gorm.DB, backend string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Global().Module("datastore")
	}
	return &Store{db: db, backend: backend, log: log}
}

// DB returns the underlying GORM database.
func (s *Store) DB() *gorm.DB { return s.db }

// Backend returns the database type name.
func (s *Store) Backend() string { return s.backend }

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	return nil
}

// candidateRow carries the columns needed to evaluate residual fragments in Go.
type candidateRow struct {
	ID                string
	ClassesDetected   entities.SpeciesList
	ClassesOverridden entities.SpeciesList
	HasOverride       bool
	MaxCountPerFrame  entities.SpeciesCounts
}

// FindEvents pushes every fragment it can express in SQL down to the database and
// evaluates species and count fragments on the returned rows, keeping SQL order.
func (s *Store) FindEvents(ctx context.Context, pred query.Predicate, order query.Order) ([]string, error) {
	start := time.Now()

	q := s.db.WithContext(ctx).
		Table("events").
		Joins("JOIN detections ON detections.event_id = events.id")

	var residual []query.Fragment
	for _, f := range pred.Fragments {
		var pushed bool
		q, pushed = applyFragment(q, f)
		if !pushed {
			residual = append(residual, f)
		}
	}

	var rows []candidateRow
	err := q.Select("events.id AS id, " +
		"detections.classes_detected AS classes_detected, " +
		"detections.classes_overridden AS classes_overridden, " +
		"detections.has_override AS has_override, " +
		"detections.max_count_per_frame AS max_count_per_frame").
		Order(orderClause(order)).
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "find_events", "predicate", pred.String())
	}

	rest := query.Predicate{Fragments: residual}
	ids := make([]string, 0, len(rows))
	for i := range rows {
		if rest.IsEmpty() || rest.Match(rows[i].record()) {
			ids = append(ids, rows[i].ID)
		}
	}

	s.log.Trace("events found",
		logger.String("predicate", pred.String()),
		logger.Int("candidates", len(rows)),
		logger.Int("matches", len(ids)),
		logger.Duration("elapsed", time.Since(start)))
	return ids, nil
}

func (r *candidateRow) record() *query.Record {
	return &query.Record{
		EventID:     r.ID,
		Detected:    r.ClassesDetected,
		Overridden:  r.ClassesOverridden,
		HasOverride: r.HasOverride,
		MaxCounts:   r.MaxCountPerFrame,
	}
}

// applyFragment translates f into SQL. It returns false when f must be evaluated in Go.
func applyFragment(q *gorm.DB, f query.Fragment) (*gorm.DB, bool) {
	switch f := f.(type) {
	case query.Device:
		return q.Where("events.device_id = ?", f.ID), true
	case query.DateRange:
		if !f.From.IsZero() {
			q = q.Where("events.started_at >= ?", f.From.UTC())
		}
		if !f.To.IsZero() {
			q = q.Where("events.started_at < ?", f.To.UTC())
		}
		return q, true
	case query.MinDuration:
		return q.Where("events.duration_seconds >= ?", f.Seconds), true
	case query.HourBucket:
		if f.Bucket == query.TimeOfDayNight {
			return q.Where("(events.start_hour < ? OR events.start_hour >= ?)", query.DayStartHour, query.DayEndHour), true
		}
		return q.Where("events.start_hour >= ? AND events.start_hour < ?", query.DayStartHour, query.DayEndHour), true
	case query.MinConfidence:
		return q.Where("detections.max_confidence IS NOT NULL AND detections.max_confidence >= ?", f.Value), true
	case query.BehaviorDescription:
		return q.Where("EXISTS (SELECT 1 FROM behaviors WHERE behaviors.event_id = events.id AND behaviors.description = ?)", f.Text), true
	default:
		return q, false
	}
}

// orderClause returns the ORDER BY for a sort key, with id as the tie-break.
func orderClause(order query.Order) string {
	switch order.Key {
	case query.SortOldest:
		return "events.started_at ASC, events.id ASC"
	case query.SortLongest:
		return "events.duration_seconds DESC, events.id ASC"
	case query.SortShortest:
		return "events.duration_seconds ASC, events.id ASC"
	default:
		return "events.started_at DESC, events.id ASC"
	}
}

// CountMatches returns the number of events matching pred.
func (s *Store) CountMatches(ctx context.Context, pred query.Predicate) (int64, error) {
	ids, err := s.FindEvents(ctx, pred, query.Order{})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// preloaded returns a query that loads detection and ordered behaviors.
func (s *Store) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Detection").
		Preload("Behaviors", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC, id ASC")
		})
}

// GetEvent loads an event with its detection and behaviors.
func (s *Store) GetEvent(ctx context.Context, id string) (*entities.Event, error) {
	var event entities.Event
	if err := s.preloaded(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(ErrEventNotFound, "event", id)
		}
		return nil, dbError(err, "get_event", "event_id", id)
	}
	return &event, nil
}

// GetEvents loads events in the order of ids. Unknown ids are skipped.
func (s *Store) GetEvents(ctx context.Context, ids []string) ([]entities.Event, error) {
	if len(ids) == 0 {
		return []entities.Event{}, nil
	}

	var events []entities.Event
	if err := s.preloaded(ctx).Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, dbError(err, "get_events", "count", len(ids))
	}

	byID := make(map[string]int, len(events))
	for i := range events {
		byID[events[i].ID] = i
	}
	ordered := make([]entities.Event, 0, len(events))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			ordered = append(ordered, events[i])
		}
	}
	return ordered, nil
}

// GetDetection loads the detection of an event.
func (s *Store) GetDetection(ctx context.Context, eventID string) (*entities.Detection, error) {
	var det entities.Detection
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).First(&det).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(ErrDetectionNotFound, "detection", eventID)
		}
		return nil, dbError(err, "get_detection", "event_id", eventID)
	}
	return &det, nil
}

// ListBehaviors returns the behaviors of an event ordered by start time.
func (s *Store) ListBehaviors(ctx context.Context, eventID string) ([]entities.Behavior, error) {
	var behaviors []entities.Behavior
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("start_time ASC, id ASC").
		Find(&behaviors).Error
	if err != nil {
		return nil, dbError(err, "list_behaviors", "event_id", eventID)
	}
	return behaviors, nil
}

// ListAllDetections returns every detection.
func (s *Store) ListAllDetections(ctx context.Context) ([]entities.Detection, error) {
	var dets []entities.Detection
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&dets).Error; err != nil {
		return nil, dbError(err, "list_all_detections")
	}
	return dets, nil
}

// ListEventStarts returns the start time of every event.
func (s *Store) ListEventStarts(ctx context.Context) ([]time.Time, error) {
	var starts []time.Time
	err := s.db.WithContext(ctx).
		Model(&entities.Event{}).
		Order("started_at ASC").
		Pluck("started_at", &starts).Error
	if err != nil {
		return nil, dbError(err, "list_event_starts")
	}
	return starts, nil
}

// SaveEvent inserts an event with its detection and behaviors.
func (s *Store) SaveEvent(ctx context.Context, event *entities.Event) error {
	if event.Detection == nil {
		return validationError(errors.New("event has no detection"), "save_event")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		behaviors := event.Behaviors
		detection := event.Detection

		// Associations are written explicitly so that hooks run on each row.
		if err := tx.Omit(clause.Associations).Create(event).Error; err != nil {
			return err
		}

		detection.EventID = event.ID
		if err := tx.Create(detection).Error; err != nil {
			return err
		}

		for i := range behaviors {
			behaviors[i].EventID = event.ID
			if err := tx.Create(&behaviors[i]).Error; err != nil {
				return err
			}
			if err := registerChoice(tx, behaviors[i].Description); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateWriteError(err, "save_event", "event", event.ID)
	}
	return nil
}

// EventExists reports whether an event id is stored.
func (s *Store) EventExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&entities.Event{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, dbError(err, "event_exists", "event_id", id)
	}
	return count > 0, nil
}

// DeleteEvent removes an event, its detection and its behaviors in one transaction.
func (s *Store) DeleteEvent(ctx context.Context, id string) (*entities.Event, error) {
	var deleted entities.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError(ErrEventNotFound, "event", id)
			}
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&entities.Behavior{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&entities.Detection{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entities.Event{}).Error
	})
	if err != nil {
		return nil, translateWriteError(err, "delete_event", "event", id)
	}
	s.log.Info("event deleted", logger.String("event_id", id))
	return &deleted, nil
}

// SetOverriddenSpecies replaces the override list of an event's detection.
func (s *Store) SetOverriddenSpecies(ctx context.Context, eventID string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Detection{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFoundError(ErrEventNotFound, "event", eventID)
		}
		return tx.Model(&entities.Detection{}).
			Where("event_id = ?", eventID).
			Updates(map[string]any{
				"classes_overridden": entities.SpeciesList(labels),
				"has_override":       true,
			}).Error
	})
	if err != nil {
		return translateWriteError(err, "set_overridden_species", "detection", eventID)
	}
	return nil
}

// AddBehavior stores a behavior for an existing event and registers its description
// in the behavior-choice catalog.
func (s *Store) AddBehavior(ctx context.Context, eventID string, start, end float64, description string) (*entities.Behavior, error) {
	behavior := entities.Behavior{
		EventID:     eventID,
		StartTime:   start,
		EndTime:     end,
		Description: description,
	}
	if err := behavior.Validate(); err != nil {
		return nil, validationError(err, "add_behavior")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Event{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFoundError(ErrEventNotFound, "event", eventID)
		}
		if err := tx.Create(&behavior).Error; err != nil {
			return err
		}
		return registerChoice(tx, description)
	})
	if err != nil {
		return nil, translateWriteError(err, "add_behavior", "behavior", description)
	}
	return &behavior, nil
}

// registerChoice adds a description to the catalog unless it is already there.
func registerChoice(tx *gorm.DB, name string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&entities.BehaviorChoice{Name: name}).Error
}

// DeleteBehavior removes a behavior and returns the deleted row.
func (s *Store) DeleteBehavior(ctx context.Context, behaviorID uint) (*entities.Behavior, error) {
	var behavior entities.Behavior
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&behavior, behaviorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError(ErrBehaviorNotFound, "behavior", behaviorID)
			}
			return err
		}
		return tx.Delete(&entities.Behavior{}, behaviorID).Error
	})
	if err != nil {
		return nil, translateWriteError(err, "delete_behavior", "behavior", behaviorID)
	}
	return &behavior, nil
}

// ListBehaviorChoices returns the catalog ordered by name.
func (s *Store) ListBehaviorChoices(ctx context.Context) ([]entities.BehaviorChoice, error) {
	var choices []entities.BehaviorChoice
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&choices).Error; err != nil {
		return nil, dbError(err, "list_behavior_choices")
	}
	return choices, nil
}

// AddBehaviorChoice adds a catalog entry. A duplicate name is a conflict.
func (s *Store) AddBehaviorChoice(ctx context.Context, name string) (*entities.BehaviorChoice, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(errors.New("behavior choice name must not be empty"), "add_behavior_choice")
	}
	choice := entities.BehaviorChoice{Name: name}
	if err := s.db.WithContext(ctx).Create(&choice).Error; err != nil {
		return nil, translateWriteError(err, "add_behavior_choice", "behavior choice", name)
	}
	return &choice, nil
}
