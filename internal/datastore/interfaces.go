// Package datastore implements the camtrap record store on top of GORM.
//
// Store supports SQLite, MySQL and PostgreSQL. MemoryStore is a dependency-free
// implementation used for tests and small tools. Both evaluate the predicate
// vocabulary of the query package and return categorized errors from
// internal/errors: not-found, conflict, validation or database.
package datastore

import (
	"context"
	"time"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

// EventFinder selects and loads events.
type EventFinder interface {
	// FindEvents returns the ids of matching events in the given order.
	FindEvents(ctx context.Context, pred query.Predicate, order query.Order) ([]string, error)
	// CountMatches returns the number of events matching pred.
	CountMatches(ctx context.Context, pred query.Predicate) (int64, error)
	// GetEvents loads events with detection and behaviors, in the order of ids.
	// Unknown ids are skipped.
	GetEvents(ctx context.Context, ids []string) ([]entities.Event, error)
}

// EventReader reads single events and their parts.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*entities.Event, error)
	GetDetection(ctx context.Context, eventID string) (*entities.Detection, error)
	ListBehaviors(ctx context.Context, eventID string) ([]entities.Behavior, error)
}

// CorpusReader scans the full corpus for aggregation.
type CorpusReader interface {
	ListAllDetections(ctx context.Context) ([]entities.Detection, error)
	ListEventStarts(ctx context.Context) ([]time.Time, error)
}

// AnnotationWriter applies operator edits.
type AnnotationWriter interface {
	// SetOverriddenSpecies replaces the override list of an event's detection.
	SetOverriddenSpecies(ctx context.Context, eventID string, labels []string) error
	// AddBehavior stores a behavior and registers its description as a behavior choice.
	AddBehavior(ctx context.Context, eventID string, start, end float64, description string) (*entities.Behavior, error)
	// DeleteBehavior removes a behavior and returns it.
	DeleteBehavior(ctx context.Context, behaviorID uint) (*entities.Behavior, error)
}

// ChoiceCatalog manages behavior choices.
type ChoiceCatalog interface {
	ListBehaviorChoices(ctx context.Context) ([]entities.BehaviorChoice, error)
	AddBehaviorChoice(ctx context.Context, name string) (*entities.BehaviorChoice, error)
}

// EventWriter creates and deletes events.
type EventWriter interface {
	// SaveEvent inserts an event with its detection and behaviors in one transaction.
	SaveEvent(ctx context.Context, event *entities.Event) error
	EventExists(ctx context.Context, id string) (bool, error)
	// DeleteEvent removes an event with its detection and behaviors and returns it.
	DeleteEvent(ctx context.Context, id string) (*entities.Event, error)
}

// RecordStore is the complete record store contract.
type RecordStore interface {
	EventFinder
	EventReader
	CorpusReader
	AnnotationWriter
	ChoiceCatalog
	EventWriter
	Close() error
}

// Compile-time checks
var (
	_ RecordStore = (*Store)(nil)
	_ RecordStore = (*MemoryStore)(nil)
)

// recordOf flattens an event into the record form matched by query fragments.
func recordOf(e *entities.Event) query.Record {
	r := query.Record{
		EventID:         e.ID,
		DeviceID:        e.DeviceID,
		StartedAt:       e.StartedAt.UTC(),
		DurationSeconds: e.DurationSeconds,
	}
	if d := e.Detection; d != nil {
		r.Detected = d.ClassesDetected
		r.Overridden = d.ClassesOverridden
		r.HasOverride = d.HasOverride
		r.MaxCounts = d.MaxCountPerFrame
		r.MaxConfidence = d.MaxConfidence
	}
	for i := range e.Behaviors {
		r.Behaviors = append(r.Behaviors, e.Behaviors[i].Description)
	}
	return r
}
