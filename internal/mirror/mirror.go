// Package mirror keeps external per-event documents in step with operator edits.
//
// A mirror is best-effort and secondary: callers commit the primary store change
// first and report mirror failures without undoing it.
package mirror

import (
	"context"
	"math"
	"strings"

	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
)

// ErrDocumentMissing is returned when an event has no mirror document.
var ErrDocumentMissing = errors.NewStd("mirror document not found")

// Behavior is a behavior entry of a mirror document. Entries are identified by
// start time and description.
type Behavior struct {
	StartTime   float64 `json:"start_time" bson:"start_time"`
	EndTime     float64 `json:"end_time" bson:"end_time"`
	Description string  `json:"description" bson:"description"`
}

// Same reports whether b and o identify the same entry.
func (b Behavior) Same(o Behavior) bool {
	return b.Description == o.Description && math.Abs(b.StartTime-o.StartTime) < 1e-9
}

// Mirror updates the external document of an event.
type Mirror interface {
	// SetOverriddenSpecies stores the override list under classes_overridden.
	SetOverriddenSpecies(ctx context.Context, eventID string, labels []string) error
	// AddBehavior appends an entry to the behaviors array.
	AddBehavior(ctx context.Context, eventID string, b Behavior) error
	// RemoveBehavior removes every entry identified like b.
	RemoveBehavior(ctx context.Context, eventID string, b Behavior) error
	// Name identifies the backend in logs and metrics.
	Name() string
	Close(ctx context.Context) error
}

// New creates the mirror selected by settings. The file backend rewrites the
// documents located through events, falling back to watchFolder. events may be nil.
func New(ctx context.Context, settings *conf.MirrorSettings, watchFolder string, events EventLocator) (Mirror, error) {
	log := logger.Global().Module("mirror")

	switch strings.ToLower(settings.Backend) {
	case conf.MirrorFile, "":
		log.Info("using file mirror", logger.String("folder", watchFolder))
		if events == nil {
			return NewFileMirror(watchFolder), nil
		}
		return NewFileMirror(watchFolder, WithEventLocator(events)), nil
	case conf.MirrorMongo:
		m, err := NewMongoMirror(ctx, settings.Mongo.URI, settings.Mongo.Database, settings.Mongo.Collection)
		if err != nil {
			return nil, err
		}
		log.Info("using mongo mirror",
			logger.String("database", settings.Mongo.Database),
			logger.String("collection", settings.Mongo.Collection))
		return m, nil
	case conf.MirrorNone:
		log.Info("mirror disabled")
		return Nop{}, nil
	default:
		return nil, errors.Newf("unknown mirror backend %q", settings.Backend).
			Component("mirror").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// Nop discards every update.
type Nop struct{}

func (Nop) SetOverriddenSpecies(context.Context, string, []string) error { return nil }
func (Nop) AddBehavior(context.Context, string, Behavior) error          { return nil }
func (Nop) RemoveBehavior(context.Context, string, Behavior) error       { return nil }
func (Nop) Name() string                                                 { return conf.MirrorNone }
func (Nop) Close(context.Context) error                                  { return nil }
