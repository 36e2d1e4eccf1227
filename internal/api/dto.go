package api

import (
	"encoding/json"
	"time"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
)

// EventResponse is the API form of an event.
type EventResponse struct {
	ID              string             `json:"id"`
	DeviceID        string             `json:"device_id"`
	StartedAt       time.Time          `json:"timestamp_start_utc"`
	EndedAt         *time.Time         `json:"timestamp_end_utc,omitempty"`
	DurationSeconds float64            `json:"duration_seconds"`
	Species         string             `json:"species"`
	Status          string             `json:"status,omitempty"`
	Detection       *DetectionResponse `json:"detection,omitempty"`
	Behaviors       []BehaviorResponse `json:"behaviors"`
}

// DetectionResponse is the API form of a detection. ClassesOverridden is null when
// the event has no override.
type DetectionResponse struct {
	ClassesDetected   []string        `json:"classes_detected"`
	ClassesOverridden []string        `json:"classes_overridden"`
	EffectiveSpecies  []string        `json:"effective_species"`
	MaxCountPerFrame  map[string]int  `json:"max_count_per_frame"`
	MaxConfidence     *float64        `json:"max_confidence"`
	Payload           json.RawMessage `json:"payload,omitempty"`
}

// BehaviorResponse is the API form of a behavior interval.
type BehaviorResponse struct {
	ID          uint    `json:"id"`
	EventID     string  `json:"event_id"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Description string  `json:"description"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Results         []EventResponse `json:"results"`
	Total           int             `json:"total"`
	Pages           int             `json:"pages"`
	CurrentPage     int             `json:"current_page"`
	PageSize        int             `json:"page_size"`
	SearchPerformed bool            `json:"search_performed"`
}

// VideoID is one entry of the video id listing.
type VideoID struct {
	ID string `json:"id"`
}

// AnnotationResponse reports a committed edit and whether the mirror kept up.
type AnnotationResponse struct {
	Status      string            `json:"status"` // ok or degraded
	MirrorError string            `json:"mirror_error,omitempty"`
	Behavior    *BehaviorResponse `json:"behavior,omitempty"`
}

// BehaviorChoiceResponse is a catalog entry.
type BehaviorChoiceResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// toEventResponse converts an event. The raw payload is included only when withPayload is set.
func toEventResponse(e *entities.Event, withPayload bool) EventResponse {
	r := EventResponse{
		ID:              e.ID,
		DeviceID:        e.DeviceID,
		StartedAt:       e.StartedAt.UTC(),
		DurationSeconds: e.DurationSeconds,
		Species:         e.Species,
		Status:          e.Status,
		Behaviors:       make([]BehaviorResponse, 0, len(e.Behaviors)),
	}
	if !e.EndedAt.IsZero() {
		end := e.EndedAt.UTC()
		r.EndedAt = &end
	}
	if d := e.Detection; d != nil {
		r.Detection = &DetectionResponse{
			ClassesDetected:   nonNil(d.ClassesDetected),
			ClassesOverridden: d.Overridden(),
			EffectiveSpecies:  nonNil(d.EffectiveSpecies()),
			MaxCountPerFrame:  d.MaxCountPerFrame,
			MaxConfidence:     d.MaxConfidence,
		}
		if withPayload && len(d.Payload) > 0 {
			r.Detection.Payload = json.RawMessage(d.Payload)
		}
	}
	for i := range e.Behaviors {
		r.Behaviors = append(r.Behaviors, toBehaviorResponse(&e.Behaviors[i]))
	}
	return r
}

func toBehaviorResponse(b *entities.Behavior) BehaviorResponse {
	return BehaviorResponse{
		ID:          b.ID,
		EventID:     b.EventID,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Description: b.Description,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
