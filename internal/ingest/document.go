// Package ingest loads detection documents from the watch folder into the record store.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
)

// Accepted timestamp layouts, tried in order. Naive timestamps are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Document is the JSON detection document written next to each event video.
type Document struct {
	EventID        string          `json:"event_id"`
	DeviceID       string          `json:"device_id"`
	Start          string          `json:"timestamp_start_utc"`
	End            string          `json:"timestamp_end_utc"`
	Duration       *float64        `json:"duration_seconds"`
	Species        string          `json:"species"`
	PrimarySpecies string          `json:"primary_species"`
	Classes        []string        `json:"classes_detected"`
	Overridden     *[]string       `json:"classes_overridden"`
	MaxCounts      map[string]int  `json:"max_count_per_frame"`
	Status         string          `json:"status"`
	Behaviors      []DocumentEntry `json:"behaviors"`
}

// DocumentEntry is a behavior entry of a document.
type DocumentEntry struct {
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Description string  `json:"description"`
}

// Parsed is a decoded document ready to be stored.
type Parsed struct {
	Event *entities.Event
	// Dropped counts behavior entries that failed validation.
	Dropped int
}

// ParseDocument decodes a detection document. The event id falls back to
// fallbackID, then to a random UUID. The full document is kept as the payload.
func ParseDocument(data []byte, fallbackID string) (*Parsed, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, parseError(fallbackID, fmt.Errorf("decode document: %w", err))
	}

	id := strings.TrimSpace(doc.EventID)
	if id == "" {
		id = strings.TrimSpace(fallbackID)
	}
	if id == "" {
		id = uuid.NewString()
	}

	if strings.TrimSpace(doc.Start) == "" {
		return nil, parseError(id, fmt.Errorf("missing timestamp_start_utc"))
	}
	start, err := parseTimestamp(doc.Start)
	if err != nil {
		return nil, parseError(id, fmt.Errorf("timestamp_start_utc: %w", err))
	}

	var end time.Time
	if strings.TrimSpace(doc.End) != "" {
		if end, err = parseTimestamp(doc.End); err != nil {
			return nil, parseError(id, fmt.Errorf("timestamp_end_utc: %w", err))
		}
	}

	duration := 0.0
	switch {
	case doc.Duration != nil:
		duration = *doc.Duration
	case !end.IsZero():
		duration = end.Sub(start).Seconds()
	}
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, parseError(id, fmt.Errorf("invalid duration %v", duration))
	}
	if end.IsZero() {
		end = start.Add(time.Duration(duration * float64(time.Second)))
	}

	classes := make([]string, 0, len(doc.Classes))
	for _, c := range doc.Classes {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}

	detection := &entities.Detection{
		Payload:          entities.RawDocument(append([]byte(nil), data...)),
		ClassesDetected:  classes,
		MaxCountPerFrame: doc.MaxCounts,
	}
	if doc.Overridden != nil {
		detection.ClassesOverridden = append(entities.SpeciesList{}, *doc.Overridden...)
		detection.HasOverride = true
	}

	event := &entities.Event{
		ID:              id,
		DeviceID:        strings.TrimSpace(doc.DeviceID),
		StartedAt:       start,
		EndedAt:         end,
		DurationSeconds: duration,
		Species:         primarySpecies(&doc, classes),
		Status:          doc.Status,
		Detection:       detection,
	}

	parsed := &Parsed{Event: event}
	for _, entry := range doc.Behaviors {
		b := entities.Behavior{
			StartTime:   entry.StartTime,
			EndTime:     entry.EndTime,
			Description: strings.TrimSpace(entry.Description),
		}
		if b.Validate() != nil {
			parsed.Dropped++
			continue
		}
		event.Behaviors = append(event.Behaviors, b)
	}
	return parsed, nil
}

func primarySpecies(doc *Document, classes []string) string {
	if s := strings.TrimSpace(doc.Species); s != "" {
		return s
	}
	if s := strings.TrimSpace(doc.PrimarySpecies); s != "" {
		return s
	}
	if len(classes) > 0 {
		return classes[0]
	}
	return ""
}

func parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, v, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func parseError(id string, err error) error {
	return errors.New(err).
		Component("ingest").
		Category(errors.CategoryFileParsing).
		Context("event_id", id).
		Build()
}
