package datastore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

// MemoryStore is an in-memory RecordStore. It evaluates every fragment with
// query.Predicate.Match and is safe for concurrent use.
type MemoryStore struct {
	mu             sync.RWMutex
	events         map[string]*entities.Event
	choices        map[string]entities.BehaviorChoice
	nextDetection  uint
	nextBehavior   uint
	nextChoice     uint
	failNextWrites error // injected write failure, for tests
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[string]*entities.Event),
		choices: make(map[string]entities.BehaviorChoice),
	}
}

// FailWrites makes every following write return err until called with nil.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextWrites = err
}

func (m *MemoryStore) writeFailure(operation string) error {
	if m.failNextWrites != nil {
		return dbError(m.failNextWrites, operation)
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// FindEvents returns matching event ids in the given order.
func (m *MemoryStore) FindEvents(ctx context.Context, pred query.Predicate, order query.Order) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, dbError(err, "find_events")
	}

	m.mu.RLock()
	records := make([]*query.Record, 0, len(m.events))
	for _, e := range m.events {
		r := recordOf(e)
		if pred.Match(&r) {
			records = append(records, &r)
		}
	}
	m.mu.RUnlock()

	order.Sort(records)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.EventID
	}
	return ids, nil
}

// CountMatches returns the number of events matching pred.
func (m *MemoryStore) CountMatches(ctx context.Context, pred query.Predicate) (int64, error) {
	ids, err := m.FindEvents(ctx, pred, query.Order{})
	return int64(len(ids)), err
}

// GetEvent returns a copy of an event.
func (m *MemoryStore) GetEvent(_ context.Context, id string) (*entities.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, notFoundError(ErrEventNotFound, "event", id)
	}
	c := cloneEvent(e)
	return &c, nil
}

// GetEvents returns copies of events in the order of ids, skipping unknown ids.
func (m *MemoryStore) GetEvents(_ context.Context, ids []string) ([]entities.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.events[id]; ok {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

// GetDetection returns a copy of an event's detection.
func (m *MemoryStore) GetDetection(_ context.Context, eventID string) (*entities.Detection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[eventID]
	if !ok || e.Detection == nil {
		return nil, notFoundError(ErrDetectionNotFound, "detection", eventID)
	}
	d := cloneDetection(e.Detection)
	return d, nil
}

// ListBehaviors returns an event's behaviors ordered by start time.
func (m *MemoryStore) ListBehaviors(_ context.Context, eventID string) ([]entities.Behavior, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[eventID]
	if !ok {
		return []entities.Behavior{}, nil
	}
	return append([]entities.Behavior{}, e.Behaviors...), nil
}

// ListAllDetections returns copies of every detection ordered by id.
func (m *MemoryStore) ListAllDetections(_ context.Context) ([]entities.Detection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.Detection, 0, len(m.events))
	for _, e := range m.events {
		if e.Detection != nil {
			out = append(out, *cloneDetection(e.Detection))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListEventStarts returns every event start time in ascending order.
func (m *MemoryStore) ListEventStarts(_ context.Context) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]time.Time, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.StartedAt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// SaveEvent stores a copy of the event with its detection and behaviors.
func (m *MemoryStore) SaveEvent(_ context.Context, event *entities.Event) error {
	if event.Detection == nil {
		return validationError(errors.New("event has no detection"), "save_event")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeFailure("save_event"); err != nil {
		return err
	}
	if _, exists := m.events[event.ID]; exists {
		return conflictError(ErrDuplicateKey, "save_event", "event", event.ID)
	}

	if err := event.BeforeCreate(nil); err != nil {
		return validationError(err, "save_event")
	}
	if err := event.Detection.BeforeCreate(nil); err != nil {
		return validationError(err, "save_event")
	}
	for i := range event.Behaviors {
		if err := event.Behaviors[i].Validate(); err != nil {
			return validationError(err, "save_event")
		}
	}

	m.nextDetection++
	event.Detection.ID = m.nextDetection
	event.Detection.EventID = event.ID
	for i := range event.Behaviors {
		m.nextBehavior++
		event.Behaviors[i].ID = m.nextBehavior
		event.Behaviors[i].EventID = event.ID
		m.registerChoiceLocked(event.Behaviors[i].Description)
	}

	stored := cloneEvent(event)
	sortBehaviors(stored.Behaviors)
	m.events[event.ID] = &stored
	return nil
}

// EventExists reports whether an event id is stored.
func (m *MemoryStore) EventExists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.events[id]
	return ok, nil
}

// DeleteEvent removes an event with its detection and behaviors.
func (m *MemoryStore) DeleteEvent(_ context.Context, id string) (*entities.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeFailure("delete_event"); err != nil {
		return nil, err
	}
	e, ok := m.events[id]
	if !ok {
		return nil, notFoundError(ErrEventNotFound, "event", id)
	}
	delete(m.events, id)
	return e, nil
}

// SetOverriddenSpecies replaces the override list of an event's detection.
func (m *MemoryStore) SetOverriddenSpecies(_ context.Context, eventID string, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeFailure("set_overridden_species"); err != nil {
		return err
	}
	e, ok := m.events[eventID]
	if !ok || e.Detection == nil {
		return notFoundError(ErrEventNotFound, "event", eventID)
	}
	e.Detection.ClassesOverridden = append(entities.SpeciesList{}, labels...)
	e.Detection.HasOverride = true
	e.Detection.UpdatedAt = time.Now().UTC()
	return nil
}

// AddBehavior stores a behavior and registers its description.
func (m *MemoryStore) AddBehavior(_ context.Context, eventID string, start, end float64, description string) (*entities.Behavior, error) {
	b := entities.Behavior{EventID: eventID, StartTime: start, EndTime: end, Description: description}
	if err := b.Validate(); err != nil {
		return nil, validationError(err, "add_behavior")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeFailure("add_behavior"); err != nil {
		return nil, err
	}
	e, ok := m.events[eventID]
	if !ok {
		return nil, notFoundError(ErrEventNotFound, "event", eventID)
	}

	m.nextBehavior++
	b.ID = m.nextBehavior
	b.CreatedAt = time.Now().UTC()
	e.Behaviors = append(e.Behaviors, b)
	sortBehaviors(e.Behaviors)
	m.registerChoiceLocked(description)
	return &b, nil
}

// DeleteBehavior removes a behavior and returns it.
func (m *MemoryStore) DeleteBehavior(_ context.Context, behaviorID uint) (*entities.Behavior, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeFailure("delete_behavior"); err != nil {
		return nil, err
	}
	for _, e := range m.events {
		for i, b := range e.Behaviors {
			if b.ID == behaviorID {
				e.Behaviors = append(e.Behaviors[:i:i], e.Behaviors[i+1:]...)
				return &b, nil
			}
		}
	}
	return nil, notFoundError(ErrBehaviorNotFound, "behavior", behaviorID)
}

// ListBehaviorChoices returns the catalog ordered by name.
func (m *MemoryStore) ListBehaviorChoices(_ context.Context) ([]entities.BehaviorChoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.BehaviorChoice, 0, len(m.choices))
	for _, c := range m.choices {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AddBehaviorChoice adds a catalog entry. A duplicate name is a conflict.
func (m *MemoryStore) AddBehaviorChoice(_ context.Context, name string) (*entities.BehaviorChoice, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(errors.New("behavior choice name must not be empty"), "add_behavior_choice")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeFailure("add_behavior_choice"); err != nil {
		return nil, err
	}
	if _, exists := m.choices[name]; exists {
		return nil, conflictError(ErrDuplicateKey, "add_behavior_choice", "behavior choice", name)
	}
	c := m.registerChoiceLocked(name)
	return &c, nil
}

func (m *MemoryStore) registerChoiceLocked(name string) entities.BehaviorChoice {
	if c, ok := m.choices[name]; ok {
		return c
	}
	m.nextChoice++
	c := entities.BehaviorChoice{ID: m.nextChoice, Name: name}
	m.choices[name] = c
	return c
}

func sortBehaviors(bs []entities.Behavior) {
	sort.SliceStable(bs, func(i, j int) bool {
		if bs[i].StartTime != bs[j].StartTime {
			return bs[i].StartTime < bs[j].StartTime
		}
		return bs[i].ID < bs[j].ID
	})
}

func cloneEvent(e *entities.Event) entities.Event {
	c := *e
	c.Detection = cloneDetection(e.Detection)
	c.Behaviors = append([]entities.Behavior{}, e.Behaviors...)
	return c
}

func cloneDetection(d *entities.Detection) *entities.Detection {
	if d == nil {
		return nil
	}
	c := *d
	c.Payload = append(entities.RawDocument(nil), d.Payload...)
	if d.ClassesDetected != nil {
		c.ClassesDetected = append(entities.SpeciesList{}, d.ClassesDetected...)
	}
	if d.ClassesOverridden != nil {
		c.ClassesOverridden = append(entities.SpeciesList{}, d.ClassesOverridden...)
	}
	if d.MaxCountPerFrame != nil {
		c.MaxCountPerFrame = make(entities.SpeciesCounts, len(d.MaxCountPerFrame))
		for k, v := range d.MaxCountPerFrame {
			c.MaxCountPerFrame[k] = v
		}
	}
	if d.MaxConfidence != nil {
		v := *d.MaxConfidence
		c.MaxConfidence = &v
	}
	return &c
}
