package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/brunoga/deep"

	"github.com/signalsfoundry/ascent-simulator/model"
)

var (
	// ErrVehicleNotFound is returned when no profile has the requested ID.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrVehicleExists is returned by AddVehicle for a duplicate ID.
	ErrVehicleExists = errors.New("vehicle already exists")
	// ErrInvalidVehicle is returned for a profile without an ID.
	ErrInvalidVehicle = errors.New("invalid vehicle")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventVehicleAdded EventType = iota
	EventVehicleReplaced
	EventVehicleRemoved
)

func (t EventType) String() string {
	switch t {
	case EventVehicleAdded:
		return "added"
	case EventVehicleReplaced:
		return "replaced"
	case EventVehicleRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers after a change is committed.
type Event struct {
	Type    EventType
	Vehicle model.VehicleProfile
}

// KnowledgeBase is an in-memory, thread-safe catalogue of vehicle profiles.
// Profiles go in and come out as deep copies; callers never share storage
// with the catalogue.
type KnowledgeBase struct {
	mu sync.RWMutex

	vehicles map[string]*model.VehicleProfile

	nextSub int
	subs    map[int]func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		vehicles: make(map[string]*model.VehicleProfile),
		subs:     make(map[int]func(Event)),
	}
}

// NewSeeded returns a KB holding the reference vehicle.
func NewSeeded() *KnowledgeBase {
	kb := NewKnowledgeBase()
	kb.vehicles[model.ReferenceVehicleID] = model.ReferenceVehicle()
	return kb
}

// AddVehicle stores a new profile; an existing ID is an error.
func (kb *KnowledgeBase) AddVehicle(v *model.VehicleProfile) error {
	if err := checkVehicle(v); err != nil {
		return err
	}
	kb.mu.Lock()
	if _, exists := kb.vehicles[v.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrVehicleExists, v.ID)
	}
	stored := deep.MustCopy(v)
	kb.vehicles[v.ID] = stored
	subs := kb.subscribers()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventVehicleAdded, Vehicle: *stored})
	return nil
}

// PutVehicle creates or replaces a profile. It reports whether a profile was
// replaced.
func (kb *KnowledgeBase) PutVehicle(v *model.VehicleProfile) (replaced bool, err error) {
	if err := checkVehicle(v); err != nil {
		return false, err
	}
	kb.mu.Lock()
	_, replaced = kb.vehicles[v.ID]
	stored := deep.MustCopy(v)
	kb.vehicles[v.ID] = stored
	subs := kb.subscribers()
	kb.mu.Unlock()

	typ := EventVehicleAdded
	if replaced {
		typ = EventVehicleReplaced
	}
	notify(subs, Event{Type: typ, Vehicle: *stored})
	return replaced, nil
}

// GetVehicle returns a copy of the profile with the given ID.
func (kb *KnowledgeBase) GetVehicle(id string) (*model.VehicleProfile, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	v, ok := kb.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVehicleNotFound, id)
	}
	return deep.MustCopy(v), nil
}

// ListVehicles returns copies of every profile ordered by ID.
func (kb *KnowledgeBase) ListVehicles() []*model.VehicleProfile {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*model.VehicleProfile, 0, len(kb.vehicles))
	for _, v := range kb.vehicles {
		res = append(res, deep.MustCopy(v))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// RemoveVehicle deletes a profile.
func (kb *KnowledgeBase) RemoveVehicle(id string) error {
	kb.mu.Lock()
	v, ok := kb.vehicles[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrVehicleNotFound, id)
	}
	delete(kb.vehicles, id)
	subs := kb.subscribers()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventVehicleRemoved, Vehicle: *v})
	return nil
}

// Subscribe registers a callback for KB events. Callbacks run synchronously
// on the mutating goroutine, outside the lock. It returns an unsubscribe
// function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

// subscribers snapshots the callbacks in registration order. Callers hold mu.
func (kb *KnowledgeBase) subscribers() []func(Event) {
	ids := make([]int, 0, len(kb.subs))
	for id := range kb.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, kb.subs[id])
	}
	return subs
}

func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}

func checkVehicle(v *model.VehicleProfile) error {
	if v == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidVehicle)
	}
	if v.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidVehicle)
	}
	return nil
}
