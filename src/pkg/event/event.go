// Package event handles triggering of operations without direct dependency
package event

import (
	"context"
	"sync"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// EventType represents the type of event
type EventType int

const (
	DrawableCreated EventType = iota
	DrawableUpdated
	DrawableDeleted
	PageSwitched
	PageCleared
	SurfaceAdded
	SurfaceRemoved
)

// Field names carried by DrawableEvent.Changed.
const (
	FieldPoints    = "points"
	FieldColor     = "color"
	FieldThickness = "thickness"
	FieldOrder     = "order"
	FieldText      = "text"
	FieldParent    = "parent"
	FieldNodeKind  = "node-kind"
	FieldLineKind  = "line-kind"
	FieldTransform = "transform"
	FieldPage      = "page"
)

// Event represents an event with its type and associated data
type Event struct {
	Type EventType
	Data interface{}
}

// DrawableEvent describes a change to one object. Object is a snapshot taken
// after the change (before removal for deletes).
type DrawableEvent struct {
	SurfaceID       string
	SurfaceParentID string
	Object          *model.Drawable
	Changed         []string
}

// PageEvent describes a page switch or clear on a surface. Removed lists the
// ids destroyed by a clear.
type PageEvent struct {
	SurfaceID       string
	SurfaceParentID string
	Page            int
	Removed         []string
}

// EventHandler is a function type for event handlers
type EventHandler func(Event)

// Publisher is the side of EventManager used by the engine packages.
type Publisher interface {
	Publish(event Event)
}

// EventManager manages event subscriptions and publications. Handlers run
// synchronously in subscription order so that observers see mutations in the
// order they were applied.
type EventManager struct {
	subscribers map[EventType][]EventHandler
	watchers    map[EventType][]EventHandler
	mu          sync.RWMutex
	muted       int
	logger      *log.Logger
}

// NewEventManager creates a new EventManager instance
func NewEventManager(logger *log.Logger) *EventManager {
	return &EventManager{
		subscribers: make(map[EventType][]EventHandler),
		watchers:    make(map[EventType][]EventHandler),
		logger:      logger,
	}
}

// Subscribe adds a new event handler for a specific event type
func (em *EventManager) Subscribe(eventType EventType, handler EventHandler) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.subscribers[eventType] = append(em.subscribers[eventType], handler)
}

// Watch adds a handler that also runs while publication is muted. Watchers
// keep local state in step with remote changes and run before subscribers.
func (em *EventManager) Watch(eventType EventType, handler EventHandler) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.watchers[eventType] = append(em.watchers[eventType], handler)
}

// Publish sends an event to all watchers and subscribed handlers
func (em *EventManager) Publish(event Event) {
	em.mu.RLock()
	handlers := append([]EventHandler(nil), em.watchers[event.Type]...)
	if em.muted == 0 {
		handlers = append(handlers, em.subscribers[event.Type]...)
	}
	em.mu.RUnlock()

	for _, h := range handlers {
		em.dispatch(h, event)
	}
}

// Muted runs fn with publication to subscribers suppressed. Used while
// applying remote changes that must not be echoed back. Watchers still run.
func (em *EventManager) Muted(fn func() error) error {
	em.mu.Lock()
	em.muted++
	em.mu.Unlock()
	defer func() {
		em.mu.Lock()
		em.muted--
		em.mu.Unlock()
	}()
	return fn()
}

func (em *EventManager) dispatch(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			em.logger.Error(context.Background(), "Panic in event handler", log.Fields{
				"event": event.Type,
				"panic": r,
			})
		}
	}()
	h(event)
}

// Emit publishes on p if it is not nil.
func Emit(p Publisher, t EventType, data interface{}) {
	if p == nil {
		return
	}
	p.Publish(Event{Type: t, Data: data})
}

// Drawable publishes a DrawableEvent snapshot of obj.
func Drawable(p Publisher, t EventType, s *model.Surface, obj *model.Drawable, changed ...string) {
	if p == nil || obj == nil {
		return
	}
	snapshot, err := obj.Clone()
	if em, ok := p.(*EventManager); ok && err != nil {
		em.logger.Warn(context.Background(), "Event snapshot is shallow", log.Fields{"error": err, "objectID": obj.ID})
	}
	Emit(p, t, DrawableEvent{
		SurfaceID:       s.ID,
		SurfaceParentID: s.ParentID,
		Object:          snapshot,
		Changed:         changed,
	})
}
