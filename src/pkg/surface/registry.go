// Package surface keeps the live surfaces of a session and the lifecycle of
// the objects placed on them.
package surface

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

type key struct {
	id       string
	parentID string
}

// Registry resolves a surface id and optional holder id to a live surface.
type Registry struct {
	mu       sync.RWMutex
	surfaces map[key]*model.Surface
	events   event.Publisher
	logger   *log.Logger
}

// NewRegistry creates an empty Registry. events may be nil.
func NewRegistry(events event.Publisher, logger *log.Logger) (*Registry, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return &Registry{
		surfaces: make(map[key]*model.Surface),
		events:   events,
		logger:   logger,
	}, nil
}

// Register adds an existing surface. Registering the same id and holder twice
// replaces the earlier surface.
func (r *Registry) Register(s *model.Surface) error {
	if s == nil || s.ID == "" {
		return model.NewValidationError("register surface", "surface has no id")
	}
	r.mu.Lock()
	r.surfaces[key{s.ID, s.ParentID}] = s
	r.mu.Unlock()

	r.logger.Info(context.Background(), "Surface registered", log.Fields{"surfaceID": s.ID, "parentID": s.ParentID})
	event.Emit(r.events, event.SurfaceAdded, s.Info())
	return nil
}

// Create registers a new empty surface. An empty id gets a generated one.
func (r *Registry) Create(id, parentID string) (*model.Surface, error) {
	if id == "" {
		id = model.NewID(model.PrefixSurface)
	}
	if _, err := r.Find(id, parentID); err == nil {
		return nil, model.NewValidationError("create surface", "surface %s already exists", id)
	}
	s := model.NewSurface(id, parentID)
	if err := r.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Find resolves a surface. With an empty parentID a surface of any holder
// matches the id, preferring the one without a holder.
func (r *Registry) Find(id, parentID string) (*model.Surface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.surfaces[key{id, parentID}]; ok {
		return s, nil
	}
	if parentID == "" {
		var found *model.Surface
		for k, s := range r.surfaces {
			if k.id == id && (found == nil || k.parentID < found.ParentID) {
				found = s
			}
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("surface %s (holder %q): %w", id, parentID, model.ErrNotFound)
}

// FindOrCreate resolves a surface, registering an empty one when missing.
func (r *Registry) FindOrCreate(id, parentID string) *model.Surface {
	r.mu.Lock()
	s, ok := r.surfaces[key{id, parentID}]
	if !ok {
		s = model.NewSurface(id, parentID)
		r.surfaces[key{id, parentID}] = s
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Info(context.Background(), "Surface registered on demand", log.Fields{"surfaceID": id, "parentID": parentID})
		event.Emit(r.events, event.SurfaceAdded, s.Info())
	}
	return s
}

// Remove unregisters a surface and destroys its objects.
func (r *Registry) Remove(id, parentID string) error {
	s, err := r.Find(id, parentID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.surfaces, key{s.ID, s.ParentID})
	r.mu.Unlock()

	for _, d := range s.Objects {
		d.State = model.StateDestroyed
	}
	r.logger.Info(context.Background(), "Surface removed", log.Fields{"surfaceID": s.ID, "parentID": s.ParentID})
	event.Emit(r.events, event.SurfaceRemoved, s.Info())
	return nil
}

// All returns the registered surfaces sorted by holder, order and id.
func (r *Registry) All() []*model.Surface {
	r.mu.RLock()
	out := make([]*model.Surface, 0, len(r.surfaces))
	for _, s := range r.surfaces {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ParentID != out[j].ParentID {
			return out[i].ParentID < out[j].ParentID
		}
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}
