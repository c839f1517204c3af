// Package page multiplexes the visibility partitions of a surface. Only the
// objects of the current page are active; the others are hidden but kept.
package page

import (
	"context"
	"fmt"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// Manager switches, grows and clears pages of surfaces.
type Manager struct {
	allocator *layer.Allocator
	events    event.Publisher
	logger    *log.Logger
}

// NewManager creates a Manager. events may be nil.
func NewManager(allocator *layer.Allocator, events event.Publisher, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if allocator == nil {
		logger.Error(context.Background(), "Allocator not initialized", nil)
		return nil, fmt.Errorf("allocator not initialized")
	}
	return &Manager{allocator: allocator, events: events, logger: logger}, nil
}

// StateFor returns the state an object on page should have on s.
func StateFor(s *model.Surface, page int) model.ObjectState {
	if page == s.CurrentPage {
		return model.StateActive
	}
	return model.StateHidden
}

// Grow raises MaxPageSize so that page is a valid index. Pages are never
// reclaimed, so the size only grows.
func Grow(s *model.Surface, page int) {
	if page+1 > s.MaxPageSize {
		s.MaxPageSize = page + 1
	}
}

// SwitchPage makes page current on s: objects of other pages are hidden,
// objects of page are shown, and the layer counter of page restarts right
// above its highest existing order.
func (m *Manager) SwitchPage(s *model.Surface, page int) error {
	ctx := context.Background()
	if page < 0 {
		return model.NewValidationError("switch page", "page %d is negative", page)
	}
	m.logger.Info(ctx, "Switching page", log.Fields{"surfaceID": s.ID, "from": s.CurrentPage, "to": page})

	maxOrder := 0
	for _, d := range s.Objects {
		if d.State == model.StateDestroyed {
			continue
		}
		if d.Page == page {
			d.State = model.StateActive
			if d.Order > maxOrder {
				maxOrder = d.Order
			}
		} else {
			d.State = model.StateHidden
		}
	}
	s.CurrentPage = page
	Grow(s, page)
	m.allocator.Reset(s, page, maxOrder+1)

	event.Emit(m.events, event.PageSwitched, event.PageEvent{SurfaceID: s.ID, SurfaceParentID: s.ParentID, Page: page})
	m.logger.Debug(ctx, "Page switched", log.Fields{"surfaceID": s.ID, "page": page, "next": maxOrder + 1})
	return nil
}

// AddPage appends an empty page and returns its index.
func (m *Manager) AddPage(s *model.Surface) int {
	idx := s.MaxPageSize
	Grow(s, idx)
	m.logger.Info(context.Background(), "Page added", log.Fields{"surfaceID": s.ID, "page": idx})
	return idx
}

// Objects returns the live objects of page, front-most last.
func (m *Manager) Objects(s *model.Surface, page int) []*model.Drawable {
	return s.OnPage(page)
}

// Visible returns the objects of the current page.
func (m *Manager) Visible(s *model.Surface) []*model.Drawable {
	return s.OnPage(s.CurrentPage)
}

// ClearPage destroys every object on page and restarts its counter. The page
// itself stays. It returns the destroyed ids.
func (m *Manager) ClearPage(s *model.Surface, page int) []string {
	ctx := context.Background()
	var removed []string
	for _, d := range s.OnPage(page) {
		s.Destroy(d)
		removed = append(removed, d.ID)
	}
	m.allocator.Reset(s, page, 1)
	event.Emit(m.events, event.PageCleared, event.PageEvent{SurfaceID: s.ID, SurfaceParentID: s.ParentID, Page: page, Removed: removed})
	m.logger.Info(ctx, "Page cleared", log.Fields{"surfaceID": s.ID, "page": page, "removed": len(removed)})
	return removed
}

// MoveToPage moves a line, text or image to another page, where it is
// stacked on top. Mind-map nodes and branch lines stay with their diagram.
func (m *Manager) MoveToPage(s *model.Surface, id string, page int) error {
	d, ok := s.Object(id)
	if !ok {
		return fmt.Errorf("object %s: %w", id, model.ErrNotFound)
	}
	if page < 0 {
		return model.NewValidationError("move to page", "page %d is negative", page)
	}
	if d.Kind == model.KindMindMapNode || d.IsBranchLine() {
		return model.NewValidationError("move to page", "mind-map parts cannot change page")
	}
	if d.Page == page {
		return nil
	}
	Grow(s, page)
	d.Page = page
	m.allocator.Place(d, m.allocator.Allocate(s, page), model.Forward)
	d.State = StateFor(s, page)
	event.Drawable(m.events, event.DrawableUpdated, s, d, event.FieldPage, event.FieldOrder)
	return nil
}
