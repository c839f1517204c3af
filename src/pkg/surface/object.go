package surface

import (
	"fmt"

	"inkboard/src/pkg/model"
)

// legal lists the states each state may move to.
var legal = map[model.ObjectState][]model.ObjectState{
	model.StateUnborn: {model.StateActive, model.StateHidden, model.StateDestroyed},
	model.StateActive: {model.StateHidden, model.StateDestroyed},
	model.StateHidden: {model.StateActive, model.StateDestroyed},
}

// Transition moves d to state to. Destroyed is terminal.
func Transition(d *model.Drawable, to model.ObjectState) error {
	if d.State == to {
		return nil
	}
	for _, s := range legal[d.State] {
		if s == to {
			d.State = to
			return nil
		}
	}
	return model.NewValidationError("object state", "%s cannot go from %s to %s", d.ID, d.State, to)
}

// Add places a new object on s. It becomes active when its page is current
// and hidden otherwise.
func Add(s *model.Surface, d *model.Drawable) error {
	if err := d.Validate(); err != nil {
		return model.NewValidationError("add object", "%v", err)
	}
	if _, ok := s.Object(d.ID); ok {
		return model.NewValidationError("add object", "object %s already exists on %s", d.ID, s.ID)
	}
	d.SurfaceID = s.ID
	d.State = model.StateUnborn
	to := model.StateHidden
	if d.Page == s.CurrentPage {
		to = model.StateActive
	}
	if err := Transition(d, to); err != nil {
		return err
	}
	if d.Page+1 > s.MaxPageSize {
		s.MaxPageSize = d.Page + 1
	}
	s.Objects[d.ID] = d
	return nil
}

// Get returns a live object of s.
func Get(s *model.Surface, id string) (*model.Drawable, error) {
	d, ok := s.Object(id)
	if !ok {
		return nil, fmt.Errorf("object %s on %s: %w", id, s.ID, model.ErrNotFound)
	}
	return d, nil
}

// Delete destroys an object and drops it from s. Its id stays tombstoned.
func Delete(s *model.Surface, id string) (*model.Drawable, error) {
	d, err := Get(s, id)
	if err != nil {
		return nil, err
	}
	if err := Transition(d, model.StateDestroyed); err != nil {
		return nil, err
	}
	s.Destroy(d)
	return d, nil
}
