package model

import "sort"

// Forward is the surface normal in local space. Layer offsets push objects
// against it.
var Forward = Vec3{0, 0, 1}

// Surface is a drawable canvas holding objects partitioned by page.
type Surface struct {
	ID          string
	ParentID    string
	Description string
	Transform   Transform
	Color       Color
	Lighting    bool
	Visible     bool
	Order       int
	CurrentPage int
	MaxPageSize int
	// Counters holds the next layer order to hand out per page.
	Counters map[int]int
	Objects  map[string]*Drawable
	// Tombstones holds the ids of destroyed objects. Ids are never reused, so
	// a late command for one of them is dropped.
	Tombstones map[string]bool
}

// NewSurface returns an empty visible surface on page 0.
func NewSurface(id, parentID string) *Surface {
	return &Surface{
		ID:          id,
		ParentID:    parentID,
		Transform:   IdentityTransform(),
		Color:       White,
		Visible:     true,
		MaxPageSize: 1,
		Counters:    map[int]int{0: 1},
		Objects:     make(map[string]*Drawable),
		Tombstones:  make(map[string]bool),
	}
}

// Object returns a live object by id.
func (s *Surface) Object(id string) (*Drawable, bool) {
	d, ok := s.Objects[id]
	if !ok || d.State == StateDestroyed {
		return nil, false
	}
	return d, true
}

// Destroy marks d destroyed, drops it from the surface and remembers its id.
// Branch lines are rebuilt under the same id and leave no tombstone.
func (s *Surface) Destroy(d *Drawable) {
	d.State = StateDestroyed
	delete(s.Objects, d.ID)
	if !d.IsBranchLine() {
		s.Bury(d.ID)
	}
}

// Bury records id as destroyed, also when the object was never seen.
func (s *Surface) Bury(id string) {
	if s.Tombstones == nil {
		s.Tombstones = make(map[string]bool)
	}
	s.Tombstones[id] = true
}

// Destroyed reports whether an object with id was destroyed on the surface.
func (s *Surface) Destroyed(id string) bool {
	return s.Tombstones[id]
}

// OnPage returns the live objects on page, sorted by order then id.
func (s *Surface) OnPage(page int) []*Drawable {
	var out []*Drawable
	for _, d := range s.Objects {
		if d.Page == page && d.State != StateDestroyed {
			out = append(out, d)
		}
	}
	SortByOrder(out)
	return out
}

// Nodes returns every live mind-map node on the surface.
func (s *Surface) Nodes() []*Drawable {
	var out []*Drawable
	for _, d := range s.Objects {
		if d.Kind == KindMindMapNode && d.State != StateDestroyed {
			out = append(out, d)
		}
	}
	SortByOrder(out)
	return out
}

// SortByOrder sorts drawables by layer order, ties broken by id.
func SortByOrder(ds []*Drawable) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Order != ds[j].Order {
			return ds[i].Order < ds[j].Order
		}
		return ds[i].ID < ds[j].ID
	})
}

// SurfaceInfo is a lightweight listing entry for a surface.
type SurfaceInfo struct {
	ID          string
	ParentID    string
	Description string
	CurrentPage int
	MaxPageSize int
	Objects     int
}

// Info summarizes the surface.
func (s *Surface) Info() SurfaceInfo {
	n := 0
	for _, d := range s.Objects {
		if d.State != StateDestroyed {
			n++
		}
	}
	return SurfaceInfo{
		ID:          s.ID,
		ParentID:    s.ParentID,
		Description: s.Description,
		CurrentPage: s.CurrentPage,
		MaxPageSize: s.MaxPageSize,
		Objects:     n,
	}
}
