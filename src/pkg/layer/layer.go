// Package layer allocates the stacking order of drawables per surface page
// and maps an order to a physical offset along the surface normal.
package layer

import (
	"context"
	"fmt"
	"sync"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// DefaultEpsilon is the distance between two consecutive orders.
const DefaultEpsilon float32 = 0.0001

// Allocator hands out layer orders. Counters live on the surface; the
// allocator serializes every read-modify-write of them.
type Allocator struct {
	mu      sync.Mutex
	epsilon float32
	logger  *log.Logger
}

// NewAllocator creates an Allocator. epsilon <= 0 selects DefaultEpsilon.
func NewAllocator(epsilon float32, logger *log.Logger) *Allocator {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Allocator{epsilon: epsilon, logger: logger}
}

// Epsilon returns the offset per order step.
func (a *Allocator) Epsilon() float32 {
	return a.epsilon
}

// Allocate returns the next order for page and advances the counter.
func (a *Allocator) Allocate(s *model.Surface, page int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.next(s, page)
	s.Counters[page] = next + 1
	return next
}

// Next returns the order Allocate would hand out without advancing.
func (a *Allocator) Next(s *model.Surface, page int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next(s, page)
}

// MaxOrder returns the highest order handed out on page, 0 if none.
func (a *Allocator) MaxOrder(s *model.Surface, page int) int {
	return a.Next(s, page) - 1
}

// Observe raises the counter of page past order. Used for objects whose
// order was decided elsewhere, such as remote creates and loaded files.
func (a *Allocator) Observe(s *model.Surface, page, order int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if order >= a.next(s, page) {
		s.Counters[page] = order + 1
	}
}

// Reset sets the counter of page so that the next order is next.
func (a *Allocator) Reset(s *model.Surface, page, next int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if next < 1 {
		next = 1
	}
	if s.Counters == nil {
		s.Counters = make(map[int]int)
	}
	s.Counters[page] = next
}

func (a *Allocator) next(s *model.Surface, page int) int {
	if s.Counters == nil {
		s.Counters = make(map[int]int)
	}
	n, ok := s.Counters[page]
	if !ok || n < 1 {
		n = 1
	}
	return n
}

// Place sets the order of obj and its physical offset along normal.
func (a *Allocator) Place(obj *model.Drawable, order int, normal model.Vec3) {
	planar := a.Planar(obj.Transform.Position, normal, obj.Order)
	obj.Order = order
	obj.Transform.Position = PhysicalOffset(planar, normal, a.epsilon, order)
}

// MoveTo places obj at the planar position pos keeping its order offset.
func (a *Allocator) MoveTo(obj *model.Drawable, pos, normal model.Vec3) {
	obj.Transform.Position = PhysicalOffset(pos, normal, a.epsilon, obj.Order)
}

// Planar strips the order offset from a physical position.
func (a *Allocator) Planar(pos, normal model.Vec3, order int) model.Vec3 {
	return pos.Add(normal.MulScalar(a.epsilon * float32(order)))
}

// Rebase moves obj to newOrder on its page. newOrder must lie in
// (0, max order of the page]; otherwise ErrOrderOutOfRange is returned and
// nothing changes. An allocated object already holding newOrder takes the
// old order of obj. The returned slice lists every object whose order changed.
func (a *Allocator) Rebase(s *model.Surface, obj *model.Drawable, newOrder int, normal model.Vec3) ([]*model.Drawable, error) {
	ctx := context.Background()
	maxOrder := a.MaxOrder(s, obj.Page)
	if newOrder <= 0 || newOrder > maxOrder {
		a.logger.Warn(ctx, "Layer order out of range", log.Fields{"objectID": obj.ID, "order": newOrder, "max": maxOrder})
		return nil, fmt.Errorf("%w: %d not in (0, %d]", model.ErrOrderOutOfRange, newOrder, maxOrder)
	}
	if newOrder == obj.Order {
		return nil, nil
	}

	changed := []*model.Drawable{obj}
	old := obj.Order
	for _, other := range s.OnPage(obj.Page) {
		if other.ID != obj.ID && other.Order == newOrder && !other.IsBranchLine() {
			a.Place(other, old, normal)
			changed = append(changed, other)
			break
		}
	}
	a.Place(obj, newOrder, normal)
	a.logger.Debug(ctx, "Layer order rebased", log.Fields{"objectID": obj.ID, "from": old, "to": newOrder})
	return changed, nil
}

// BranchOrder is the order of the branch line between two nodes: one below
// the lower of the two, never negative.
func BranchOrder(parentOrder, childOrder int) int {
	o := parentOrder
	if childOrder < o {
		o = childOrder
	}
	o--
	if o < 0 {
		o = 0
	}
	return o
}

// PhysicalOffset pushes a planar position against normal by epsilon per order.
func PhysicalOffset(pos, normal model.Vec3, epsilon float32, order int) model.Vec3 {
	return pos.Sub(normal.MulScalar(epsilon * float32(order)))
}

// Verify checks that allocated objects on page have pairwise distinct orders.
// Branch lines derive their order from their endpoints and are skipped.
func Verify(s *model.Surface, page int) error {
	seen := make(map[int]string)
	for _, d := range s.OnPage(page) {
		if d.IsBranchLine() {
			continue
		}
		if other, ok := seen[d.Order]; ok {
			return fmt.Errorf("order %d shared by %s and %s on page %d", d.Order, other, d.ID, page)
		}
		seen[d.Order] = d.ID
	}
	return nil
}
