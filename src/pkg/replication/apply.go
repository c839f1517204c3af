package replication

import (
	"context"
	"errors"
	"fmt"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/geometry"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/page"
	"inkboard/src/pkg/surface"
)

// ApplyRemote applies a command from another participant. Applying the same
// command again leaves the state unchanged: objects are matched by id and
// updated in place, keeping their local layer order. Events raised while
// applying are not published, so nothing is echoed back.
func (b *Bridge) ApplyRemote(cmd Command) error {
	ctx := context.Background()
	if err := cmd.Validate(); err != nil {
		b.logger.Warn(ctx, "Invalid replication command", log.Fields{"error": err, "commandID": cmd.ID})
		return err
	}
	if cmd.Origin != "" && cmd.Origin == b.origin {
		return nil
	}
	b.logger.Command(ctx, "Applying remote command", log.Fields{"verb": cmd.Verb, "objectID": cmd.ObjectID, "origin": cmd.Origin})

	s := b.registry.FindOrCreate(cmd.Surface.ID, cmd.Surface.ParentID)
	err := b.events.Muted(func() error {
		switch {
		case creates[cmd.Verb]:
			return b.applyCreate(s, cmd)
		case cmd.Verb == SwitchPage:
			return b.pages.SwitchPage(s, *cmd.Change.Page)
		case cmd.Verb == ClearPage:
			b.pages.ClearPage(s, *cmd.Change.Page)
			return nil
		case cmd.Verb == Delete:
			return b.applyDelete(s, cmd.ObjectID)
		default:
			return b.applyChange(s, cmd.ObjectID, cmd.Change)
		}
	})
	if err != nil {
		b.logger.Error(ctx, "Failed to apply remote command", log.Fields{"error": err, "verb": cmd.Verb, "objectID": cmd.ObjectID})
		return fmt.Errorf("apply %s %s: %w", cmd.Verb, cmd.ObjectID, err)
	}
	return nil
}

func (b *Bridge) applyCreate(s *model.Surface, cmd Command) error {
	incoming, err := cmd.Object.Drawable(s.ID)
	if err != nil {
		return err
	}
	if s.Destroyed(incoming.ID) {
		b.logger.Debug(context.Background(), "Create of destroyed object dropped", log.Fields{"objectID": incoming.ID})
		return nil
	}
	if existing, ok := s.Object(incoming.ID); ok {
		return b.updateInPlace(s, existing, incoming)
	}

	if b.orderHolder(s, incoming.Page, incoming.Order, incoming.ID) != nil {
		sent := incoming.Order
		b.allocator.Place(incoming, b.allocator.Allocate(s, incoming.Page), model.Forward)
		b.logger.Warn(context.Background(), "Remote order already taken, reallocated", log.Fields{"objectID": incoming.ID, "sent": sent, "order": incoming.Order})
	} else {
		b.allocator.Observe(s, incoming.Page, incoming.Order)
	}
	if err := surface.Add(s, incoming); err != nil {
		return err
	}
	if incoming.Kind == model.KindMindMapNode {
		return b.tree.Attach(s, incoming.ID)
	}
	return nil
}

// orderHolder returns the allocated object other than id holding order on
// page, or nil.
func (b *Bridge) orderHolder(s *model.Surface, page, order int, id string) *model.Drawable {
	for _, o := range s.OnPage(page) {
		if o.ID != id && o.Order == order && !o.IsBranchLine() {
			return o
		}
	}
	return nil
}

// placeOrder moves d to order on its page. An object already holding order
// takes the old order of d, so orders stay distinct even when the peers
// disagree on the local orders.
func (b *Bridge) placeOrder(s *model.Surface, d *model.Drawable, order int) {
	if holder := b.orderHolder(s, d.Page, order, d.ID); holder != nil {
		b.allocator.Place(holder, d.Order, model.Forward)
		b.logger.Warn(context.Background(), "Remote order already taken, swapped", log.Fields{"objectID": d.ID, "holderID": holder.ID, "order": order, "holderOrder": holder.Order})
		if holder.Kind == model.KindMindMapNode {
			b.tree.RedrawBranchLines(s, holder.ID)
		}
	}
	b.allocator.Place(d, order, model.Forward)
	b.allocator.Observe(s, d.Page, d.Order)
}

// placeOnPage moves d to page with the sent order, or on top of the page when
// another object already holds it there.
func (b *Bridge) placeOnPage(s *model.Surface, d *model.Drawable, pageIdx, order int) {
	d.Page = pageIdx
	page.Grow(s, d.Page)
	d.State = page.StateFor(s, d.Page)
	if order <= 0 || b.orderHolder(s, d.Page, order, d.ID) != nil {
		sent := order
		order = b.allocator.Allocate(s, d.Page)
		b.logger.Warn(context.Background(), "Remote order already taken on page, reallocated", log.Fields{"objectID": d.ID, "page": d.Page, "sent": sent, "order": order})
	}
	b.allocator.Place(d, order, model.Forward)
	b.allocator.Observe(s, d.Page, d.Order)
}

// updateInPlace copies the payload and placement of incoming into existing.
// The local order and page of existing are kept, and so are the tree edges
// of a node.
func (b *Bridge) updateInPlace(s *model.Surface, existing, incoming *model.Drawable) error {
	if existing.Kind != incoming.Kind {
		return model.NewValidationError("apply remote", "object %s is a %s, not a %s", existing.ID, existing.Kind, incoming.Kind)
	}
	pos := b.allocator.Planar(incoming.Transform.Position, model.Forward, incoming.Order)
	existing.Transform = incoming.Transform
	b.allocator.MoveTo(existing, pos, model.Forward)

	existing.Line, existing.Text, existing.Image = incoming.Line, incoming.Text, incoming.Image
	if existing.Kind != model.KindMindMapNode {
		return nil
	}
	// Tree edges only change through parent and kind commands.
	if existing.Node.NodeKind != incoming.Node.NodeKind {
		// A create older than a kind change keeps the local styling.
		return b.tree.SetText(s, existing.ID, incoming.Node.Label.Content)
	}
	existing.Node.Label = incoming.Node.Label
	existing.Node.Border = incoming.Node.Border
	b.tree.RedrawBranchLines(s, existing.ID)
	return nil
}

// applyDelete destroys id. An id not seen yet is buried so that a create
// arriving late does not bring it to life.
func (b *Bridge) applyDelete(s *model.Surface, id string) error {
	d, ok := s.Object(id)
	if !ok {
		s.Bury(id)
		return nil
	}
	if d.Kind == model.KindMindMapNode {
		_, err := b.tree.RemoveNode(s, id)
		return err
	}
	event.Drawable(b.events, event.DrawableDeleted, s, d)
	_, err := surface.Delete(s, id)
	return err
}

func (b *Bridge) applyChange(s *model.Surface, id string, ch *Change) error {
	if s.Destroyed(id) {
		b.logger.Debug(context.Background(), "Change of destroyed object dropped", log.Fields{"objectID": id})
		return nil
	}
	d, ok := s.Object(id)
	if !ok {
		return fmt.Errorf("object %s: %w", id, model.ErrNotFound)
	}
	if d.IsBranchLine() {
		return nil
	}

	if ch.NodeKind != nil && d.Node != nil && d.Node.NodeKind != *ch.NodeKind {
		if err := b.tree.ChangeKind(s, id, *ch.NodeKind, ""); err != nil {
			return err
		}
	}
	if ch.ParentID != nil && d.Node != nil && *ch.ParentID != "" && *ch.ParentID != d.Node.ParentID {
		if err := b.tree.SetParent(s, id, *ch.ParentID); err != nil {
			return err
		}
	}

	switch {
	case ch.Page != nil && *ch.Page != d.Page:
		order := d.Order
		if ch.Order != nil {
			order = *ch.Order
		}
		b.placeOnPage(s, d, *ch.Page, order)
	case ch.Order != nil && *ch.Order != d.Order:
		b.placeOrder(s, d, *ch.Order)
	}
	if ch.Transform != nil {
		pos := ch.Transform.Position
		d.Transform = *ch.Transform
		b.allocator.MoveTo(d, pos, model.Forward)
	}

	l := lineOf(d)
	if l != nil {
		if ch.Points != nil && d.Line != nil {
			l.Points = ch.Points
		}
		if ch.Thickness != nil {
			l.Thickness = *ch.Thickness
		}
		if ch.LineKind != nil {
			l.LineKind = *ch.LineKind
		}
		if ch.Tiling != nil {
			l.Tiling = *ch.Tiling
		}
		if ch.ColorKind != nil {
			l.ColorKind = *ch.ColorKind
		}
		if ch.SecondaryColor != nil {
			l.SecondaryColor = *ch.SecondaryColor
		}
		geometry.Bake(l)
	}
	if ch.PrimaryColor != nil {
		switch {
		case l != nil:
			l.PrimaryColor = *ch.PrimaryColor
		case d.Text != nil:
			d.Text.FontColor = *ch.PrimaryColor
		case d.Image != nil:
			d.Image.Tint = *ch.PrimaryColor
		}
	}

	if ch.Text != nil {
		switch {
		case d.Node != nil:
			if err := b.tree.SetText(s, id, *ch.Text); err != nil && !errors.Is(err, model.ErrNotFound) {
				return err
			}
		case d.Text != nil:
			d.Text.Content = *ch.Text
			d.Text.Width, d.Text.Height = b.measurer.Measure(d.Text.Content, d.Text.FontSize, d.Text.FontStyles)
		}
	}

	if d.Node != nil && (ch.Transform != nil || ch.Order != nil || ch.Thickness != nil) {
		b.tree.RedrawBranchLines(s, id)
	}
	return nil
}
