package mindmap

import (
	"inkboard/src/pkg/event"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/model"
)

// anchors returns the branch line end points: the point of the parent border
// nearest the child center, and the point of the child border nearest that.
func (t *Tree) anchors(parent, child *model.Drawable) (start, end model.Vec3) {
	end = t.nearestOnBorder(parent, t.Center(child))
	start = t.nearestOnBorder(child, end)
	return start, end
}

// newBranchLine creates the branch line between parent and child. style,
// when not nil, carries over the appearance of a previous branch line.
func (t *Tree) newBranchLine(s *model.Surface, parent, child *model.Drawable, style *model.Line) *model.Drawable {
	start, end := t.anchors(parent, child)
	line := &model.Line{
		Points:         []model.Vec3{start, end},
		Thickness:      BorderThickness,
		ColorKind:      model.Monochrome,
		PrimaryColor:   model.Black,
		SecondaryColor: model.White,
		LineKind:       model.Solid,
		Tiling:         model.DefaultTiling,
	}
	if style != nil {
		line.StyleFrom(style)
		line.Loop = false
		line.FillOut = false
	}
	line.Branch = &model.BranchRef{ParentID: parent.ID, ChildID: child.ID}

	d := &model.Drawable{
		ID:        model.BranchLineID(parent.ID, child.ID),
		SurfaceID: s.ID,
		Kind:      model.KindLine,
		Page:      child.Page,
		Transform: model.IdentityTransform(),
		State:     model.StateActive,
		Line:      line,
	}
	if child.State == model.StateHidden {
		d.State = model.StateHidden
	}
	t.allocator.Place(d, layer.BranchOrder(parent.Order, child.Order), model.Forward)
	s.Objects[d.ID] = d
	t.emit(event.DrawableCreated, s, d)
	return d
}

// refreshBranchLine recomputes anchors and order of an existing branch line.
func (t *Tree) refreshBranchLine(s *model.Surface, bl, parent, child *model.Drawable) {
	start, end := t.anchors(parent, child)
	bl.Line.Points = []model.Vec3{start, end}
	order := layer.BranchOrder(parent.Order, child.Order)
	changed := []string{event.FieldPoints}
	if order != bl.Order {
		t.allocator.Place(bl, order, model.Forward)
		changed = append(changed, event.FieldOrder)
	}
	t.emit(event.DrawableUpdated, s, bl, changed...)
}

// RedrawBranchLines recomputes the branch line to the parent of id and the
// branch lines to all of its children. Missing branch lines are recreated.
func (t *Tree) RedrawBranchLines(s *model.Surface, id string) {
	idx := buildIndex(s)
	d, ok := idx.nodes[id]
	if !ok {
		return
	}
	if parent, ok := idx.nodes[d.Node.ParentID]; ok {
		t.ensureBranchLine(s, parent, d)
	}
	for _, cid := range idx.children[id] {
		t.ensureBranchLine(s, d, idx.nodes[cid])
	}
}

// ensureBranchLine refreshes or creates the branch line of child. A branch
// line left over from another parent is replaced.
func (t *Tree) ensureBranchLine(s *model.Surface, parent, child *model.Drawable) {
	id := child.Node.BranchLineID
	if id == "" {
		id = model.BranchLineID(parent.ID, child.ID)
	}
	if bl, ok := s.Object(id); ok && bl.IsBranchLine() {
		if bl.Line.Branch.ParentID == parent.ID {
			child.Node.BranchLineID = id
			t.refreshBranchLine(s, bl, parent, child)
			return
		}
		t.removeObject(s, bl)
	}
	bl := t.newBranchLine(s, parent, child, nil)
	child.Node.BranchLineID = bl.ID
}

// detach removes the parent edge of d and destroys its branch line. It
// returns the style of the destroyed line, if any.
func (t *Tree) detach(s *model.Surface, d *model.Drawable) *model.Line {
	var style *model.Line
	if bl, ok := s.Object(d.Node.BranchLineID); ok && bl.IsBranchLine() {
		copied := *bl.Line
		style = &copied
		t.removeObject(s, bl)
	}
	d.Node.ParentID = ""
	d.Node.BranchLineID = ""
	return style
}
