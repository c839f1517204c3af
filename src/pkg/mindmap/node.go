package mindmap

import (
	"context"
	"strings"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/geometry"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/shape"
)

// BorderPadding is added to both label dimensions for rectangular borders.
const BorderPadding float32 = 0.05

// BorderThickness is the line thickness of node borders and branch lines.
const BorderThickness float32 = 0.01

// NodeSpec describes a node to create. ID is generated when empty.
type NodeSpec struct {
	ID       string
	Kind     model.NodeKind
	Text     string
	Position model.Vec3
	ParentID string
}

// FontFor returns the label font size and styles of a node kind.
func FontFor(kind model.NodeKind) (float32, model.FontStyle) {
	switch kind {
	case model.Theme:
		return 1.0, model.FontBold | model.FontUnderline
	case model.Subtheme:
		return 0.7, model.FontNormal
	default:
		return 0.5, model.FontNormal
	}
}

// BorderPoints returns the border loop for a label of size w x h, centered
// on the node origin: an ellipse for themes and leaves, a subdivided
// rectangle for subthemes.
func BorderPoints(kind model.NodeKind, w, h float32) []model.Vec3 {
	if kind == model.Subtheme {
		return shape.MindMapRectangle(model.Vec3{}, w+BorderPadding, h+BorderPadding)
	}
	return shape.Ellipse(model.Vec3{}, w, h)
}

// styleBorder applies the border appearance of kind.
func styleBorder(l *model.Line, kind model.NodeKind) {
	l.Loop = true
	l.ColorKind = model.Monochrome
	l.Tiling = model.DefaultTiling
	if kind == model.Leaf {
		l.LineKind = model.Dashed25
		l.PrimaryColor = model.Clear
		return
	}
	l.LineKind = model.Solid
	l.PrimaryColor = model.Black
}

// restyle applies font, border style and border geometry for kind.
func (t *Tree) restyle(d *model.Drawable, kind model.NodeKind) {
	n := d.Node
	n.NodeKind = kind
	n.Label.FontSize, n.Label.FontStyles = FontFor(kind)
	styleBorder(&n.Border, kind)
	t.remeasure(d)
}

// remeasure sizes the label and rebuilds the border around it.
func (t *Tree) remeasure(d *model.Drawable) {
	n := d.Node
	n.Label.Width, n.Label.Height = t.measurer.Measure(n.Label.Content, n.Label.FontSize, n.Label.FontStyles)
	n.Border.Points = BorderPoints(n.NodeKind, n.Label.Width, n.Label.Height)
	n.Border.Collider = nil
}

// CreateNode adds a node at spec.Position on the current page of s. Nodes
// start at layer 0; a parent given in spec is assigned right after creation
// and must pass the same checks as SetParent.
func (t *Tree) CreateNode(s *model.Surface, spec NodeSpec) (*model.Drawable, error) {
	ctx := context.Background()
	t.logger.Info(ctx, "Creating mind-map node", log.Fields{"surfaceID": s.ID, "kind": spec.Kind, "parentID": spec.ParentID})

	if strings.TrimSpace(spec.Text) == "" {
		return nil, model.NewValidationError("create node", "node text is empty")
	}
	if spec.ParentID != "" {
		if spec.Kind == model.Theme {
			return nil, model.NewValidationError("create node", "a theme cannot have a parent")
		}
		parent, err := node(s, spec.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Node.NodeKind == model.Leaf {
			return nil, model.NewValidationError("create node", "leaf %s cannot have children", parent.ID)
		}
	}
	id := spec.ID
	if id == "" {
		id = model.NewID(model.NodePrefix(spec.Kind))
	}
	if _, exists := s.Object(id); exists {
		return nil, model.NewValidationError("create node", "id %s already in use", id)
	}

	d := &model.Drawable{
		ID:        id,
		SurfaceID: s.ID,
		Kind:      model.KindMindMapNode,
		Page:      s.CurrentPage,
		Transform: model.TransformAt(model.V3(spec.Position.X, spec.Position.Y, 0)),
		State:     model.StateActive,
		Node: &model.MindMapNode{
			BorderID: model.BorderID(id),
			LabelID:  model.LabelID(id),
			Label:    model.Text{Content: spec.Text, FontColor: model.Black},
			Border:   model.Line{Thickness: BorderThickness, SecondaryColor: model.White},
		},
	}
	t.restyle(d, spec.Kind)
	t.allocator.Place(d, t.allocator.Allocate(s, d.Page), model.Forward)
	s.Objects[id] = d
	t.emit(event.DrawableCreated, s, d)

	if spec.ParentID != "" {
		if err := t.SetParent(s, id, spec.ParentID); err != nil {
			return d, err
		}
	}

	t.logger.Info(ctx, "Mind-map node created", log.Fields{"nodeID": id, "order": d.Order})
	return d, nil
}

// SetText changes the label of a node and resizes its border.
func (t *Tree) SetText(s *model.Surface, id, text string) error {
	d, err := node(s, id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return model.NewValidationError("set text", "node text is empty")
	}
	d.Node.Label.Content = text
	t.remeasure(d)
	t.emit(event.DrawableUpdated, s, d, event.FieldText)
	t.RedrawBranchLines(s, id)
	return nil
}

// MoveNode moves a node to the planar position pos and follows with its
// branch lines.
func (t *Tree) MoveNode(s *model.Surface, id string, pos model.Vec3) error {
	d, err := node(s, id)
	if err != nil {
		return err
	}
	t.allocator.MoveTo(d, model.V3(pos.X, pos.Y, 0), model.Forward)
	t.emit(event.DrawableUpdated, s, d, event.FieldTransform)
	t.RedrawBranchLines(s, id)
	return nil
}

// Center returns the planar center of a node on its surface.
func (t *Tree) Center(d *model.Drawable) model.Vec3 {
	p := t.allocator.Planar(d.Transform.Position, model.Forward, d.Order)
	return model.V3(p.X, p.Y, 0)
}

// nearestOnBorder returns the border point of d closest to target, flattened.
func (t *Tree) nearestOnBorder(d *model.Drawable, target model.Vec3) model.Vec3 {
	tr := d.Transform
	tr.Position = t.Center(d)
	p, ok := geometry.NearestPoint(tr, d.Node.Border.Points, target)
	if !ok {
		return tr.Position
	}
	return model.V3(p.X, p.Y, 0)
}
