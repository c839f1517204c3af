package mindmap

import (
	"context"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// checkParent validates making parentID the parent of d.
func checkParent(idx *index, op string, d *model.Drawable, parentID string) (*model.Drawable, error) {
	if parentID == d.ID {
		return nil, model.NewValidationError(op, "node %s cannot be its own parent", d.ID)
	}
	parent, ok := idx.nodes[parentID]
	if !ok {
		return nil, model.NewValidationError(op, "parent %s not found", parentID)
	}
	if parent.Node.NodeKind == model.Leaf {
		return nil, model.NewValidationError(op, "leaf %s cannot have children", parentID)
	}
	if parent.Page != d.Page {
		return nil, model.NewValidationError(op, "parent %s is on another page", parentID)
	}
	if idx.isAncestor(d.ID, parentID) {
		return nil, model.NewValidationError(op, "%s is a descendant of %s", parentID, d.ID)
	}
	return parent, nil
}

// SetParent makes parentID the parent of id. It is rejected when the parent
// is the node itself, one of its descendants or a leaf, and when the node is
// a theme. On success the old branch line is replaced and layers below the
// node are recomputed.
func (t *Tree) SetParent(s *model.Surface, id, parentID string) error {
	ctx := context.Background()
	t.logger.Info(ctx, "Changing node parent", log.Fields{"nodeID": id, "parentID": parentID})

	d, err := node(s, id)
	if err != nil {
		return err
	}
	if d.Node.NodeKind == model.Theme {
		return model.NewValidationError("set parent", "theme %s cannot have a parent", id)
	}
	idx := buildIndex(s)
	parent, err := checkParent(idx, "set parent", d, parentID)
	if err != nil {
		t.logger.Warn(ctx, "Parent change rejected", log.Fields{"nodeID": id, "parentID": parentID, "error": err})
		return err
	}

	style := t.detach(s, d)
	d.Node.ParentID = parent.ID
	bl := t.newBranchLine(s, parent, d, style)
	d.Node.BranchLineID = bl.ID

	idx = buildIndex(s)
	idx.propagateLayers(d.ID, parent.Node.Layer+1)
	t.emit(event.DrawableUpdated, s, d, event.FieldParent)

	t.logger.Info(ctx, "Node parent changed", log.Fields{"nodeID": id, "parentID": parentID, "layer": d.Node.Layer})
	return nil
}

// ChangeKind switches the kind of a node. Becoming a leaf requires the node
// to have no children; becoming a theme detaches it from its parent. Other
// transitions are always legal. parentID, when set, is assigned after the
// change and is validated before anything is modified.
func (t *Tree) ChangeKind(s *model.Surface, id string, kind model.NodeKind, parentID string) error {
	ctx := context.Background()
	t.logger.Info(ctx, "Changing node kind", log.Fields{"nodeID": id, "kind": kind, "parentID": parentID})

	d, err := node(s, id)
	if err != nil {
		return err
	}
	idx := buildIndex(s)
	if kind == model.Leaf && len(idx.children[id]) > 0 {
		return model.NewValidationError("change kind", "node %s has %d children and cannot become a leaf", id, len(idx.children[id]))
	}
	if parentID != "" {
		if kind == model.Theme {
			return model.NewValidationError("change kind", "a theme cannot have a parent")
		}
		if _, err := checkParent(idx, "change kind", d, parentID); err != nil {
			return err
		}
	}
	if d.Node.NodeKind == kind && parentID == "" {
		return nil
	}

	if kind == model.Theme {
		t.detach(s, d)
		buildIndex(s).propagateLayers(id, 0)
	}
	t.restyle(d, kind)
	t.emit(event.DrawableUpdated, s, d, event.FieldNodeKind)

	if parentID != "" {
		return t.SetParent(s, id, parentID)
	}
	t.RedrawBranchLines(s, id)
	return nil
}

// Attach rebuilds derived state for a node whose record was inserted
// directly, as on load or remote apply: the branch line to its parent, the
// branch lines of children waiting for it, and layers.
func (t *Tree) Attach(s *model.Surface, id string) error {
	d, err := node(s, id)
	if err != nil {
		return err
	}
	idx := buildIndex(s)
	if parent, ok := idx.nodes[d.Node.ParentID]; ok {
		if idx.isAncestor(d.ID, parent.ID) {
			return model.NewValidationError("attach", "%s is a descendant of %s", parent.ID, d.ID)
		}
		t.ensureBranchLine(s, parent, d)
		idx.propagateLayers(d.ID, parent.Node.Layer+1)
	} else if d.Node.ParentID == "" {
		idx.propagateLayers(d.ID, 0)
	}
	for _, cid := range idx.children[id] {
		t.ensureBranchLine(s, d, idx.nodes[cid])
	}
	return nil
}
