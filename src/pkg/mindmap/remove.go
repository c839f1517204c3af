package mindmap

import (
	"context"
	"fmt"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// RemoveNode destroys a node together with its subtree and every branch
// line attached to them. It returns the ids of all destroyed objects,
// deepest nodes first.
func (t *Tree) RemoveNode(s *model.Surface, id string) ([]string, error) {
	ctx := context.Background()
	t.logger.Info(ctx, "Removing mind-map node", log.Fields{"nodeID": id})

	d, err := node(s, id)
	if err != nil {
		return nil, err
	}
	idx := buildIndex(s)
	subtree := append([]string{id}, idx.descendants(id)...)

	var removed []string
	for i := len(subtree) - 1; i >= 0; i-- {
		n := idx.nodes[subtree[i]]
		if bl, ok := s.Object(n.Node.BranchLineID); ok && bl.IsBranchLine() {
			t.removeObject(s, bl)
			removed = append(removed, bl.ID)
		}
		t.removeObject(s, n)
		removed = append(removed, n.ID)
	}

	t.logger.Info(ctx, "Mind-map node removed", log.Fields{"nodeID": d.ID, "removed": len(removed)})
	return removed, nil
}

// ChangeOrder moves any drawable of s to a new layer order. Branch lines of
// nodes whose order changed follow the branch order rule.
func (t *Tree) ChangeOrder(s *model.Surface, id string, order int) error {
	d, ok := s.Object(id)
	if !ok {
		return fmt.Errorf("object %s: %w", id, model.ErrNotFound)
	}
	if d.IsBranchLine() {
		return model.NewValidationError("change order", "branch line order follows its nodes")
	}
	changed, err := t.allocator.Rebase(s, d, order, model.Forward)
	if err != nil {
		return err
	}
	for _, c := range changed {
		t.emit(event.DrawableUpdated, s, c, event.FieldOrder)
	}
	for _, c := range changed {
		if c.Kind == model.KindMindMapNode {
			t.RedrawBranchLines(s, c.ID)
		}
	}
	return nil
}
