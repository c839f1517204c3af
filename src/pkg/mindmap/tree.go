// Package mindmap manages mind-map nodes on a surface: creation and styling,
// parent changes with cycle prevention, node kind transitions, layer
// propagation and the branch lines connecting nodes to their parents.
package mindmap

import (
	"context"
	"fmt"
	"sort"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// TextMeasurer measures a label in surface units.
type TextMeasurer interface {
	Measure(text string, size float32, styles model.FontStyle) (float32, float32)
}

// Tree applies mind-map operations to surfaces.
type Tree struct {
	allocator *layer.Allocator
	measurer  TextMeasurer
	events    event.Publisher
	logger    *log.Logger
}

// NewTree creates a Tree. events may be nil.
func NewTree(allocator *layer.Allocator, measurer TextMeasurer, events event.Publisher, logger *log.Logger) (*Tree, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	if allocator == nil {
		logger.Error(ctx, "Allocator not initialized", nil)
		return nil, fmt.Errorf("allocator not initialized")
	}
	if measurer == nil {
		logger.Error(ctx, "Text measurer not initialized", nil)
		return nil, fmt.Errorf("text measurer not initialized")
	}
	return &Tree{allocator: allocator, measurer: measurer, events: events, logger: logger}, nil
}

// index is the children multimap of a surface, rebuilt from parent ids.
type index struct {
	nodes    map[string]*model.Drawable
	children map[string][]string
}

func buildIndex(s *model.Surface) *index {
	idx := &index{nodes: make(map[string]*model.Drawable), children: make(map[string][]string)}
	for _, d := range s.Nodes() {
		idx.nodes[d.ID] = d
	}
	for _, d := range s.Nodes() {
		if p := d.Node.ParentID; p != "" {
			idx.children[p] = append(idx.children[p], d.ID)
		}
	}
	for _, c := range idx.children {
		sort.Strings(c)
	}
	return idx
}

// node returns the live node id on s.
func node(s *model.Surface, id string) (*model.Drawable, error) {
	d, ok := s.Object(id)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	if d.Kind != model.KindMindMapNode || d.Node == nil {
		return nil, model.NewValidationError("mind map", "%s is not a mind-map node", id)
	}
	return d, nil
}

// Children returns the ids of the direct children of id.
func (t *Tree) Children(s *model.Surface, id string) []string {
	return append([]string(nil), buildIndex(s).children[id]...)
}

// Descendants returns every node below id, parents before children.
func (t *Tree) Descendants(s *model.Surface, id string) []string {
	return buildIndex(s).descendants(id)
}

func (idx *index) descendants(id string) []string {
	var out []string
	queue := append([]string(nil), idx.children[id]...)
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		queue = append(queue, idx.children[c]...)
	}
	return out
}

// Ancestors walks parent ids from id upwards. The walk is bounded by the
// number of nodes, so a corrupted cyclic graph yields an error instead of
// looping.
func (t *Tree) Ancestors(s *model.Surface, id string) ([]string, error) {
	return buildIndex(s).ancestors(id)
}

func (idx *index) ancestors(id string) ([]string, error) {
	var out []string
	cur, ok := idx.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	for steps := 0; cur.Node.ParentID != ""; steps++ {
		if steps > len(idx.nodes) {
			return out, fmt.Errorf("cycle detected above node %s", id)
		}
		parentID := cur.Node.ParentID
		out = append(out, parentID)
		next, ok := idx.nodes[parentID]
		if !ok {
			break
		}
		cur = next
	}
	return out, nil
}

// isAncestor reports whether ancestor lies on the parent path of id.
func (idx *index) isAncestor(ancestor, id string) bool {
	path, err := idx.ancestors(id)
	if err != nil {
		return true
	}
	for _, p := range path {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Validate checks the mind-map invariants of s: an acyclic parent graph,
// parentless nodes only at the top, layers equal to the distance from the
// root, leaves without children and branch lines matching parent edges.
func (t *Tree) Validate(s *model.Surface) error {
	idx := buildIndex(s)
	for id, d := range idx.nodes {
		path, err := idx.ancestors(id)
		if err != nil {
			return err
		}
		if d.Node.NodeKind == model.Theme && d.Node.ParentID != "" {
			return fmt.Errorf("theme %s has parent %s", id, d.Node.ParentID)
		}
		if d.Node.Layer != len(path) {
			return fmt.Errorf("node %s has layer %d, expected %d", id, d.Node.Layer, len(path))
		}
		if d.Node.NodeKind == model.Leaf && len(idx.children[id]) > 0 {
			return fmt.Errorf("leaf %s has children", id)
		}
		if (d.Node.ParentID == "") != (d.Node.BranchLineID == "") {
			return fmt.Errorf("node %s: parent and branch line disagree", id)
		}
		if d.Node.BranchLineID != "" {
			if _, ok := s.Object(d.Node.BranchLineID); !ok {
				return fmt.Errorf("node %s: branch line %s missing", id, d.Node.BranchLineID)
			}
		}
	}
	return nil
}

// propagateLayers sets the layer of id and its subtree, top-down.
func (idx *index) propagateLayers(id string, l int) {
	type item struct {
		id    string
		layer int
	}
	queue := []item{{id, l}}
	seen := make(map[string]bool)
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if seen[it.id] {
			continue
		}
		seen[it.id] = true
		if d, ok := idx.nodes[it.id]; ok {
			d.Node.Layer = it.layer
		}
		for _, c := range idx.children[it.id] {
			queue = append(queue, item{c, it.layer + 1})
		}
	}
}

func (t *Tree) emit(typ event.EventType, s *model.Surface, d *model.Drawable, changed ...string) {
	event.Drawable(t.events, typ, s, d, changed...)
}

// removeObject destroys d and drops it from s.
func (t *Tree) removeObject(s *model.Surface, d *model.Drawable) {
	if d == nil {
		return
	}
	t.emit(event.DrawableDeleted, s, d)
	s.Destroy(d)
}
