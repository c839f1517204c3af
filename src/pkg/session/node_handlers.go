package session

import (
	"context"
	"fmt"
	"strings"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/mindmap"
	"inkboard/src/pkg/model"
)

// noParent is the parent argument that leaves or makes a node parentless.
const noParent = "-"

// handleNodeAdd handles the node add command
func handleNodeAdd(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling node add command", log.Fields{"args": cmd.Args})

	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseNodeKind(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	pos, err := parseVec(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	spec := mindmap.NodeSpec{Kind: kind, Text: cmd.Args[2], Position: pos}
	if len(cmd.Args) > 3 && cmd.Args[3] != noParent {
		if spec.ParentID, err = s.resolve(cmd.Args[3]); err != nil {
			return nil, err
		}
	}

	s.logger.Debug(ctx, "Adding mind-map node", log.Fields{"kind": kind, "parentID": spec.ParentID})
	d, err := s.DataManager.DrawableManager.AddNode(surface, spec)
	if err != nil {
		if d != nil {
			// The node exists but its parent was rejected.
			s.remember(d)
		}
		s.logger.Error(ctx, "Failed to add node", log.Fields{"error": err})
		return nil, fmt.Errorf("failed to add node: %w", err)
	}
	return s.remember(d), nil
}

// handleNodeUpdate replaces the label of a node
func handleNodeUpdate(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	id, err := s.resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.Tree.SetText(surface, id, strings.Join(cmd.Args[1:], " ")); err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	return fmt.Sprintf("Node %s updated", id), nil
}

// handleNodeMove moves a node and its branch lines
func handleNodeMove(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	id, err := s.resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	pos, err := parseVec(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.Tree.MoveNode(surface, id, pos); err != nil {
		return nil, fmt.Errorf("failed to move node: %w", err)
	}
	return fmt.Sprintf("Node %s moved to %s", id, pos), nil
}

// handleNodeParent attaches a node to a new parent
func handleNodeParent(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling node parent command", log.Fields{"args": cmd.Args})

	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	id, err := s.resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	parentID, err := s.resolve(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.Tree.SetParent(surface, id, parentID); err != nil {
		return nil, fmt.Errorf("failed to change parent: %w", err)
	}
	return fmt.Sprintf("Node %s is now a child of %s", id, parentID), nil
}

// handleNodeKind switches the kind of a node, optionally assigning a parent
func handleNodeKind(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	id, err := s.resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseNodeKind(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	parentID := ""
	if len(cmd.Args) > 2 && cmd.Args[2] != noParent {
		if parentID, err = s.resolve(cmd.Args[2]); err != nil {
			return nil, err
		}
	}
	if err := s.DataManager.Tree.ChangeKind(surface, id, kind, parentID); err != nil {
		return nil, fmt.Errorf("failed to change node kind: %w", err)
	}
	return fmt.Sprintf("Node %s is now a %s", id, kind), nil
}

// handleNodeDelete removes a node with its subtree
func handleNodeDelete(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	id, err := s.resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	removed, err := s.DataManager.Tree.RemoveNode(surface, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete node: %w", err)
	}
	if s.Last == id {
		s.Last = ""
	}
	return fmt.Sprintf("%d objects removed", len(removed)), nil
}

// handleNodeChildren lists the direct children of a node
func handleNodeChildren(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	id, err := s.resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if _, ok := surface.Object(id); !ok {
		return nil, fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	children := s.DataManager.Tree.Children(surface, id)
	if len(children) == 0 {
		return fmt.Sprintf("Node %s has no children", id), nil
	}
	return strings.Join(children, " "), nil
}

// handleNodeView prints the mind-map forest of the current surface
func handleNodeView(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, d := range surface.Nodes() {
		if d.Node.ParentID == "" {
			writeNode(&b, s, surface, d.ID, 0)
		}
	}
	if b.Len() == 0 {
		return "No mind-map nodes", nil
	}
	return "\n" + strings.TrimRight(b.String(), "\n"), nil
}

func writeNode(b *strings.Builder, s *Session, surface *model.Surface, id string, depth int) {
	d, ok := surface.Object(id)
	if !ok || d.Node == nil {
		return
	}
	fmt.Fprintf(b, "%s%s [%s] %s\n", strings.Repeat("  ", depth), d.Node.Label.Content, d.Node.NodeKind, d.ID)
	for _, c := range s.DataManager.Tree.Children(surface, id) {
		writeNode(b, s, surface, c, depth+1)
	}
}
