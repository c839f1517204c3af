package session

import (
	"context"
	"fmt"
	"strings"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// handleSurfaceAdd handles the surface add command and selects the new surface
func handleSurfaceAdd(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling surface add command", log.Fields{"args": cmd.Args})

	var id, parentID, description string
	if len(cmd.Args) > 0 {
		id = cmd.Args[0]
	}
	if len(cmd.Args) > 1 {
		parentID = cmd.Args[1]
	}
	if len(cmd.Args) > 2 {
		description = strings.Join(cmd.Args[2:], " ")
	}

	surface, err := s.DataManager.SurfaceManager.SurfaceAdd(id, parentID, description)
	if err != nil {
		return nil, fmt.Errorf("failed to add surface: %w", err)
	}
	s.SurfaceSet(surface)
	return surface.ID, nil
}

// handleSurfaceSelect handles the surface select command. Without arguments it
// deselects the current surface.
func handleSurfaceSelect(s *Session, cmd model.Command) (interface{}, error) {
	if len(cmd.Args) == 0 {
		s.SurfaceSet(nil)
		return "Surface deselected", nil
	}
	parentID := ""
	if len(cmd.Args) > 1 {
		parentID = cmd.Args[1]
	}
	surface, err := s.DataManager.SurfaceManager.SurfaceGet(cmd.Args[0], parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select surface: %w", err)
	}
	s.SurfaceSet(surface)
	return fmt.Sprintf("Surface %s selected", surface.ID), nil
}

// handleSurfaceList handles the surface list command
func handleSurfaceList(s *Session, cmd model.Command) (interface{}, error) {
	infos := s.DataManager.SurfaceManager.SurfaceList()
	if len(infos) == 0 {
		return "No surfaces", nil
	}
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		marker := " "
		if s.Surface != nil && s.Surface.ID == info.ID && s.Surface.ParentID == info.ParentID {
			marker = "*"
		}
		name := info.ID
		if info.ParentID != "" {
			name = info.ParentID + "/" + info.ID
		}
		lines = append(lines, fmt.Sprintf("%s %s page %d/%d, %d objects %s",
			marker, name, info.CurrentPage, info.MaxPageSize, info.Objects, info.Description))
	}
	return "\n" + strings.Join(lines, "\n"), nil
}

// handleSurfaceDelete handles the surface delete command. Without arguments it
// deletes the current surface.
func handleSurfaceDelete(s *Session, cmd model.Command) (interface{}, error) {
	var id, parentID string
	switch len(cmd.Args) {
	case 0:
		surface, err := s.SurfaceGet()
		if err != nil {
			return nil, err
		}
		id, parentID = surface.ID, surface.ParentID
	case 1:
		id = cmd.Args[0]
	default:
		id, parentID = cmd.Args[0], cmd.Args[1]
	}

	if err := s.DataManager.SurfaceManager.SurfaceDelete(id, parentID); err != nil {
		return nil, fmt.Errorf("failed to delete surface: %w", err)
	}
	if s.Surface != nil && s.Surface.ID == id && s.Surface.ParentID == parentID {
		s.SurfaceSet(nil)
	}
	return fmt.Sprintf("Surface %s deleted", id), nil
}

// handleSurfaceView lists the objects of the current page in drawing order
func handleSurfaceView(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	objects := s.DataManager.Pages.Objects(surface, surface.CurrentPage)
	lines := []string{fmt.Sprintf("Surface %s, page %d of %d", surface.ID, surface.CurrentPage, surface.MaxPageSize)}
	for _, d := range objects {
		lines = append(lines, describe(s, d))
	}
	return "\n" + strings.Join(lines, "\n"), nil
}

// handleSurfaceSave handles the surface save command
func handleSurfaceSave(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.SurfaceManager.SurfaceSave(surface.ID, surface.ParentID); err != nil {
		return nil, fmt.Errorf("failed to save surface: %w", err)
	}
	return fmt.Sprintf("Surface %s saved", surface.ID), nil
}

// handleSurfaceLoad restores a stored snapshot and selects it
func handleSurfaceLoad(s *Session, cmd model.Command) (interface{}, error) {
	parentID := ""
	if len(cmd.Args) > 1 {
		parentID = cmd.Args[1]
	}
	surface, err := s.DataManager.SurfaceManager.SurfaceLoad(cmd.Args[0], parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load surface: %w", err)
	}
	s.SurfaceSet(surface)
	return fmt.Sprintf("Surface %s loaded", surface.ID), nil
}

// handleSurfaceStored lists the stored snapshots
func handleSurfaceStored(s *Session, cmd model.Command) (interface{}, error) {
	records, err := s.DataManager.SurfaceManager.SurfaceStored()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return "No stored surfaces", nil
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%s (parent %q) %d objects, saved %s", r.ID, r.ParentID, r.Objects, r.Updated.Format("2006-01-02 15:04:05")))
	}
	return "\n" + strings.Join(lines, "\n"), nil
}

// handleSurfaceValidate checks the invariants of the current surface
func handleSurfaceValidate(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.Validate(surface); err != nil {
		return nil, fmt.Errorf("surface %s is inconsistent: %w", surface.ID, err)
	}
	return "Surface is consistent", nil
}

// describe formats one object for listings.
func describe(s *Session, d *model.Drawable) string {
	pos := s.DataManager.DrawableManager.Planar(d)
	line := fmt.Sprintf("  [%d] %s %s at %s", d.Order, d.Kind, d.ID, pos)
	switch {
	case d.Text != nil:
		line += fmt.Sprintf(" %q", d.Text.Content)
	case d.Node != nil:
		line += fmt.Sprintf(" %s %q", d.Node.NodeKind, d.Node.Label.Content)
		if d.Node.ParentID != "" {
			line += " parent " + d.Node.ParentID
		}
	case d.Image != nil:
		line += " " + d.Image.FileName
	case d.Line != nil:
		line += fmt.Sprintf(" %d points %s", len(d.Line.Points), d.Line.PrimaryColor.Hex())
	}
	return line
}
