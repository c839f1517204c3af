package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// target resolves the surface and the object argument of an object command.
func target(s *Session, arg string) (*model.Surface, string, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, "", err
	}
	id, err := s.resolve(arg)
	if err != nil {
		return nil, "", err
	}
	return surface, id, nil
}

// handleObjectInfo describes one object
func handleObjectInfo(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	d, ok := surface.Object(id)
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, model.ErrNotFound)
	}
	info := []string{
		strings.TrimSpace(describe(s, d)),
		fmt.Sprintf("page %d, state %s, scale %s, rotation %s", d.Page, d.State, d.Transform.Scale, d.Transform.EulerAngles),
	}
	if l := d.Line; l != nil {
		info = append(info, fmt.Sprintf("thickness %g, %s %s/%s, %s tiling %g, loop %t",
			l.Thickness, l.ColorKind, l.PrimaryColor.Hex(), l.SecondaryColor.Hex(), l.LineKind, l.Tiling, l.Loop))
		if l.Branch != nil {
			info = append(info, fmt.Sprintf("branch %s -> %s", l.Branch.ParentID, l.Branch.ChildID))
		}
	}
	if t := d.Text; t != nil {
		info = append(info, fmt.Sprintf("font %g %s, size %gx%g", t.FontSize, t.FontColor.Hex(), t.Width, t.Height))
	}
	if img := d.Image; img != nil {
		info = append(info, fmt.Sprintf("blob %s (%s), size %gx%g", img.FileName, img.Hash, img.Width, img.Height))
	}
	if n := d.Node; n != nil {
		info = append(info, fmt.Sprintf("layer %d, label %gx%g", n.Layer, n.Label.Width, n.Label.Height))
	}
	return "\n" + strings.Join(info, "\n"), nil
}

// handleObjectColor sets the main color of an object
func handleObjectColor(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	c, err := model.ParseColor(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.DrawableManager.SetColor(surface, id, c); err != nil {
		return nil, fmt.Errorf("failed to set color: %w", err)
	}
	return fmt.Sprintf("Color of %s set to %s", id, c.Hex()), nil
}

// handleObjectGradient sets the color kind and second color of a line
func handleObjectGradient(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseColorKind(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	secondary := s.Context.SecondaryColor
	if len(cmd.Args) > 2 {
		if secondary, err = model.ParseColor(cmd.Args[2]); err != nil {
			return nil, err
		}
	}
	if err := s.DataManager.DrawableManager.SetGradient(surface, id, kind, secondary); err != nil {
		return nil, fmt.Errorf("failed to set color kind: %w", err)
	}
	return fmt.Sprintf("Color kind of %s set to %s", id, kind), nil
}

// handleObjectThickness sets the thickness of a line or node border
func handleObjectThickness(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	thickness, err := parseFloat(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.DrawableManager.SetThickness(surface, id, thickness); err != nil {
		return nil, fmt.Errorf("failed to set thickness: %w", err)
	}
	return fmt.Sprintf("Thickness of %s set to %g", id, thickness), nil
}

// handleObjectLineKind sets the dash pattern of a line or node border
func handleObjectLineKind(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseLineKind(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	var tiling float32
	if len(cmd.Args) > 2 {
		if tiling, err = parsePositive(cmd.Args[2], "tiling"); err != nil {
			return nil, err
		}
	}
	if err := s.DataManager.DrawableManager.SetLineKind(surface, id, kind, tiling); err != nil {
		return nil, fmt.Errorf("failed to set line kind: %w", err)
	}
	return fmt.Sprintf("Line kind of %s set to %s", id, kind), nil
}

// handleObjectMove places an object at a new position
func handleObjectMove(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	pos, err := parseVec(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.DrawableManager.Move(surface, id, pos); err != nil {
		return nil, fmt.Errorf("failed to move object: %w", err)
	}
	return fmt.Sprintf("Object %s moved to %s", id, pos), nil
}

// handleObjectGlide moves an object over time
func handleObjectGlide(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	pos, err := parseVec(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	duration, err := parseMillis(cmd.Args[2])
	if err != nil {
		return nil, err
	}
	if _, err := s.DataManager.DrawableManager.Glide(surface, id, pos, duration); err != nil {
		return nil, fmt.Errorf("failed to start glide: %w", err)
	}
	return fmt.Sprintf("Object %s gliding to %s", id, pos), nil
}

// handleObjectResize scales an object over time
func handleObjectResize(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	scale, err := parseVec(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	duration, err := parseMillis(cmd.Args[2])
	if err != nil {
		return nil, err
	}
	if _, err := s.DataManager.DrawableManager.Resize(surface, id, scale, duration); err != nil {
		return nil, fmt.Errorf("failed to start resize: %w", err)
	}
	return fmt.Sprintf("Object %s resizing to %s", id, scale), nil
}

// handleObjectFade changes the opacity of an object over time
func handleObjectFade(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	alpha, err := parseFloat(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be within [0, 1], got %g", alpha)
	}
	duration, err := parseMillis(cmd.Args[2])
	if err != nil {
		return nil, err
	}
	if _, err := s.DataManager.DrawableManager.Fade(surface, id, alpha, duration); err != nil {
		return nil, fmt.Errorf("failed to start fade: %w", err)
	}
	return fmt.Sprintf("Object %s fading to %g", id, alpha), nil
}

// handleObjectRotate sets the rotation of an object. A single number turns it
// around the surface normal.
func handleObjectRotate(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	var angles model.Vec3
	if strings.Contains(cmd.Args[1], ",") {
		if angles, err = parseVec(cmd.Args[1]); err != nil {
			return nil, err
		}
	} else {
		deg, err := parseFloat(cmd.Args[1])
		if err != nil {
			return nil, err
		}
		angles = model.V3(0, 0, deg)
	}
	if err := s.DataManager.DrawableManager.Rotate(surface, id, angles); err != nil {
		return nil, fmt.Errorf("failed to rotate object: %w", err)
	}
	return fmt.Sprintf("Object %s rotated to %s", id, angles), nil
}

// handleObjectCopy puts a copy of an object on the session clipboard
func handleObjectCopy(s *Session, cmd model.Command) (interface{}, error) {
	d, err := s.copyToClipboard(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Object %s copied", d.ID), nil
}

// handleObjectCut puts a copy of an object on the clipboard and deletes it
func handleObjectCut(s *Session, cmd model.Command) (interface{}, error) {
	d, err := s.copyToClipboard(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	removed, err := s.DataManager.DrawableManager.Delete(s.Surface, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to cut object: %w", err)
	}
	if s.Last == d.ID {
		s.Last = ""
	}
	return fmt.Sprintf("Object %s cut, %d objects removed", d.ID, len(removed)), nil
}

// copyToClipboard stores a detached copy of the object named by arg.
func (s *Session) copyToClipboard(arg string) (*model.Drawable, error) {
	surface, id, err := target(s, arg)
	if err != nil {
		return nil, err
	}
	d, ok := surface.Object(id)
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, model.ErrNotFound)
	}
	if d.IsBranchLine() {
		return nil, fmt.Errorf("branch line %s follows its nodes", id)
	}
	c, err := d.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to copy object: %w", err)
	}
	c.Transform.Position = s.DataManager.DrawableManager.Planar(d)
	c.Order = 0
	s.Clipboard = c
	s.logger.Debug(context.Background(), "Object copied to clipboard", log.Fields{"sessionID": s.ID, "objectID": id})
	return c, nil
}

// handleObjectPaste places the clipboard object on the current surface. The
// optional arguments are the position and the page of the copy.
func handleObjectPaste(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	if s.Clipboard == nil {
		return nil, errors.New("clipboard is empty")
	}
	pageIdx := surface.CurrentPage
	var pos *model.Vec3
	for _, arg := range cmd.Args {
		if strings.Contains(arg, ",") {
			v, err := parseVec(arg)
			if err != nil {
				return nil, err
			}
			pos = &v
			continue
		}
		if pageIdx, err = parseInt(arg); err != nil {
			return nil, err
		}
	}
	d, err := s.DataManager.DrawableManager.Paste(surface, s.Clipboard, pageIdx, pos)
	if err != nil {
		return nil, fmt.Errorf("failed to paste object: %w", err)
	}
	return s.remember(d), nil
}

// handleObjectDelete removes an object, immediately or after a delay
func handleObjectDelete(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling object delete command", log.Fields{"args": cmd.Args})

	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if len(cmd.Args) > 1 {
		delay, err := parseMillis(cmd.Args[1])
		if err != nil {
			return nil, err
		}
		if _, err := s.DataManager.DrawableManager.DeleteAfter(surface, id, delay); err != nil {
			return nil, fmt.Errorf("failed to schedule delete: %w", err)
		}
		return fmt.Sprintf("Object %s will be deleted in %s", id, delay), nil
	}

	removed, err := s.DataManager.DrawableManager.Delete(surface, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete object: %w", err)
	}
	if s.Last == id {
		s.Last = ""
	}
	return fmt.Sprintf("%d objects removed", len(removed)), nil
}
