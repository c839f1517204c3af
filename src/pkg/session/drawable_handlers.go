package session

import (
	"context"
	"fmt"
	"strings"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/shape"
)

// DefaultSplitRadius is the hit radius of line split when none is given.
const DefaultSplitRadius float32 = 0.05

// created remembers d and turns a geometry warning into part of the result.
func created(s *Session, d *model.Drawable, err error) (interface{}, error) {
	if d == nil {
		return nil, err
	}
	id := s.remember(d)
	if err != nil {
		if !model.IsWarning(err) {
			return nil, err
		}
		s.logger.Warn(context.Background(), "Object created from degenerate input", log.Fields{"objectID": id, "warning": err})
		return fmt.Sprintf("%s (warning: %v)", id, err), nil
	}
	return id, nil
}

// handleLineDraw creates a line through the given points at once
func handleLineDraw(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling line draw command", log.Fields{"args": cmd.Args})

	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	args, flags := splitFlags(cmd.Args)
	points := make([]model.Vec3, 0, len(args))
	for _, a := range args {
		p, err := parseVec(a)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	d, err := s.DataManager.DrawableManager.AddLine(surface, points, s.Context.LineStyle(), flags["loop"])
	return created(s, d, err)
}

// handleLineBegin starts an interactive line at the given point
func handleLineBegin(s *Session, cmd model.Command) (interface{}, error) {
	if _, err := s.SurfaceGet(); err != nil {
		return nil, err
	}
	p, err := parseVec(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	s.DataManager.DrawableManager.BeginLine(s.lineKey(), s.Context.LineStyle(), p)
	return "Line started", nil
}

// handleLinePoint adds points to the interactive line
func handleLinePoint(s *Session, cmd model.Command) (interface{}, error) {
	accepted := 0
	for _, a := range cmd.Args {
		p, err := parseVec(a)
		if err != nil {
			return nil, err
		}
		if s.DataManager.DrawableManager.ContinueLine(s.lineKey(), p) {
			accepted++
		}
	}
	return fmt.Sprintf("%d of %d points added", accepted, len(cmd.Args)), nil
}

// handleLineEnd finishes the interactive line on the current page
func handleLineEnd(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	_, flags := splitFlags(cmd.Args)
	d, err := s.DataManager.DrawableManager.FinishLine(s.lineKey(), surface, flags["loop"])
	return created(s, d, err)
}

// handleLineCancel drops the interactive line
func handleLineCancel(s *Session, cmd model.Command) (interface{}, error) {
	s.DataManager.DrawableManager.CancelLine(s.lineKey())
	return "Line cancelled", nil
}

// handleLineSplit splits a line at the points near a position
func handleLineSplit(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling line split command", log.Fields{"args": cmd.Args})

	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	args, flags := splitFlags(cmd.Args)
	id, err := s.resolve(args[0])
	if err != nil {
		return nil, err
	}
	target, err := parseVec(args[1])
	if err != nil {
		return nil, err
	}
	radius := DefaultSplitRadius
	if len(args) > 2 {
		if radius, err = parsePositive(args[2], "radius"); err != nil {
			return nil, err
		}
	}

	parts, err := s.DataManager.DrawableManager.SplitAt(surface, id, target, radius, !flags["keep"])
	if err != nil && !model.IsWarning(err) {
		return nil, fmt.Errorf("failed to split line: %w", err)
	}
	ids := make([]string, 0, len(parts))
	for _, d := range parts {
		ids = append(ids, s.remember(d))
	}
	if len(ids) == 0 {
		s.Last = ""
	}
	result := fmt.Sprintf("Line %s split into %d parts: %s", id, len(ids), strings.Join(ids, " "))
	if err != nil {
		result += fmt.Sprintf(" (warning: %v)", err)
	}
	return result, nil
}

// handleShapeAdd creates a closed shape around a center point
func handleShapeAdd(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling shape add command", log.Fields{"args": cmd.Args})

	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	center, err := parseVec(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	params := make([]float32, 0, len(cmd.Args)-2)
	for _, a := range cmd.Args[2:] {
		f, err := parseFloat(a)
		if err != nil {
			return nil, err
		}
		params = append(params, f)
	}
	d, err := s.DataManager.DrawableManager.AddShape(surface, shape.Kind(strings.ToLower(cmd.Args[0])), center, s.Context.LineStyle(), params...)
	return created(s, d, err)
}

// handleShapeList lists the available shapes
func handleShapeList(s *Session, cmd model.Command) (interface{}, error) {
	kinds := shape.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", "), nil
}

// handleTextAdd places a text with the session font settings
func handleTextAdd(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	pos, err := parseVec(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	content := strings.Join(cmd.Args[1:], " ")
	d, err := s.DataManager.DrawableManager.AddText(surface, pos, s.Context.TextStyle(content))
	return created(s, d, err)
}

// handleTextUpdate replaces the content of a text or a node label
func handleTextUpdate(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	id, err := s.resolve(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.DrawableManager.SetText(surface, id, strings.Join(cmd.Args[1:], " ")); err != nil {
		return nil, fmt.Errorf("failed to update text: %w", err)
	}
	return fmt.Sprintf("Text of %s updated", id), nil
}

// handleImageAdd stores a picture and places it on the current page
func handleImageAdd(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling image add command", log.Fields{"args": cmd.Args})

	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	pos, err := parseVec(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	height := float32(1)
	if len(cmd.Args) > 2 {
		if height, err = parsePositive(cmd.Args[2], "height"); err != nil {
			return nil, err
		}
	}
	d, err := s.DataManager.DrawableManager.AddImage(surface, cmd.Args[0], pos, height)
	return created(s, d, err)
}
