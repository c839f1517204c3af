package session

import (
	"fmt"
	"strings"

	"inkboard/src/pkg/config"
	"inkboard/src/pkg/model"
)

// handleContextShow prints the drawing context applied to new objects
func handleContextShow(s *Session, cmd model.Command) (interface{}, error) {
	dc := s.Context
	lines := []string{
		fmt.Sprintf("color %s, secondary %s, %s", dc.PrimaryColor.Hex(), dc.SecondaryColor.Hex(), dc.ColorKind),
		fmt.Sprintf("thickness %g, %s tiling %g", dc.Thickness, dc.LineKind, dc.Tiling),
		fmt.Sprintf("fill %t %s", dc.FillOut, dc.FillOutColor.Hex()),
		fmt.Sprintf("font %g %s %s", dc.FontSize, fontStyleNames(dc.FontStyles), dc.FontColor.Hex()),
	}
	return "\n" + strings.Join(lines, "\n"), nil
}

// handleContextColor sets the line and font color
func handleContextColor(s *Session, cmd model.Command) (interface{}, error) {
	c, err := model.ParseColor(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	s.Context.PrimaryColor = c
	s.Context.FontColor = c
	return fmt.Sprintf("Color set to %s", c.Hex()), nil
}

// handleContextSecondary sets the second color of gradient and two-dashed lines
func handleContextSecondary(s *Session, cmd model.Command) (interface{}, error) {
	c, err := model.ParseColor(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	s.Context.SecondaryColor = c
	return fmt.Sprintf("Secondary color set to %s", c.Hex()), nil
}

// handleContextColorKind sets how new lines are colored
func handleContextColorKind(s *Session, cmd model.Command) (interface{}, error) {
	kind, err := model.ParseColorKind(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	s.Context.ColorKind = kind
	return fmt.Sprintf("Color kind set to %s", kind), nil
}

// handleContextThickness sets the thickness of new lines
func handleContextThickness(s *Session, cmd model.Command) (interface{}, error) {
	t, err := parsePositive(cmd.Args[0], "thickness")
	if err != nil {
		return nil, err
	}
	s.Context.Thickness = t
	return fmt.Sprintf("Thickness set to %g", t), nil
}

// handleContextLineKind sets the dash pattern of new lines
func handleContextLineKind(s *Session, cmd model.Command) (interface{}, error) {
	kind, err := model.ParseLineKind(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	tiling := model.DefaultTiling
	if len(cmd.Args) > 1 {
		if tiling, err = parsePositive(cmd.Args[1], "tiling"); err != nil {
			return nil, err
		}
	}
	s.Context.LineKind = kind
	s.Context.Tiling = tiling
	return fmt.Sprintf("Line kind set to %s", kind), nil
}

// handleContextFill switches the filling of closed lines
func handleContextFill(s *Session, cmd model.Command) (interface{}, error) {
	on, err := parseBool(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if len(cmd.Args) > 1 {
		c, err := model.ParseColor(cmd.Args[1])
		if err != nil {
			return nil, err
		}
		s.Context.FillOutColor = c
	}
	s.Context.FillOut = on
	return fmt.Sprintf("Fill %t", on), nil
}

// handleContextFont sets the font size and, optionally, the styles of new texts
func handleContextFont(s *Session, cmd model.Command) (interface{}, error) {
	size, err := parsePositive(cmd.Args[0], "font size")
	if err != nil {
		return nil, err
	}
	styles := s.Context.FontStyles
	if len(cmd.Args) > 1 {
		if styles, err = parseFontStyles(cmd.Args[1]); err != nil {
			return nil, err
		}
	}
	s.Context.FontSize = size
	s.Context.FontStyles = styles
	return fmt.Sprintf("Font set to %g %s", size, fontStyleNames(styles)), nil
}

// handleContextReset restores the configured defaults
func handleContextReset(s *Session, cmd model.Command) (interface{}, error) {
	dc, err := config.DrawingContext(s.DataManager.Config)
	if err != nil {
		return nil, err
	}
	s.Context = dc
	return "Drawing context reset", nil
}

func fontStyleNames(styles model.FontStyle) string {
	var names []string
	for _, f := range []struct {
		style model.FontStyle
		name  string
	}{
		{model.FontBold, "bold"},
		{model.FontItalic, "italic"},
		{model.FontUnderline, "underline"},
		{model.FontStrike, "strike"},
	} {
		if styles.Has(f.style) {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "normal"
	}
	return strings.Join(names, "+")
}
