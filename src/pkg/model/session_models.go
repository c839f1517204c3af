package model

import "time"

// Command is a parsed user command routed to a session handler.
type Command struct {
	Scope     string
	Operation string
	Args      []string
}

// Session is the exported view of a user session.
type Session struct {
	ID           string
	Participant  string
	SurfaceID    string
	LastActivity time.Time
}

// DrawingContext is the per-session drawing state applied to new objects.
type DrawingContext struct {
	PrimaryColor   Color
	SecondaryColor Color
	ColorKind      ColorKind
	Thickness      float32
	LineKind       LineKind
	Tiling         float32
	FillOut        bool
	FillOutColor   Color
	FontSize       float32
	FontStyles     FontStyle
	FontColor      Color
}

// DefaultDrawingContext returns black solid lines and black text.
func DefaultDrawingContext() DrawingContext {
	return DrawingContext{
		PrimaryColor:   Black,
		SecondaryColor: White,
		ColorKind:      Monochrome,
		Thickness:      0.01,
		LineKind:       Solid,
		Tiling:         DefaultTiling,
		FillOutColor:   White,
		FontSize:       0.5,
		FontColor:      Black,
	}
}

// LineStyle returns an empty line carrying the context's line style.
func (dc DrawingContext) LineStyle() Line {
	return Line{
		Thickness:      dc.Thickness,
		ColorKind:      dc.ColorKind,
		PrimaryColor:   dc.PrimaryColor,
		SecondaryColor: dc.SecondaryColor,
		LineKind:       dc.LineKind,
		Tiling:         dc.Tiling,
		FillOut:        dc.FillOut,
		FillOutColor:   dc.FillOutColor,
	}
}

// TextStyle returns a text record with the context's font settings.
func (dc DrawingContext) TextStyle(content string) Text {
	return Text{
		Content:    content,
		FontSize:   dc.FontSize,
		FontStyles: dc.FontStyles,
		FontColor:  dc.FontColor,
	}
}
