package model

import (
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
)

// DrawableKind identifies the payload variant of a Drawable.
type DrawableKind int

const (
	KindLine DrawableKind = iota
	KindText
	KindImage
	KindMindMapNode
)

var drawableKindNames = []string{"line", "text", "image", "mindmap-node"}

func (k DrawableKind) String() string { return enumName(drawableKindNames, int(k)) }

func (k DrawableKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *DrawableKind) UnmarshalText(b []byte) error {
	v, err := enumParse(drawableKindNames, "drawable kind", string(b))
	*k = DrawableKind(v)
	return err
}

// ObjectState is the lifecycle state of a drawable.
type ObjectState int

const (
	StateUnborn ObjectState = iota
	StateActive
	StateHidden
	StateDestroyed
)

func (s ObjectState) String() string {
	switch s {
	case StateUnborn:
		return "unborn"
	case StateActive:
		return "active"
	case StateHidden:
		return "hidden"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// ColorKind selects how a line is colored along its length.
type ColorKind int

const (
	Monochrome ColorKind = iota
	Gradient
	TwoDashed
)

var colorKindNames = []string{"monochrome", "gradient", "two-dashed"}

func (k ColorKind) String() string { return enumName(colorKindNames, int(k)) }

func (k ColorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ColorKind) UnmarshalText(b []byte) error {
	v, err := enumParse(colorKindNames, "color kind", string(b))
	*k = ColorKind(v)
	return err
}

// LineKind selects the dash pattern of a line.
type LineKind int

const (
	Solid LineKind = iota
	Dashed
	Dashed25
	Dashed50
	Dashed75
	Dashed100
)

var lineKindNames = []string{"solid", "dashed", "dashed25", "dashed50", "dashed75", "dashed100"}

func (k LineKind) String() string { return enumName(lineKindNames, int(k)) }

func (k LineKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *LineKind) UnmarshalText(b []byte) error {
	v, err := enumParse(lineKindNames, "line kind", string(b))
	*k = LineKind(v)
	return err
}

// DefaultTiling is the dash tiling used by the free Dashed kind.
const DefaultTiling float32 = 0.05

// DashTiling returns the texture tiling for the dash pattern. The fixed
// patterns ignore the free tiling value.
func (k LineKind) DashTiling(tiling float32) float32 {
	switch k {
	case Dashed:
		if tiling <= 0 {
			return DefaultTiling
		}
		return tiling
	case Dashed25:
		return 5.0 / 3.0
	case Dashed50:
		return 10.0 / 3.0
	case Dashed75:
		return 5
	case Dashed100:
		return 20.0 / 3.0
	default:
		return 0
	}
}

// NodeKind is the role of a mind-map node.
type NodeKind int

const (
	Theme NodeKind = iota
	Subtheme
	Leaf
)

var nodeKindNames = []string{"theme", "subtheme", "leaf"}

func (k NodeKind) String() string { return enumName(nodeKindNames, int(k)) }

func (k NodeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *NodeKind) UnmarshalText(b []byte) error {
	v, err := enumParse(nodeKindNames, "node kind", string(b))
	*k = NodeKind(v)
	return err
}

// ParseNodeKind parses a node kind name.
func ParseNodeKind(s string) (NodeKind, error) {
	var k NodeKind
	err := k.UnmarshalText([]byte(s))
	return k, err
}

// ParseLineKind parses a line kind name.
func ParseLineKind(s string) (LineKind, error) {
	var k LineKind
	err := k.UnmarshalText([]byte(s))
	return k, err
}

// ParseColorKind parses a color kind name.
func ParseColorKind(s string) (ColorKind, error) {
	var k ColorKind
	err := k.UnmarshalText([]byte(s))
	return k, err
}

// FontStyle is a bit set of text styles.
type FontStyle int

const (
	FontNormal    FontStyle = 0
	FontBold      FontStyle = 1 << 0
	FontItalic    FontStyle = 1 << 1
	FontUnderline FontStyle = 1 << 2
	FontStrike    FontStyle = 1 << 3
)

// Has reports whether all bits of f are set.
func (s FontStyle) Has(f FontStyle) bool {
	return s&f == f
}

func enumName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return "unknown"
}

func enumParse(names []string, what, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s: %q", what, s)
}

// BranchRef marks a line as the branch between two mind-map nodes.
type BranchRef struct {
	ParentID string `json:"parent_id" xml:"parent_id,attr" yaml:"parent_id"`
	ChildID  string `json:"child_id" xml:"child_id,attr" yaml:"child_id"`
}

// Line is a polyline drawn on a surface. Points are in the drawable's local space.
type Line struct {
	Points         []Vec3     `json:"points" xml:"points>point" yaml:"points"`
	Loop           bool       `json:"loop" xml:"loop,attr" yaml:"loop"`
	Thickness      float32    `json:"thickness" xml:"thickness,attr" yaml:"thickness"`
	ColorKind      ColorKind  `json:"color_kind" xml:"color_kind,attr" yaml:"color_kind"`
	PrimaryColor   Color      `json:"primary_color" xml:"primary_color" yaml:"primary_color"`
	SecondaryColor Color      `json:"secondary_color" xml:"secondary_color" yaml:"secondary_color"`
	LineKind       LineKind   `json:"line_kind" xml:"line_kind,attr" yaml:"line_kind"`
	Tiling         float32    `json:"tiling" xml:"tiling,attr" yaml:"tiling"`
	FillOut        bool       `json:"fill_out" xml:"fill_out,attr" yaml:"fill_out"`
	FillOutColor   Color      `json:"fill_out_color" xml:"fill_out_color" yaml:"fill_out_color"`
	Branch         *BranchRef `json:"branch,omitempty" xml:"branch,omitempty" yaml:"branch,omitempty"`

	// Collider holds the baked collision vertices, nil for degenerate lines.
	Collider []Vec3 `json:"-" xml:"-" yaml:"-"`
	// FillTriangles indexes Points in triples when FillOut is set.
	FillTriangles []int `json:"-" xml:"-" yaml:"-"`
}

// StyleFrom copies every style field of src into l, leaving points untouched.
func (l *Line) StyleFrom(src *Line) {
	l.Loop = src.Loop
	l.Thickness = src.Thickness
	l.ColorKind = src.ColorKind
	l.PrimaryColor = src.PrimaryColor
	l.SecondaryColor = src.SecondaryColor
	l.LineKind = src.LineKind
	l.Tiling = src.Tiling
	l.FillOut = src.FillOut
	l.FillOutColor = src.FillOutColor
}

// Text is a label drawn on a surface.
type Text struct {
	Content          string    `json:"content" xml:"content" yaml:"content"`
	FontSize         float32   `json:"font_size" xml:"font_size,attr" yaml:"font_size"`
	FontStyles       FontStyle `json:"font_styles" xml:"font_styles,attr" yaml:"font_styles"`
	FontColor        Color     `json:"font_color" xml:"font_color" yaml:"font_color"`
	OutlineColor     Color     `json:"outline_color" xml:"outline_color" yaml:"outline_color"`
	OutlineThickness float32   `json:"outline_thickness" xml:"outline_thickness,attr" yaml:"outline_thickness"`
	Width            float32   `json:"width" xml:"width,attr" yaml:"width"`
	Height           float32   `json:"height" xml:"height,attr" yaml:"height"`
}

// Image is a picture placed on a surface. The bytes live in the blob store.
type Image struct {
	FileName   string  `json:"file_name" xml:"file_name,attr" yaml:"file_name"`
	SourcePath string  `json:"source_path" xml:"source_path,attr" yaml:"source_path"`
	Hash       string  `json:"hash" xml:"hash,attr" yaml:"hash"`
	Tint       Color   `json:"tint" xml:"tint" yaml:"tint"`
	Width      float32 `json:"width" xml:"width,attr" yaml:"width"`
	Height     float32 `json:"height" xml:"height,attr" yaml:"height"`
}

// MindMapNode is a node of a mind-map diagram. It owns its border and label.
type MindMapNode struct {
	NodeKind     NodeKind `json:"node_kind" xml:"node_kind,attr" yaml:"node_kind"`
	Layer        int      `json:"layer" xml:"layer,attr" yaml:"layer"`
	ParentID     string   `json:"parent_id,omitempty" xml:"parent_id,attr,omitempty" yaml:"parent_id,omitempty"`
	BranchLineID string   `json:"branch_line_id,omitempty" xml:"branch_line_id,attr,omitempty" yaml:"branch_line_id,omitempty"`
	BorderID     string   `json:"border_id" xml:"border_id,attr" yaml:"border_id"`
	LabelID      string   `json:"label_id" xml:"label_id,attr" yaml:"label_id"`
	Border       Line     `json:"border" xml:"border" yaml:"border"`
	Label        Text     `json:"label" xml:"label" yaml:"label"`
}

// Drawable is an object placed on a surface page. Exactly one payload is set,
// matching Kind.
type Drawable struct {
	ID        string
	SurfaceID string
	Kind      DrawableKind
	Order     int
	Page      int
	Transform Transform
	State     ObjectState

	Line  *Line
	Text  *Text
	Image *Image
	Node  *MindMapNode
}

// IsBranchLine reports whether d connects two mind-map nodes.
func (d *Drawable) IsBranchLine() bool {
	return d.Kind == KindLine && d.Line != nil && d.Line.Branch != nil
}

// Clone returns a deep copy of d. When the deep copy fails the error comes
// with a shallow copy sharing the payloads of d.
func (d *Drawable) Clone() (*Drawable, error) {
	if d == nil {
		return nil, fmt.Errorf("copy drawable: nil drawable")
	}
	dst := &Drawable{}
	if err := copier.CopyWithOption(dst, d, copier.Option{DeepCopy: true}); err != nil {
		shallow := *d
		return &shallow, fmt.Errorf("copy drawable %s: %w", d.ID, err)
	}
	return dst, nil
}

// Validate checks that the payload matches the kind.
func (d *Drawable) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("drawable has empty id")
	}
	ok := false
	switch d.Kind {
	case KindLine:
		ok = d.Line != nil
	case KindText:
		ok = d.Text != nil
	case KindImage:
		ok = d.Image != nil
	case KindMindMapNode:
		ok = d.Node != nil
	}
	if !ok {
		return fmt.Errorf("drawable %s: missing %s payload", d.ID, d.Kind)
	}
	return nil
}
