package model

import (
	"fmt"

	"github.com/chewxy/math32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Tolerance used when comparing points for equality.
const Tolerance float32 = 1e-5

// Vec3 is a point or direction in surface local space.
type Vec3 struct {
	X float32 `json:"x" xml:"x,attr" yaml:"x"`
	Y float32 `json:"y" xml:"y,attr" yaml:"y"`
	Z float32 `json:"z" xml:"z,attr" yaml:"z"`
}

// V3 is a short constructor for Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) MulScalar(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Mul multiplies component-wise.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

// Div divides component-wise, treating zero components of o as 1.
func (v Vec3) Div(o Vec3) Vec3 {
	div := func(a, b float32) float32 {
		if b == 0 {
			return a
		}
		return a / b
	}
	return Vec3{div(v.X, o.X), div(v.Y, o.Y), div(v.Z, o.Z)}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Length() float32 {
	return math32.Sqrt(v.Dot(v))
}

// DistanceTo returns the euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float32 {
	return v.Sub(o).Length()
}

// Lerp interpolates between v and o, t in [0,1].
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return v.Add(o.Sub(v).MulScalar(t))
}

// ApproxEqual reports whether v and o are within Tolerance on every axis.
func (v Vec3) ApproxEqual(o Vec3) bool {
	return math32.Abs(v.X-o.X) <= Tolerance &&
		math32.Abs(v.Y-o.Y) <= Tolerance &&
		math32.Abs(v.Z-o.Z) <= Tolerance
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Transform is a position/rotation/scale triple. Rotation is in degrees.
type Transform struct {
	Position    Vec3 `json:"position" xml:"position" yaml:"position"`
	EulerAngles Vec3 `json:"euler_angles" xml:"euler_angles" yaml:"euler_angles"`
	Scale       Vec3 `json:"scale" xml:"scale" yaml:"scale"`
}

// IdentityTransform has zero position and rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// TransformAt returns an identity transform moved to p.
func TransformAt(p Vec3) Transform {
	t := IdentityTransform()
	t.Position = p
	return t
}

// Color is an RGBA color with components in [0,1].
type Color struct {
	R float32 `json:"r" xml:"r,attr" yaml:"r"`
	G float32 `json:"g" xml:"g,attr" yaml:"g"`
	B float32 `json:"b" xml:"b,attr" yaml:"b"`
	A float32 `json:"a" xml:"a,attr" yaml:"a"`
}

var (
	Black = Color{0, 0, 0, 1}
	White = Color{1, 1, 1, 1}
	Clear = Color{0, 0, 0, 0}
)

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (Color, error) {
	alpha := float32(1)
	if len(s) == 9 && s[0] == '#' {
		var a uint8
		if _, err := fmt.Sscanf(s[7:], "%02x", &a); err != nil {
			return Color{}, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = float32(a) / 255
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: float32(c.R), G: float32(c.G), B: float32(c.B), A: alpha}, nil
}

// Hex formats the color as "#rrggbbaa".
func (c Color) Hex() string {
	cf := colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped()
	return fmt.Sprintf("%s%02x", cf.Hex(), uint8(math32.Round(clamp01(c.A)*255)))
}

// Blend mixes c and o in Lab space, t in [0,1]. Alpha is interpolated linearly.
func (c Color) Blend(o Color, t float32) Color {
	a := colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}
	b := colorful.Color{R: float64(o.R), G: float64(o.G), B: float64(o.B)}
	m := a.BlendLab(b, float64(t)).Clamped()
	return Color{R: float32(m.R), G: float32(m.G), B: float32(m.B), A: c.A + (o.A-c.A)*t}
}

func clamp01(f float32) float32 {
	return math32.Max(0, math32.Min(1, f))
}
