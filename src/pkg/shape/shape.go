// Package shape generates closed point loops for regular shapes. Every
// generator returns its points in drawing order with the first point repeated
// at the end, centered on the given point.
package shape

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"

	"inkboard/src/pkg/model"
)

// EllipseVertices is the number of distinct vertices of an ellipse.
const EllipseVertices = 50

// RectangleSubdivisions is the number of segments per edge of a mind-map rectangle.
const RectangleSubdivisions = 12

// Kind names a shape offered to users.
type Kind string

const (
	Square        Kind = "square"
	Rectangle     Kind = "rectangle"
	Rhombus       Kind = "rhombus"
	KiteShape     Kind = "kite"
	TriangleShape Kind = "triangle"
	CircleShape   Kind = "circle"
	EllipseShape  Kind = "ellipse"
	Parallelogram Kind = "parallelogram"
	Trapezoid     Kind = "trapezoid"
	PolygonShape  Kind = "polygon"
)

// Kinds lists every shape in menu order.
func Kinds() []Kind {
	return []Kind{Square, Rectangle, Rhombus, KiteShape, TriangleShape, CircleShape,
		EllipseShape, Parallelogram, Trapezoid, PolygonShape}
}

// Build generates the named shape around center. params are the shape's
// dimensions in the order of the matching generator function.
func Build(kind Kind, center model.Vec3, params ...float32) ([]model.Vec3, error) {
	need := map[Kind]int{
		Square: 1, Rectangle: 2, Rhombus: 2, KiteShape: 3, TriangleShape: 2,
		CircleShape: 1, EllipseShape: 2, Parallelogram: 3, Trapezoid: 3, PolygonShape: 2,
	}
	n, ok := need[Kind(strings.ToLower(string(kind)))]
	if !ok {
		return nil, fmt.Errorf("unknown shape: %s", kind)
	}
	if len(params) != n {
		return nil, fmt.Errorf("shape %s needs %d parameters, got %d", kind, n, len(params))
	}
	for _, p := range params {
		if p <= 0 {
			return nil, fmt.Errorf("shape %s parameters must be positive", kind)
		}
	}

	switch Kind(strings.ToLower(string(kind))) {
	case Square:
		return SquarePoints(center, params[0]), nil
	case Rectangle:
		return RectanglePoints(center, params[0], params[1]), nil
	case Rhombus:
		return RhombusPoints(center, params[0], params[1]), nil
	case KiteShape:
		return Kite(center, params[0], params[1], params[2]), nil
	case TriangleShape:
		return Triangle(center, params[0], params[1]), nil
	case CircleShape:
		return Circle(center, params[0]), nil
	case EllipseShape:
		return Ellipse(center, params[0], params[1]), nil
	case Parallelogram:
		return ParallelogramPoints(center, params[0], params[1], params[2]), nil
	case Trapezoid:
		return TrapezoidPoints(center, params[0], params[1], params[2]), nil
	default:
		if params[1] < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 vertices")
		}
		return Polygon(center, params[0], int(params[1])), nil
	}
}

func closed(pts ...model.Vec3) []model.Vec3 {
	return append(pts, pts[0])
}

// SquarePoints returns a square with side a.
func SquarePoints(c model.Vec3, a float32) []model.Vec3 {
	return RectanglePoints(c, a, a)
}

// RectanglePoints returns an axis-aligned rectangle of width a and height b.
func RectanglePoints(c model.Vec3, a, b float32) []model.Vec3 {
	A := model.V3(c.X-a/2, c.Y-b/2, c.Z)
	B := model.V3(A.X+a, A.Y, c.Z)
	C := model.V3(B.X, B.Y+b, c.Z)
	D := model.V3(A.X, A.Y+b, c.Z)
	return closed(A, B, C, D)
}

// RhombusPoints returns a rhombus with vertical diagonal f and horizontal diagonal e.
func RhombusPoints(c model.Vec3, f, e float32) []model.Vec3 {
	return closed(
		model.V3(c.X-e/2, c.Y, c.Z),
		model.V3(c.X, c.Y-f/2, c.Z),
		model.V3(c.X+e/2, c.Y, c.Z),
		model.V3(c.X, c.Y+f/2, c.Z),
	)
}

// Kite returns a kite with upper height f1, lower height f2 and width e.
func Kite(c model.Vec3, f1, f2, e float32) []model.Vec3 {
	return closed(
		model.V3(c.X-e/2, c.Y, c.Z),
		model.V3(c.X, c.Y-f2, c.Z),
		model.V3(c.X+e/2, c.Y, c.Z),
		model.V3(c.X, c.Y+f1, c.Z),
	)
}

// Triangle returns an isosceles triangle with base b and height h.
func Triangle(c model.Vec3, b, h float32) []model.Vec3 {
	return closed(
		model.V3(c.X-b/2, c.Y-h/2, c.Z),
		model.V3(c.X+b/2, c.Y-h/2, c.Z),
		model.V3(c.X, c.Y+h/2, c.Z),
	)
}

// Circle returns a circle with the given radius.
func Circle(c model.Vec3, radius float32) []model.Vec3 {
	return Ellipse(c, radius, radius)
}

// Ellipse returns an ellipse with horizontal radius rx and vertical radius ry.
func Ellipse(c model.Vec3, rx, ry float32) []model.Vec3 {
	return polygon(c, rx, ry, EllipseVertices)
}

// ParallelogramPoints returns a parallelogram with base a, height h and the
// top edge shifted by offset.
func ParallelogramPoints(c model.Vec3, a, h, offset float32) []model.Vec3 {
	A := model.V3(c.X-a/2, c.Y-h/2, c.Z)
	B := model.V3(c.X+a/2, c.Y-h/2, c.Z)
	return closed(A, B, model.V3(B.X+offset, B.Y+h, c.Z), model.V3(A.X+offset, A.Y+h, c.Z))
}

// TrapezoidPoints returns a trapezoid with bottom a, top t and height h.
func TrapezoidPoints(c model.Vec3, a, t, h float32) []model.Vec3 {
	return closed(
		model.V3(c.X-a/2, c.Y-h/2, c.Z),
		model.V3(c.X+a/2, c.Y-h/2, c.Z),
		model.V3(c.X+t/2, c.Y+h/2, c.Z),
		model.V3(c.X-t/2, c.Y+h/2, c.Z),
	)
}

// Polygon returns a regular polygon with the given circumradius.
func Polygon(c model.Vec3, radius float32, vertices int) []model.Vec3 {
	return polygon(c, radius, radius, vertices)
}

// polygon walks clockwise from the top.
func polygon(c model.Vec3, rx, ry float32, vertices int) []model.Vec3 {
	pts := make([]model.Vec3, vertices+1)
	step := 2 * math32.Pi / float32(vertices)
	for i := 0; i < vertices; i++ {
		angle := step * float32(i)
		pts[i] = model.V3(c.X+rx*math32.Sin(angle), c.Y+ry*math32.Cos(angle), c.Z)
	}
	pts[vertices] = pts[0]
	return pts
}

// MindMapRectangle returns a rectangle of width a and height b whose edges are
// each split into RectangleSubdivisions segments, so that nearest-point
// anchoring on the border lands near the edge middle. Each edge contributes
// both of its corners, giving 4*(RectangleSubdivisions+2) points.
func MindMapRectangle(c model.Vec3, a, b float32) []model.Vec3 {
	A := model.V3(c.X-a/2, c.Y-b/2, c.Z)
	B := model.V3(A.X+a, A.Y, c.Z)
	C := model.V3(B.X, B.Y+b, c.Z)
	D := model.V3(A.X, A.Y+b, c.Z)

	out := make([]model.Vec3, 0, 4*(RectangleSubdivisions+2))
	for _, edge := range [][2]model.Vec3{{A, B}, {B, C}, {C, D}, {D, A}} {
		out = append(out, edge[0])
		for i := 1; i <= RectangleSubdivisions; i++ {
			out = append(out, edge[0].Lerp(edge[1], float32(i)/RectangleSubdivisions))
		}
		out = append(out, edge[1])
	}
	return out
}
