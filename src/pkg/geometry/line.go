package geometry

import (
	"inkboard/src/pkg/model"
)

// MinColliderPoints is the number of distinct points a line needs for a collider.
const MinColliderPoints = 3

// Builder accumulates the points of a line while it is being drawn.
type Builder struct {
	style   model.Line
	points  []model.Vec3
	minStep float32
	active  bool
}

// NewBuilder returns a builder that ignores points closer than minStep to
// the previous one.
func NewBuilder(minStep float32) *Builder {
	return &Builder{minStep: minStep}
}

// BeginLine starts a new line with the given style at first.
func (b *Builder) BeginLine(style model.Line, first model.Vec3) {
	b.style = style
	b.style.Points = nil
	b.style.Collider = nil
	b.style.FillTriangles = nil
	b.points = []model.Vec3{first}
	b.active = true
}

// ContinueLine appends p and reports whether it was kept.
func (b *Builder) ContinueLine(p model.Vec3) bool {
	if !b.active {
		return false
	}
	last := b.points[len(b.points)-1]
	if last.DistanceTo(p) <= b.minStep || last.ApproxEqual(p) {
		return false
	}
	b.points = append(b.points, p)
	return true
}

// Active reports whether a line is being drawn.
func (b *Builder) Active() bool {
	return b.active
}

// Points returns a copy of the current buffer.
func (b *Builder) Points() []model.Vec3 {
	return append([]model.Vec3(nil), b.points...)
}

// Cancel drops the current buffer.
func (b *Builder) Cancel() {
	b.points = nil
	b.active = false
}

// FinishLine closes the buffer into a line. See FinishLine.
func (b *Builder) FinishLine(loop bool) (*model.Line, error) {
	pts := b.points
	style := b.style
	b.Cancel()
	return FinishLine(pts, style, loop)
}

// FinishLine builds a line from points with the style of style. Fewer than two
// points yields a GeometryWarning together with a best-effort line; no points
// yields no line. The collider is baked only when enough distinct points exist.
func FinishLine(points []model.Vec3, style model.Line, loop bool) (*model.Line, error) {
	if len(points) == 0 {
		return nil, model.NewGeometryWarning("finish line", "no points")
	}
	line := style
	line.Branch = nil
	line.Loop = loop
	line.Points = append([]model.Vec3(nil), points...)

	var warn error
	if len(points) < 2 {
		line.Points = append(line.Points, points[0])
		warn = model.NewGeometryWarning("finish line", "a line needs at least 2 points, got %d", len(points))
	}
	Bake(&line)
	return &line, warn
}

// Bake refreshes the derived collider and fill mesh of l.
func Bake(l *model.Line) {
	distinct := DistinctPoints(l.Points)
	if len(distinct) >= MinColliderPoints {
		l.Collider = distinct
	} else {
		l.Collider = nil
	}
	if l.FillOut {
		l.FillTriangles = FillOut(l.Points)
	} else {
		l.FillTriangles = nil
	}
}

// HasCollider reports whether l has a baked collider.
func HasCollider(l *model.Line) bool {
	return len(l.Collider) >= MinColliderPoints
}

// DistinctPoints returns the points of pts with duplicates removed, keeping
// first occurrences in order.
func DistinctPoints(pts []model.Vec3) []model.Vec3 {
	var out []model.Vec3
	for _, p := range pts {
		dup := false
		for _, q := range out {
			if p.ApproxEqual(q) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// FillOut triangulates the area enclosed by pts as a fan around the first
// point and returns index triples into pts. Fewer than three distinct points
// cannot be filled.
func FillOut(pts []model.Vec3) []int {
	if len(DistinctPoints(pts)) < 3 {
		return nil
	}
	n := len(pts)
	if n > 1 && pts[0].ApproxEqual(pts[n-1]) {
		n--
	}
	tris := make([]int, 0, 3*(n-2))
	for i := 1; i < n-1; i++ {
		tris = append(tris, 0, i, i+1)
	}
	return tris
}

// Length returns the path length of pts.
func Length(pts []model.Vec3) float32 {
	var total float32
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].DistanceTo(pts[i])
	}
	return total
}

// Bounds returns the axis-aligned bounding box of pts.
func Bounds(pts []model.Vec3) (lo, hi model.Vec3) {
	if len(pts) == 0 {
		return
	}
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X < lo.X {
			lo.X = p.X
		}
		if p.Y < lo.Y {
			lo.Y = p.Y
		}
		if p.Z < lo.Z {
			lo.Z = p.Z
		}
		if p.X > hi.X {
			hi.X = p.X
		}
		if p.Y > hi.Y {
			hi.Y = p.Y
		}
		if p.Z > hi.Z {
			hi.Z = p.Z
		}
	}
	return lo, hi
}
