// Package geometry implements line construction and editing: incremental
// drawing, collider baking, pivot recomputation, splitting, fill-out
// triangulation and conversion between local and surface space.
package geometry

import (
	"github.com/chewxy/math32"

	"inkboard/src/pkg/model"
)

type mat3 [3][3]float32

func (m mat3) mul(v model.Vec3) model.Vec3 {
	return model.Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func (m mat3) transpose() mat3 {
	var t mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

func (m mat3) times(o mat3) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// rotation builds the rotation for euler angles in degrees, applied around
// Z first, then X, then Y.
func rotation(euler model.Vec3) mat3 {
	rad := math32.Pi / 180
	sx, cx := math32.Sincos(euler.X * rad)
	sy, cy := math32.Sincos(euler.Y * rad)
	sz, cz := math32.Sincos(euler.Z * rad)

	rx := mat3{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	ry := mat3{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rz := mat3{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}
	return ry.times(rx).times(rz)
}

// ToWorld maps p from the local space of t into the space t is expressed in.
func ToWorld(t model.Transform, p model.Vec3) model.Vec3 {
	return t.Position.Add(rotation(t.EulerAngles).mul(p.Mul(t.Scale)))
}

// ToLocal is the inverse of ToWorld.
func ToLocal(t model.Transform, p model.Vec3) model.Vec3 {
	return rotation(t.EulerAngles).transpose().mul(p.Sub(t.Position)).Div(t.Scale)
}

// PointsToWorld maps every point with ToWorld.
func PointsToWorld(t model.Transform, pts []model.Vec3) []model.Vec3 {
	out := make([]model.Vec3, len(pts))
	for i, p := range pts {
		out[i] = ToWorld(t, p)
	}
	return out
}

// PointsToLocal maps every point with ToLocal.
func PointsToLocal(t model.Transform, pts []model.Vec3) []model.Vec3 {
	out := make([]model.Vec3, len(pts))
	for i, p := range pts {
		out[i] = ToLocal(t, p)
	}
	return out
}

// SurfaceToWorld maps a point of an object on surface s into scene space.
func SurfaceToWorld(s, obj model.Transform, p model.Vec3) model.Vec3 {
	return ToWorld(s, ToWorld(obj, p))
}

// WorldToSurface maps a scene point onto the local space of surface s.
func WorldToSurface(s model.Transform, p model.Vec3) model.Vec3 {
	return ToLocal(s, p)
}
