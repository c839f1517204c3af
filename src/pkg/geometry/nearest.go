package geometry

import "inkboard/src/pkg/model"

// NearestPoint returns the point of pts, mapped through t, closest to target.
// target is in the space t is expressed in. ok is false for empty input.
func NearestPoint(t model.Transform, pts []model.Vec3, target model.Vec3) (p model.Vec3, ok bool) {
	best := float32(-1)
	for _, local := range pts {
		w := ToWorld(t, local)
		d := w.DistanceTo(target)
		if best < 0 || d < best {
			best, p = d, w
		}
	}
	return p, best >= 0
}

// NearestIndices returns the indices of pts within radius of target, in
// local space. Used to find split points hit by an eraser.
func NearestIndices(pts []model.Vec3, target model.Vec3, radius float32) []int {
	var out []int
	for i, p := range pts {
		if p.DistanceTo(target) <= radius {
			out = append(out, i)
		}
	}
	return out
}
