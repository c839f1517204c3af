package geometry

import "inkboard/src/pkg/model"

// PivotPoint returns the pivot for pts: the middle point for an odd count,
// the midpoint of the two central points for an even count.
func PivotPoint(pts []model.Vec3) model.Vec3 {
	n := len(pts)
	switch {
	case n == 0:
		return model.Vec3{}
	case n%2 == 1:
		return pts[n/2]
	default:
		return pts[n/2-1].Lerp(pts[n/2], 0.5)
	}
}

// RecomputePivot moves the origin of an object to the pivot of its points.
// The returned points are re-expressed against the new origin so that the
// path keeps its position in the parent space.
func RecomputePivot(t model.Transform, pts []model.Vec3) (model.Transform, []model.Vec3) {
	return SetPivotAt(t, pts, PivotPoint(pts))
}

// SetPivotAt moves the origin of an object to origin, given in local space.
func SetPivotAt(t model.Transform, pts []model.Vec3, origin model.Vec3) (model.Transform, []model.Vec3) {
	nt := t
	nt.Position = ToWorld(t, origin)
	out := make([]model.Vec3, len(pts))
	for i, p := range pts {
		out[i] = p.Sub(origin)
	}
	return nt, out
}
