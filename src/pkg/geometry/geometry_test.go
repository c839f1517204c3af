package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/model"
)

func pts(n int) []model.Vec3 {
	out := make([]model.Vec3, n)
	for i := range out {
		out[i] = model.V3(float32(i), float32(i*i)*0.1, 0)
	}
	return out
}

func assertVecNear(t *testing.T, want, got model.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-4)
	assert.InDelta(t, want.Y, got.Y, 1e-4)
	assert.InDelta(t, want.Z, got.Z, 1e-4)
}

func TestToWorldRoundTrip(t *testing.T) {
	tr := model.Transform{
		Position:    model.V3(1, 2, 3),
		EulerAngles: model.V3(10, 20, 30),
		Scale:       model.V3(2, 0.5, 1),
	}
	p := model.V3(0.3, -1.2, 0.7)
	assertVecNear(t, p, ToLocal(tr, ToWorld(tr, p)))
}

func TestRotationAroundZ(t *testing.T) {
	tr := model.IdentityTransform()
	tr.EulerAngles.Z = 90
	assertVecNear(t, model.V3(0, 1, 0), ToWorld(tr, model.V3(1, 0, 0)))
}

func TestFinishLineColliderRule(t *testing.T) {
	style := model.DefaultDrawingContext().LineStyle()

	line, err := FinishLine(pts(2), style, false)
	require.NoError(t, err)
	assert.False(t, HasCollider(line))

	dup := []model.Vec3{{X: 0}, {X: 1}, {X: 0}, {X: 1}}
	line, err = FinishLine(dup, style, false)
	require.NoError(t, err)
	assert.False(t, HasCollider(line), "only two distinct points")

	line, err = FinishLine(pts(3), style, true)
	require.NoError(t, err)
	assert.True(t, HasCollider(line))
	assert.True(t, line.Loop)
}

func TestFinishLineDegenerate(t *testing.T) {
	style := model.DefaultDrawingContext().LineStyle()

	line, err := FinishLine(pts(1), style, false)
	require.NotNil(t, line)
	assert.True(t, model.IsWarning(err))
	assert.Len(t, line.Points, 2)

	line, err = FinishLine(nil, style, false)
	assert.Nil(t, line)
	assert.True(t, model.IsWarning(err))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(0.01)
	b.BeginLine(model.DefaultDrawingContext().LineStyle(), model.V3(0, 0, 0))
	assert.True(t, b.Active())
	assert.False(t, b.ContinueLine(model.V3(0.001, 0, 0)))
	assert.True(t, b.ContinueLine(model.V3(1, 0, 0)))
	assert.True(t, b.ContinueLine(model.V3(1, 1, 0)))
	assert.Len(t, b.Points(), 3)

	line, err := b.FinishLine(false)
	require.NoError(t, err)
	assert.Len(t, line.Points, 3)
	assert.False(t, b.Active())
	assert.False(t, b.ContinueLine(model.V3(2, 2, 0)))
}

func TestPivotOddAndEven(t *testing.T) {
	odd := pts(5)
	assert.Equal(t, odd[2], PivotPoint(odd))

	even := pts(4)
	assertVecNear(t, odd[1].Lerp(odd[2], 0.5), PivotPoint(even))
}

func TestRecomputePivotPreservesWorldPath(t *testing.T) {
	tr := model.Transform{Position: model.V3(5, 1, 0), EulerAngles: model.V3(0, 0, 45), Scale: model.V3(2, 2, 1)}
	in := pts(6)
	before := PointsToWorld(tr, in)

	nt, out := RecomputePivot(tr, in)
	after := PointsToWorld(nt, out)
	for i := range before {
		assertVecNear(t, before[i], after[i])
	}
	// the new origin sits between the two central points
	assertVecNear(t, model.Vec3{}, PivotPoint(out))
}

func TestSplitIncludesHitInBothRuns(t *testing.T) {
	line := &model.Line{Points: pts(6), Thickness: 0.3, PrimaryColor: model.Black, LineKind: model.Dashed50}
	out, err := Split(line, []int{2}, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0].Points, 3)
	assert.Len(t, out[1].Points, 4)
	assert.Equal(t, line.Points[2], out[0].Points[2])
	assert.Equal(t, line.Points[2], out[1].Points[0])
	for _, l := range out {
		assert.Equal(t, float32(0.3), l.Thickness)
		assert.Equal(t, model.Dashed50, l.LineKind)
	}
}

func TestSplitRemoveMatched(t *testing.T) {
	line := &model.Line{Points: pts(6)}
	out, err := Split(line, []int{2}, true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0].Points, 2)
	assert.Len(t, out[1].Points, 3)
}

func TestSplitAtEndWarnsButProceeds(t *testing.T) {
	line := &model.Line{Points: pts(6)}
	out, err := Split(line, []int{0}, false)
	assert.True(t, model.IsWarning(err))
	require.Len(t, out, 1)
	assert.Len(t, out[0].Points, 6)

	out, err = Split(line, []int{5}, true)
	assert.True(t, model.IsWarning(err))
	require.Len(t, out, 1)
	assert.Len(t, out[0].Points, 5)
}

func TestSplitRejectsOutOfRange(t *testing.T) {
	line := &model.Line{Points: pts(3)}
	_, err := Split(line, []int{7}, false)
	assert.True(t, model.IsValidation(err))

	_, err = Split(line, nil, false)
	assert.True(t, model.IsValidation(err))
}

func TestFillOutFan(t *testing.T) {
	square := []model.Vec3{{X: 0}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: 0}}
	tris := FillOut(square)
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3}, tris)
	assert.Nil(t, FillOut(pts(2)))
}

func TestNearestPoint(t *testing.T) {
	tr := model.TransformAt(model.V3(10, 0, 0))
	p, ok := NearestPoint(tr, []model.Vec3{{X: -1}, {X: 1}, {Y: 1}}, model.V3(12, 0, 0))
	require.True(t, ok)
	assert.Equal(t, model.V3(11, 0, 0), p)

	_, ok = NearestPoint(tr, nil, model.Vec3{})
	assert.False(t, ok)
}

func TestNearestIndices(t *testing.T) {
	assert.Equal(t, []int{1, 2}, NearestIndices(pts(5), model.V3(1.5, 0.2, 0), 0.6))
}
