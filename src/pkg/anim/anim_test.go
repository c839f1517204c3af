package anim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inkboard/src/pkg/model"
)

func drawable() *model.Drawable {
	return &model.Drawable{ID: "Line-1", Kind: model.KindLine, Transform: model.IdentityTransform(),
		Line: &model.Line{PrimaryColor: model.Black}}
}

func TestMoveReachesTarget(t *testing.T) {
	s := NewScheduler()
	d := drawable()
	updates := 0
	tok := s.Move(d, model.V3(2, 0, 0), 100*time.Millisecond, func() { updates++ })

	s.Tick(50 * time.Millisecond)
	assert.InDelta(t, 1, d.Transform.Position.X, 1e-5)
	s.Tick(60 * time.Millisecond)
	assert.InDelta(t, 2, d.Transform.Position.X, 1e-5)
	assert.Equal(t, 2, updates)
	assert.True(t, tok.Finished())
	assert.Equal(t, 0, s.Running())
}

func TestStartCancelsPrevious(t *testing.T) {
	s := NewScheduler()
	d := drawable()
	removed := false
	first := s.DeleteAfter(d, time.Second, func() { removed = true })
	second := s.Scale(d, model.V3(2, 2, 2), 100*time.Millisecond, nil)

	assert.True(t, first.Cancelled())
	assert.Equal(t, 1, s.Running())

	s.Tick(2 * time.Second)
	assert.False(t, removed)
	assert.True(t, second.Finished())
	assert.InDelta(t, 2, d.Transform.Scale.X, 1e-5)
}

func TestFadeAndDelete(t *testing.T) {
	s := NewScheduler()
	d := drawable()
	s.Fade(d, 0, 10*time.Millisecond, nil)
	s.Tick(10 * time.Millisecond)
	assert.InDelta(t, 0, d.Line.PrimaryColor.A, 1e-5)

	removed := false
	tok := s.DeleteAfter(d, 30*time.Millisecond, func() { removed = true })
	s.Tick(20 * time.Millisecond)
	assert.False(t, removed)
	s.Cancel(d.ID)
	s.Tick(20 * time.Millisecond)
	assert.False(t, removed)
	assert.True(t, tok.Cancelled())
}

func TestCallbackMayStartTransition(t *testing.T) {
	s := NewScheduler()
	d := drawable()
	s.Start(d.ID, 0, nil, func() {
		s.Move(d, model.V3(1, 1, 0), 0, nil)
	})
	s.Tick(time.Millisecond)
	assert.Equal(t, 1, s.Running())
	s.Tick(time.Millisecond)
	assert.InDelta(t, 1, d.Transform.Position.Y, 1e-5)
}

func TestDestroyedObjectStopsTransition(t *testing.T) {
	s := NewScheduler()
	d := drawable()
	updates := 0
	tok := s.Move(d, model.V3(2, 0, 0), 100*time.Millisecond, func() { updates++ })

	s.Tick(20 * time.Millisecond)
	assert.Equal(t, 1, updates)

	d.State = model.StateDestroyed
	x := d.Transform.Position.X
	s.Tick(20 * time.Millisecond)
	assert.Equal(t, 1, updates)
	assert.Equal(t, x, d.Transform.Position.X)
	assert.True(t, tok.Cancelled())
	assert.False(t, tok.Finished())
	assert.Equal(t, 0, s.Running())
}
