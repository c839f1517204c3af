package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

func TestPublishRunsHandlersInOrder(t *testing.T) {
	em := NewEventManager(log.NewDiscardLogger())
	var got []int
	em.Subscribe(DrawableCreated, func(Event) { got = append(got, 1) })
	em.Subscribe(DrawableCreated, func(Event) { got = append(got, 2) })
	em.Subscribe(DrawableDeleted, func(Event) { got = append(got, 3) })

	em.Publish(Event{Type: DrawableCreated})
	assert.Equal(t, []int{1, 2}, got)
}

func TestPanicInHandlerIsRecovered(t *testing.T) {
	em := NewEventManager(log.NewDiscardLogger())
	called := false
	em.Subscribe(PageSwitched, func(Event) { panic("bad handler") })
	em.Subscribe(PageSwitched, func(Event) { called = true })

	assert.NotPanics(t, func() { em.Publish(Event{Type: PageSwitched}) })
	assert.True(t, called)
}

func TestMutedSuppressesPublish(t *testing.T) {
	em := NewEventManager(log.NewDiscardLogger())
	count := 0
	em.Subscribe(DrawableUpdated, func(Event) { count++ })

	err := em.Muted(func() error {
		em.Publish(Event{Type: DrawableUpdated})
		return errors.New("inner")
	})
	assert.EqualError(t, err, "inner")
	assert.Equal(t, 0, count)

	em.Publish(Event{Type: DrawableUpdated})
	assert.Equal(t, 1, count)
}

func TestDrawableSnapshotIsDetached(t *testing.T) {
	em := NewEventManager(log.NewDiscardLogger())
	var ev DrawableEvent
	em.Subscribe(DrawableCreated, func(e Event) { ev = e.Data.(DrawableEvent) })

	s := model.NewSurface("S", "")
	obj := &model.Drawable{ID: "Line-1", Kind: model.KindLine, Line: &model.Line{Points: []model.Vec3{{X: 1}}}}
	Drawable(em, DrawableCreated, s, obj, FieldPoints)

	require.NotNil(t, ev.Object)
	obj.Line.Points[0].X = 5
	assert.Equal(t, float32(1), ev.Object.Line.Points[0].X)
	assert.Equal(t, []string{FieldPoints}, ev.Changed)
}

func TestWatchersRunWhileMuted(t *testing.T) {
	em := NewEventManager(log.NewDiscardLogger())
	var got []string
	em.Subscribe(DrawableDeleted, func(Event) { got = append(got, "subscriber") })
	em.Watch(DrawableDeleted, func(Event) { got = append(got, "watcher") })

	require.NoError(t, em.Muted(func() error {
		em.Publish(Event{Type: DrawableDeleted})
		return nil
	}))
	assert.Equal(t, []string{"watcher"}, got)

	got = nil
	em.Publish(Event{Type: DrawableDeleted})
	assert.Equal(t, []string{"watcher", "subscriber"}, got)
}
