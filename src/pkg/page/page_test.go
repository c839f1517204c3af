package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

func setup(t *testing.T) (*Manager, *layer.Allocator, *model.Surface) {
	t.Helper()
	alloc := layer.NewAllocator(0.001, log.NewDiscardLogger())
	m, err := NewManager(alloc, nil, log.NewDiscardLogger())
	require.NoError(t, err)
	return m, alloc, model.NewSurface("S", "")
}

func put(alloc *layer.Allocator, s *model.Surface, id string, page int) *model.Drawable {
	d := &model.Drawable{ID: id, Kind: model.KindText, Text: &model.Text{}, Page: page,
		Transform: model.IdentityTransform(), State: StateFor(s, page)}
	Grow(s, page)
	alloc.Place(d, alloc.Allocate(s, page), model.Forward)
	s.Objects[id] = d
	return d
}

func TestSwitchPageHidesAndShows(t *testing.T) {
	m, alloc, s := setup(t)
	a := put(alloc, s, "a", 0)
	b := put(alloc, s, "b", 2)
	c := put(alloc, s, "c", 2)
	assert.Equal(t, model.StateHidden, b.State)

	require.NoError(t, m.SwitchPage(s, 2))
	assert.Equal(t, model.StateHidden, a.State)
	assert.Equal(t, model.StateActive, b.State)
	assert.Equal(t, model.StateActive, c.State)
	assert.Equal(t, 2, s.CurrentPage)

	visible := m.Visible(s)
	require.Len(t, visible, 2)
	for _, d := range visible {
		assert.Equal(t, 2, d.Page)
	}
}

func TestSwitchPageRebasesCounter(t *testing.T) {
	m, alloc, s := setup(t)
	put(alloc, s, "a", 1)
	d := put(alloc, s, "b", 1)
	alloc.Allocate(s, 1)
	alloc.Allocate(s, 1)
	assert.Equal(t, 5, alloc.Next(s, 1))

	require.NoError(t, m.SwitchPage(s, 1))
	assert.Equal(t, d.Order+1, alloc.Next(s, 1))

	require.NoError(t, m.SwitchPage(s, 4))
	assert.Equal(t, 1, alloc.Next(s, 4))
}

func TestMaxPageSizeIsMonotonic(t *testing.T) {
	m, _, s := setup(t)
	require.NoError(t, m.SwitchPage(s, 3))
	assert.Equal(t, 4, s.MaxPageSize)
	require.NoError(t, m.SwitchPage(s, 0))
	assert.Equal(t, 4, s.MaxPageSize)
	assert.Equal(t, 4, m.AddPage(s))
	assert.Equal(t, 5, s.MaxPageSize)

	assert.True(t, model.IsValidation(m.SwitchPage(s, -1)))
}

func TestClearPage(t *testing.T) {
	m, alloc, s := setup(t)
	put(alloc, s, "a", 0)
	put(alloc, s, "b", 0)
	keep := put(alloc, s, "c", 1)

	removed := m.ClearPage(s, 0)
	assert.ElementsMatch(t, []string{"a", "b"}, removed)
	assert.Empty(t, m.Objects(s, 0))
	assert.Equal(t, 1, alloc.Next(s, 0))
	_, ok := s.Object(keep.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, s.MaxPageSize)
}

func TestMoveToPage(t *testing.T) {
	m, alloc, s := setup(t)
	a := put(alloc, s, "a", 0)
	put(alloc, s, "b", 1)

	require.NoError(t, m.MoveToPage(s, "a", 1))
	assert.Equal(t, 1, a.Page)
	assert.Equal(t, 2, a.Order)
	assert.Equal(t, model.StateHidden, a.State)
	require.NoError(t, layer.Verify(s, 1))

	node := &model.Drawable{ID: "n", Kind: model.KindMindMapNode, Node: &model.MindMapNode{}, State: model.StateActive}
	s.Objects["n"] = node
	assert.True(t, model.IsValidation(m.MoveToPage(s, "n", 1)))
	assert.Error(t, m.MoveToPage(s, "missing", 1))
}
