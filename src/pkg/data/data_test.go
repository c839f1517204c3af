package data

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/event"
	"inkboard/src/pkg/layer"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/mindmap"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/replication"
	"inkboard/src/pkg/shape"
	"inkboard/src/pkg/storage"
)

type charMeasurer struct{}

func (charMeasurer) Measure(text string, size float32, _ model.FontStyle) (float32, float32) {
	return float32(len(text)) * 0.1 * size, size
}

func testConfig(dir string) *model.Config {
	return &model.Config{
		DatabaseType:  "sqlite",
		DatabaseDir:   dir,
		DatabaseFile:  "test.db",
		BlobDir:       filepath.Join(dir, "blobs"),
		Participant:   "alice",
		PixelsPerUnit: 40,
	}
}

// newManager builds a DataManager, backed by SQLite storage when stored is set.
func newManager(t *testing.T, stored bool) *DataManager {
	t.Helper()
	logger := log.NewDiscardLogger()
	cfg := testConfig(t.TempDir())
	var (
		surfaces storage.SurfaceStore
		blobs    storage.BlobStore
	)
	if stored {
		st, err := storage.NewStorage(cfg, logger)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		surfaces, blobs = st.SurfaceStore, st.BlobStore
	}
	m, err := NewDataManager(surfaces, blobs, charMeasurer{}, cfg, logger)
	require.NoError(t, err)
	return m
}

func newBoard(t *testing.T, m *DataManager) *model.Surface {
	t.Helper()
	s, err := m.SurfaceManager.SurfaceAdd("board", "", "test board")
	require.NoError(t, err)
	return s
}

func style() model.Line {
	return model.DefaultDrawingContext().LineStyle()
}

func TestNewDataManagerRequiresDependencies(t *testing.T) {
	_, err := NewDataManager(nil, nil, charMeasurer{}, &model.Config{PixelsPerUnit: 10}, nil)
	assert.Error(t, err)
	_, err = NewDataManager(nil, nil, nil, &model.Config{PixelsPerUnit: 10}, log.NewDiscardLogger())
	assert.Error(t, err)
	_, err = NewDataManager(nil, nil, charMeasurer{}, nil, log.NewDiscardLogger())
	assert.Error(t, err)
}

func TestDrawLine(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager

	var created []event.DrawableEvent
	m.EventManager.Subscribe(event.DrawableCreated, func(e event.Event) {
		created = append(created, e.Data.(event.DrawableEvent))
	})

	dm.BeginLine("pen", style(), model.V3(0, 0, 0))
	assert.True(t, dm.ContinueLine("pen", model.V3(1, 0, 0)))
	assert.False(t, dm.ContinueLine("pen", model.V3(1, 0, 0)), "repeated point is dropped")
	assert.True(t, dm.ContinueLine("pen", model.V3(2, 0, 0)))

	d, err := dm.FinishLine("pen", s, false)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Order)
	assert.Equal(t, model.StateActive, d.State)
	assert.True(t, dm.Planar(d).ApproxEqual(model.V3(1, 0, 0)), "origin moves to the middle point")
	require.Len(t, d.Line.Points, 3)
	assert.True(t, d.Line.Points[0].ApproxEqual(model.V3(-1, 0, 0)))
	assert.NotNil(t, d.Line.Collider)

	require.Len(t, created, 1)
	assert.Equal(t, d.ID, created[0].Object.ID)

	_, err = dm.FinishLine("pen", s, false)
	assert.True(t, model.IsValidation(err), "nothing left to finish")

	dm.BeginLine("pen", style(), model.V3(5, 5, 0))
	single, err := dm.FinishLine("pen", s, false)
	require.NotNil(t, single)
	assert.True(t, model.IsWarning(err))
	assert.Equal(t, 2, single.Order)

	dm.BeginLine("pen", style(), model.V3(5, 5, 0))
	dm.CancelLine("pen")
	assert.False(t, dm.ContinueLine("pen", model.V3(6, 6, 0)))
}

func TestAddShapeAndText(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager

	sq, err := dm.AddShape(s, shape.Square, model.V3(1, 1, 0), style(), 2)
	require.NoError(t, err)
	assert.True(t, sq.Line.Loop)
	assert.NotNil(t, sq.Line.Collider)

	_, err = dm.AddShape(s, shape.Square, model.V3(0, 0, 0), style())
	assert.True(t, model.IsValidation(err))

	txt, err := dm.AddText(s, model.V3(3, 3, 0), model.DefaultDrawingContext().TextStyle("hello"))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, txt.Text.Width, 1e-6)
	assert.Equal(t, 2, txt.Order)

	require.NoError(t, dm.SetText(s, txt.ID, "hello world"))
	assert.InDelta(t, 0.55, txt.Text.Width, 1e-6)

	_, err = dm.AddText(s, model.V3(0, 0, 0), model.DefaultDrawingContext().TextStyle("  "))
	assert.True(t, model.IsValidation(err))
}

func TestEditsPublishChangedFields(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager

	var changed [][]string
	m.EventManager.Subscribe(event.DrawableUpdated, func(e event.Event) {
		changed = append(changed, e.Data.(event.DrawableEvent).Changed)
	})

	d, err := dm.AddLine(s, []model.Vec3{model.V3(0, 0, 0), model.V3(1, 1, 0)}, style(), false)
	require.NoError(t, err)

	red := model.Color{R: 1, A: 1}
	require.NoError(t, dm.SetColor(s, d.ID, red))
	require.NoError(t, dm.SetGradient(s, d.ID, model.Gradient, model.White))
	require.NoError(t, dm.SetThickness(s, d.ID, 0.05))
	require.NoError(t, dm.SetLineKind(s, d.ID, model.Dashed50, 0))
	require.NoError(t, dm.Move(s, d.ID, model.V3(4, 4, 0)))

	assert.Equal(t, red, d.Line.PrimaryColor)
	assert.Equal(t, model.Gradient, d.Line.ColorKind)
	assert.Equal(t, float32(0.05), d.Line.Thickness)
	assert.Equal(t, model.DefaultTiling, d.Line.Tiling)
	assert.True(t, dm.Planar(d).ApproxEqual(model.V3(4, 4, 0)))
	assert.Equal(t, [][]string{
		{event.FieldColor}, {event.FieldColor}, {event.FieldThickness}, {event.FieldLineKind}, {event.FieldTransform},
	}, changed)

	assert.True(t, model.IsValidation(dm.SetThickness(s, d.ID, 0)))
	assert.True(t, errors.Is(dm.SetColor(s, "missing", red), model.ErrNotFound))
}

func TestSplitLine(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager

	pts := []model.Vec3{model.V3(0, 0, 0), model.V3(1, 0, 0), model.V3(2, 0, 0), model.V3(3, 0, 0), model.V3(4, 0, 0)}
	d, err := dm.AddLine(s, pts, style(), false)
	require.NoError(t, err)

	parts, err := dm.Split(s, d.ID, []int{2}, false)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	_, ok := s.Object(d.ID)
	assert.False(t, ok)
	assert.Len(t, parts[0].Line.Points, 3)
	assert.Len(t, parts[1].Line.Points, 3)
	assert.True(t, dm.Planar(parts[0]).ApproxEqual(model.V3(1, 0, 0)))
	assert.True(t, dm.Planar(parts[1]).ApproxEqual(model.V3(3, 0, 0)))
	assert.Equal(t, 2, parts[0].Order)
	assert.Equal(t, 3, parts[1].Order)
	require.NoError(t, layer.Verify(s, 0))

	whole, err := dm.AddLine(s, pts, style(), false)
	require.NoError(t, err)
	parts, err = dm.SplitAt(s, whole.ID, model.V3(2, 0, 0), 0.1, true)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0].Line.Points, 2)

	_, err = dm.SplitAt(s, parts[0].ID, model.V3(9, 9, 0), 0.1, false)
	assert.True(t, model.IsValidation(err))

	edge, err := dm.AddLine(s, pts, style(), false)
	require.NoError(t, err)
	parts, err = dm.Split(s, edge.ID, []int{0}, false)
	assert.True(t, model.IsWarning(err))
	assert.Len(t, parts, 1)
}

func TestNodesThroughDrawableManager(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager

	theme, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Theme, Text: "root", Position: model.V3(0, 0, 0)})
	require.NoError(t, err)
	child, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Leaf, Text: "leaf", Position: model.V3(3, 0, 0), ParentID: theme.ID})
	require.NoError(t, err)

	_, err = dm.Delete(s, child.Node.BranchLineID)
	assert.True(t, model.IsValidation(err), "branch lines follow their nodes")
	require.NoError(t, dm.SetColor(s, child.Node.BranchLineID, model.White), "branch lines can be restyled")

	require.NoError(t, dm.SetText(s, theme.ID, "new root"))
	assert.Equal(t, "new root", theme.Node.Label.Content)
	require.NoError(t, dm.Move(s, child.ID, model.V3(4, 1, 0)))
	require.NoError(t, m.Validate(s))

	removed, err := dm.Delete(s, theme.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.Empty(t, s.Nodes())
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestAddImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.png")
	writePNG(t, path, 8, 4)

	off := newManager(t, false)
	_, err := off.DrawableManager.AddImage(newBoard(t, off), path, model.V3(0, 0, 0), 1)
	assert.True(t, errors.Is(err, model.ErrFeatureDisabled))

	m := newManager(t, true)
	s := newBoard(t, m)
	d, err := m.DrawableManager.AddImage(s, path, model.V3(1, 1, 0), 1.5)
	require.NoError(t, err)
	assert.Equal(t, "wide.png", d.Image.FileName)
	assert.InDelta(t, 3.0, d.Image.Width, 1e-6)
	assert.InDelta(t, 1.5, d.Image.Height, 1e-6)
	assert.NotEmpty(t, d.Image.Hash)

	out := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, m.PageExport(s, 0, out))
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.True(t, model.IsValidation(m.PageExport(s, 3, out)))
}

func TestSurfaceSaveAndLoad(t *testing.T) {
	m := newManager(t, true)
	s := newBoard(t, m)
	dm := m.DrawableManager

	theme, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Theme, Text: "root", Position: model.V3(0, 0, 0)})
	require.NoError(t, err)
	_, err = dm.AddNode(s, mindmap.NodeSpec{Kind: model.Subtheme, Text: "branch", Position: model.V3(2, 2, 0), ParentID: theme.ID})
	require.NoError(t, err)
	_, err = dm.AddLine(s, []model.Vec3{model.V3(0, 0, 0), model.V3(1, 0, 0)}, style(), false)
	require.NoError(t, err)
	want := len(s.Objects)

	require.NoError(t, m.SurfaceManager.SurfaceSave("board", ""))
	records, err := m.SurfaceManager.SurfaceStored()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "test board", records[0].Description)

	require.NoError(t, m.Registry.Remove("board", ""))
	_, err = m.SurfaceManager.SurfaceGet("board", "")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	loaded, err := m.SurfaceManager.SurfaceLoad("board", "")
	require.NoError(t, err)
	assert.Len(t, loaded.Objects, want)
	require.NoError(t, m.Validate(loaded))
	assert.Equal(t, 4, m.Allocator.Next(loaded, 0))

	require.NoError(t, m.SurfaceManager.SurfaceDelete("board", ""))
	_, err = m.SurfaceManager.SurfaceLoad("board", "")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	off := newManager(t, false)
	newBoard(t, off)
	assert.True(t, errors.Is(off.SurfaceManager.SurfaceSave("board", ""), model.ErrFeatureDisabled))
}

func TestSurfaceExportImport(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager
	_, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Theme, Text: "root", Position: model.V3(0, 0, 0)})
	require.NoError(t, err)
	_, err = dm.AddText(s, model.V3(1, 2, 0), model.DefaultDrawingContext().TextStyle("note"))
	require.NoError(t, err)
	require.NoError(t, m.Pages.SwitchPage(s, 1))

	for _, name := range []string{"board.json", "board.yaml", "board.xml"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, m.SurfaceExport(path, s))

		other := newManager(t, false)
		got, err := other.SurfaceImport(path)
		require.NoError(t, err, name)
		require.Len(t, got, 1)
		assert.Equal(t, len(s.Objects), len(got[0].Objects), name)
		assert.Equal(t, 1, got[0].CurrentPage, name)
		found, err := other.SurfaceManager.SurfaceGet("board", "")
		require.NoError(t, err)
		assert.Same(t, got[0], found)
	}

	assert.True(t, model.IsValidation(m.SurfaceExport(filepath.Join(t.TempDir(), "none.json"))))
	_, err = m.SurfaceImport(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTransitions(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager

	theme, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Theme, Text: "root", Position: model.V3(0, 0, 0)})
	require.NoError(t, err)
	child, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Subtheme, Text: "sub", Position: model.V3(3, 1, 0), ParentID: theme.ID})
	require.NoError(t, err)
	branch, ok := s.Object(child.Node.BranchLineID)
	require.True(t, ok)
	before := append([]model.Vec3(nil), branch.Line.Points...)

	tok, err := dm.Glide(s, child.ID, model.V3(5, 1, 0), 100*time.Millisecond)
	require.NoError(t, err)
	m.Scheduler.Tick(50 * time.Millisecond)
	assert.True(t, dm.Planar(child).ApproxEqual(model.V3(4, 1, 0)))
	m.Scheduler.Tick(50 * time.Millisecond)
	assert.True(t, tok.Finished())
	assert.True(t, dm.Planar(child).ApproxEqual(model.V3(5, 1, 0)))
	assert.NotEqual(t, before, branch.Line.Points, "branch line follows the node")

	line, err := dm.AddLine(s, []model.Vec3{model.V3(0, 0, 0), model.V3(1, 0, 0)}, style(), false)
	require.NoError(t, err)
	fade, err := dm.Fade(s, line.ID, 0, time.Second)
	require.NoError(t, err)
	_, err = dm.DeleteAfter(s, line.ID, time.Second)
	require.NoError(t, err)
	assert.True(t, fade.Cancelled(), "a new transition replaces the running one")

	m.Scheduler.Tick(500 * time.Millisecond)
	_, ok = s.Object(line.ID)
	assert.True(t, ok)
	m.Scheduler.Tick(600 * time.Millisecond)
	_, ok = s.Object(line.ID)
	assert.False(t, ok)
	assert.Zero(t, m.Scheduler.Running())
}

func TestDestructionCancelsTransitions(t *testing.T) {
	m := newManager(t, false)
	s := newBoard(t, m)
	dm := m.DrawableManager

	var sent []replication.Command
	m.Bridge.SetSender(func(c replication.Command) error {
		sent = append(sent, c)
		return nil
	})

	line, err := dm.AddLine(s, []model.Vec3{model.V3(0, 0, 0), model.V3(1, 0, 0)}, style(), false)
	require.NoError(t, err)
	tok, err := dm.Glide(s, line.ID, model.V3(4, 0, 0), time.Second)
	require.NoError(t, err)
	m.Scheduler.Tick(100 * time.Millisecond)
	require.Equal(t, 1, m.Scheduler.Running())

	remote := replication.Command{ID: "d1", Origin: "bob", Verb: replication.Delete, Surface: replication.SurfaceRef{ID: s.ID}, ObjectID: line.ID}
	require.NoError(t, m.Bridge.ApplyRemote(remote))
	assert.Zero(t, m.Scheduler.Running())
	assert.True(t, tok.Cancelled())

	sent = nil
	m.Scheduler.Tick(100 * time.Millisecond)
	assert.Empty(t, sent, "no change is sent for a destroyed object")

	// subtree removal stops the transitions of every removed node
	theme, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Theme, Text: "root", Position: model.V3(0, 0, 0)})
	require.NoError(t, err)
	child, err := dm.AddNode(s, mindmap.NodeSpec{Kind: model.Subtheme, Text: "sub", Position: model.V3(3, 1, 0), ParentID: theme.ID})
	require.NoError(t, err)
	_, err = dm.Fade(s, child.ID, 0, time.Second)
	require.NoError(t, err)
	_, err = dm.Delete(s, theme.ID)
	require.NoError(t, err)
	assert.Zero(t, m.Scheduler.Running())

	// so does a page clear, local or remote
	text, err := dm.AddText(s, model.V3(0, 0, 0), model.DefaultDrawingContext().TextStyle("note"))
	require.NoError(t, err)
	_, err = dm.Resize(s, text.ID, model.V3(2, 2, 1), time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, m.Scheduler.Running())
	p := 0
	clear := replication.Command{ID: "c1", Origin: "bob", Verb: replication.ClearPage, Surface: replication.SurfaceRef{ID: s.ID}, Change: &replication.Change{Page: &p}}
	require.NoError(t, m.Bridge.ApplyRemote(clear))
	assert.Zero(t, m.Scheduler.Running())
}
