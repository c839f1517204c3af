package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

func lineOn(s *model.Surface, id string, page int, c model.Color, pts ...model.Vec3) {
	s.Objects[id] = &model.Drawable{ID: id, Kind: model.KindLine, Page: page, Order: len(s.Objects) + 1,
		Transform: model.IdentityTransform(), State: model.StateActive,
		Line: &model.Line{Points: pts, Thickness: 0.05, PrimaryColor: c, SecondaryColor: model.White}}
}

func TestRenderDrawsLine(t *testing.T) {
	r, err := NewRenderer(100, nil, log.NewDiscardLogger())
	require.NoError(t, err)

	s := model.NewSurface("s", "")
	red := model.Color{R: 1, A: 1}
	lineOn(s, "a", 0, red, model.V3(0, 0, 0), model.V3(2, 0, 0))
	lineOn(s, "b", 0, red, model.V3(0, 1, 0), model.V3(0, 1.0001, 0))

	img, err := r.Render(s, 0)
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, 200+2*Padding, b.Dx())
	assert.Equal(t, 100+2*Padding, b.Dy())

	cr, cg, _, _ := img.At(Padding+100, Padding+100).RGBA()
	assert.Greater(t, cr, uint32(0xf000))
	assert.Less(t, cg, uint32(0x1000))

	wr, wg, _, _ := img.At(Padding+100, Padding+50).RGBA()
	assert.Equal(t, uint32(0xffff), wr)
	assert.Equal(t, uint32(0xffff), wg)
}

func TestRenderEmptyPage(t *testing.T) {
	r, err := NewRenderer(100, nil, log.NewDiscardLogger())
	require.NoError(t, err)
	s := model.NewSurface("s", "")
	lineOn(s, "a", 1, model.Black, model.V3(0, 0, 0), model.V3(1, 1, 0))

	_, err = r.Render(s, 0)
	assert.Error(t, err)
}

func TestExportPNGWithTextAndNodes(t *testing.T) {
	r, err := NewRenderer(50, nil, log.NewDiscardLogger())
	require.NoError(t, err)

	s := model.NewSurface("s", "")
	s.Objects["t"] = &model.Drawable{ID: "t", Kind: model.KindText, Order: 1, Transform: model.TransformAt(model.V3(1, 1, 0)),
		State: model.StateActive, Text: &model.Text{Content: "hi\nthere", FontSize: 0.5, FontColor: model.Black, Width: 1, Height: 1}}
	s.Objects["i"] = &model.Drawable{ID: "i", Kind: model.KindImage, Order: 2, Transform: model.IdentityTransform(),
		State: model.StateActive, Image: &model.Image{FileName: "x.png", Width: 1, Height: 1}}
	gradient := &model.Line{Points: []model.Vec3{model.V3(0, 0, 0), model.V3(1, 0, 0), model.V3(2, 0, 0)},
		Thickness: 0.02, ColorKind: model.Gradient, PrimaryColor: model.Black, SecondaryColor: model.White, LineKind: model.Dashed50}
	s.Objects["g"] = &model.Drawable{ID: "g", Kind: model.KindLine, Order: 3, Transform: model.IdentityTransform(),
		State: model.StateActive, Line: gradient}

	path := filepath.Join(t.TempDir(), "out", "page.png")
	require.NoError(t, r.ExportPNG(s, 0, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNewRendererValidates(t *testing.T) {
	_, err := NewRenderer(0, nil, log.NewDiscardLogger())
	assert.Error(t, err)
	_, err = NewRenderer(10, nil, nil)
	assert.Error(t, err)
}
