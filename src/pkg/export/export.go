// Package export renders one page of a surface to a PNG image.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"inkboard/src/pkg/geometry"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/storage"
)

// Padding around the rendered content, in pixels.
const Padding = 16

// ImageSource returns the bytes of a stored image blob.
type ImageSource interface {
	BlobGet(name string) ([]byte, storage.BlobInfo, error)
}

// Renderer draws surface pages with gg.
type Renderer struct {
	pixelsPerUnit float64
	images        ImageSource
	logger        *log.Logger

	fontOnce sync.Once
	font     *truetype.Font
	fontErr  error
	faces    map[int]font.Face
	mu       sync.Mutex
}

// NewRenderer creates a Renderer. images may be nil, in which case image
// drawables are rendered as their outline.
func NewRenderer(pixelsPerUnit float32, images ImageSource, logger *log.Logger) (*Renderer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if pixelsPerUnit <= 0 {
		return nil, fmt.Errorf("pixels per unit must be positive, got %g", pixelsPerUnit)
	}
	return &Renderer{
		pixelsPerUnit: float64(pixelsPerUnit),
		images:        images,
		logger:        logger,
		faces:         make(map[int]font.Face),
	}, nil
}

// frame maps surface coordinates to pixels. Y grows upwards on the surface
// and downwards in the image.
type frame struct {
	lo, hi model.Vec3
	ppu    float64
}

func (f frame) px(p model.Vec3) (float64, float64) {
	return float64(p.X-f.lo.X)*f.ppu + Padding, float64(f.hi.Y-p.Y)*f.ppu + Padding
}

// Render draws the live objects of page in stacking order.
func (r *Renderer) Render(s *model.Surface, page int) (image.Image, error) {
	objs := s.OnPage(page)
	if len(objs) == 0 {
		return nil, fmt.Errorf("nothing to export on page %d", page)
	}

	var pts []model.Vec3
	for _, d := range objs {
		pts = append(pts, outline(d)...)
	}
	lo, hi := geometry.Bounds(pts)
	f := frame{lo: lo, hi: hi, ppu: r.pixelsPerUnit}
	w := int(float64(hi.X-lo.X)*f.ppu) + 2*Padding
	h := int(float64(hi.Y-lo.Y)*f.ppu) + 2*Padding

	dc := gg.NewContext(w, h)
	dc.SetColor(rgba(s.Color))
	dc.Clear()

	for _, d := range objs {
		switch d.Kind {
		case model.KindLine:
			r.drawLine(dc, f, d.Transform, d.Line)
		case model.KindText:
			r.drawText(dc, f, d.Transform, d.Text)
		case model.KindImage:
			r.drawImage(dc, f, d)
		case model.KindMindMapNode:
			r.drawLine(dc, f, d.Transform, &d.Node.Border)
			r.drawText(dc, f, d.Transform, &d.Node.Label)
		}
	}
	return dc.Image(), nil
}

// ExportPNG renders page into a PNG file at path.
func (r *Renderer) ExportPNG(s *model.Surface, page int, path string) error {
	ctx := context.Background()
	r.logger.Info(ctx, "Exporting page", log.Fields{"surfaceID": s.ID, "page": page, "path": path})

	img, err := r.Render(s, page)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := gg.SavePNG(path, img); err != nil {
		r.logger.Error(ctx, "Failed to write PNG", log.Fields{"error": err, "path": path})
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return nil
}

// outline returns surface-space points bounding d.
func outline(d *model.Drawable) []model.Vec3 {
	switch d.Kind {
	case model.KindLine:
		return geometry.PointsToWorld(d.Transform, d.Line.Points)
	case model.KindText:
		return box(d.Transform, d.Text.Width, d.Text.Height)
	case model.KindImage:
		return box(d.Transform, d.Image.Width, d.Image.Height)
	case model.KindMindMapNode:
		return append(geometry.PointsToWorld(d.Transform, d.Node.Border.Points),
			box(d.Transform, d.Node.Label.Width, d.Node.Label.Height)...)
	}
	return nil
}

// box returns the corners of a w×h rectangle centered on t.
func box(t model.Transform, w, h float32) []model.Vec3 {
	hw, hh := w/2, h/2
	return geometry.PointsToWorld(t, []model.Vec3{
		model.V3(-hw, -hh, 0), model.V3(hw, -hh, 0), model.V3(hw, hh, 0), model.V3(-hw, hh, 0),
	})
}

func (r *Renderer) drawLine(dc *gg.Context, f frame, t model.Transform, l *model.Line) {
	pts := geometry.PointsToWorld(t, l.Points)
	if len(pts) < 2 {
		return
	}
	if l.FillOut && len(l.FillTriangles) >= 3 {
		dc.NewSubPath()
		for _, p := range pts {
			dc.LineTo(f.px(p))
		}
		dc.ClosePath()
		dc.SetColor(rgba(l.FillOutColor))
		dc.Fill()
	}

	dc.SetLineWidth(max(1, float64(l.Thickness)*f.ppu))
	dc.SetLineCapRound()
	if l.LineKind != model.Solid {
		dash := max(2, float64(l.Thickness)*f.ppu*3*dashScale(l.LineKind, l.Tiling))
		dc.SetDash(dash, dash)
	} else {
		dc.SetDash()
	}

	if l.ColorKind == model.Monochrome {
		dc.SetColor(rgba(l.PrimaryColor))
		dc.MoveTo(f.px(pts[0]))
		for _, p := range pts[1:] {
			dc.LineTo(f.px(p))
		}
		dc.Stroke()
		return
	}

	n := len(pts) - 1
	for i := 0; i < n; i++ {
		c := l.PrimaryColor
		switch l.ColorKind {
		case model.Gradient:
			c = l.PrimaryColor.Blend(l.SecondaryColor, float32(i)/float32(max(1, n-1)))
		case model.TwoDashed:
			if i%2 == 1 {
				c = l.SecondaryColor
			}
		}
		dc.SetColor(rgba(c))
		x1, y1 := f.px(pts[i])
		x2, y2 := f.px(pts[i+1])
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}
}

// dashScale relates the fixed dash patterns to each other.
func dashScale(k model.LineKind, tiling float32) float64 {
	if k == model.Dashed {
		return 1
	}
	return float64(k.DashTiling(tiling)) * 0.6
}

func (r *Renderer) drawText(dc *gg.Context, f frame, t model.Transform, txt *model.Text) {
	if txt.Content == "" {
		return
	}
	face, err := r.face(float64(txt.FontSize) * f.ppu)
	if err != nil {
		r.logger.Warn(context.Background(), "Text skipped in export", log.Fields{"error": err})
		return
	}
	dc.SetFontFace(face)
	dc.SetColor(rgba(txt.FontColor))
	x, y := f.px(t.Position)
	lines := strings.Split(txt.Content, "\n")
	lh := dc.FontHeight() * 1.2
	top := y - lh*float64(len(lines)-1)/2
	for i, line := range lines {
		dc.DrawStringAnchored(line, x, top+float64(i)*lh, 0.5, 0.5)
	}
}

func (r *Renderer) drawImage(dc *gg.Context, f frame, d *model.Drawable) {
	corners := box(d.Transform, d.Image.Width, d.Image.Height)
	x0, y0 := f.px(corners[3])
	w := float64(d.Image.Width) * f.ppu
	h := float64(d.Image.Height) * f.ppu

	img, err := r.loadImage(d.Image.FileName)
	if err != nil || w <= 0 || h <= 0 {
		if err != nil {
			r.logger.Warn(context.Background(), "Image drawn as outline", log.Fields{"imageID": d.ID, "error": err})
		}
		dc.SetDash()
		dc.SetLineWidth(1)
		dc.SetColor(color.Black)
		dc.DrawRectangle(x0, y0, w, h)
		dc.Stroke()
		return
	}
	b := img.Bounds()
	dc.Push()
	dc.Translate(x0, y0)
	dc.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

func (r *Renderer) loadImage(name string) (image.Image, error) {
	if r.images == nil {
		return nil, model.ErrFeatureDisabled
	}
	data, _, err := r.images.BlobGet(name)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}
	return img, nil
}

// face returns a cached Go Mono face of the given pixel size.
func (r *Renderer) face(px float64) (font.Face, error) {
	r.fontOnce.Do(func() {
		r.font, r.fontErr = truetype.Parse(gomono.TTF)
	})
	if r.fontErr != nil {
		return nil, fmt.Errorf("failed to parse font: %w", r.fontErr)
	}
	size := int(px + 0.5)
	if size < 1 {
		size = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f := truetype.NewFace(r.font, &truetype.Options{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[size] = f
	return f, nil
}

func rgba(c model.Color) color.Color {
	r, g, b := colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped().RGB255()
	a := c.A
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}
