// Package measure computes the bounding box of rendered text using the Go
// fonts, so that node borders can be sized around their labels.
package measure

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chewxy/math32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"inkboard/src/pkg/model"
)

// DefaultPixelsPerUnit maps one unit of surface space to font pixels.
const DefaultPixelsPerUnit float32 = 100

type faceKey struct {
	px     int
	bold   bool
	italic bool
}

// FontMeasurer measures text with the Go font family. It is safe for
// concurrent use.
type FontMeasurer struct {
	mu            sync.Mutex
	regular       *opentype.Font
	bold          *opentype.Font
	italic        *opentype.Font
	boldItalic    *opentype.Font
	cache         map[faceKey]font.Face
	pixelsPerUnit float32
}

// NewFontMeasurer parses the embedded Go fonts.
func NewFontMeasurer(pixelsPerUnit float32) (*FontMeasurer, error) {
	if pixelsPerUnit <= 0 {
		pixelsPerUnit = DefaultPixelsPerUnit
	}
	m := &FontMeasurer{cache: make(map[faceKey]font.Face), pixelsPerUnit: pixelsPerUnit}

	var err error
	if m.regular, err = opentype.Parse(goregular.TTF); err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	if m.bold, err = opentype.Parse(gobold.TTF); err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	if m.italic, err = opentype.Parse(goitalic.TTF); err != nil {
		return nil, fmt.Errorf("failed to parse italic font: %w", err)
	}
	if m.boldItalic, err = opentype.Parse(gobolditalic.TTF); err != nil {
		return nil, fmt.Errorf("failed to parse bold italic font: %w", err)
	}
	return m, nil
}

// Measure returns the width and height of text in surface units. Lines are
// split on newlines; width is the widest line.
func (m *FontMeasurer) Measure(text string, size float32, styles model.FontStyle) (float32, float32) {
	if size <= 0 {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	face := m.face(size, styles)
	lines := strings.Split(text, "\n")
	var widest fixed.Int26_6
	for _, l := range lines {
		if adv := font.MeasureString(face, l); adv > widest {
			widest = adv
		}
	}
	metrics := face.Metrics()
	lineHeight := metrics.Height
	if lineHeight == 0 {
		lineHeight = metrics.Ascent + metrics.Descent
	}

	w := fixedToFloat(widest) / m.pixelsPerUnit
	h := fixedToFloat(lineHeight) * float32(len(lines)) / m.pixelsPerUnit
	return w, h
}

// Face returns the cached face used for size and styles. Callers outside this
// package must not use the face concurrently with Measure.
func (m *FontMeasurer) Face(size float32, styles model.FontStyle) font.Face {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.face(size, styles)
}

func (m *FontMeasurer) face(size float32, styles model.FontStyle) font.Face {
	key := faceKey{
		px:     int(math32.Round(size * m.pixelsPerUnit)),
		bold:   styles.Has(model.FontBold),
		italic: styles.Has(model.FontItalic),
	}
	if key.px < 1 {
		key.px = 1
	}
	if f, ok := m.cache[key]; ok {
		return f
	}

	var base *opentype.Font
	switch {
	case key.bold && key.italic:
		base = m.boldItalic
	case key.bold:
		base = m.bold
	case key.italic:
		base = m.italic
	default:
		base = m.regular
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: float64(key.px), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	m.cache[key] = face
	return face
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
