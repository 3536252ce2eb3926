package text

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var ErrEmptyFont = errors.New("text: font has no glyphs")

// Glyph is one glyph's atlas placement and metrics, in pixels. BearingY is
// the height of the glyph top above the baseline.
type Glyph struct {
	X, Y     int
	W, H     int
	BearingX int
	BearingY int
	Advance  int
}

// Atlas is a single channel glyph sheet. Texture is set once the image has
// been uploaded by the backend.
type Atlas struct {
	Image      *image.Alpha
	Glyphs     map[rune]Glyph
	Ascent     int
	Descent    int
	LineHeight int
	Texture    uint32
}

// ASCII returns the printable ASCII range.
func ASCII() []rune {
	runes := make([]rune, 0, 126-32+1)
	for r := rune(32); r <= 126; r++ {
		runes = append(runes, r)
	}
	return runes
}

// DefaultFace is the built-in 7x13 bitmap face.
func DefaultFace() font.Face {
	return basicfont.Face7x13
}

// LoadFace parses a TrueType or OpenType file at the given pixel size.
func LoadFace(path string, pixels float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: pixels, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	return face, nil
}

// BuildAtlas packs the glyphs of runes into rows of the given width.
// Runes the face lacks are left out. A face yielding no glyph at all is
// rejected with ErrEmptyFont.
func BuildAtlas(face font.Face, runes []rune, width int) (*Atlas, error) {
	if face == nil {
		return nil, ErrEmptyFont
	}
	const padding = 1

	type placed struct {
		r       rune
		dr      image.Rectangle
		mask    image.Image
		maskp   image.Point
		advance fixed.Int26_6
	}
	var glyphs []placed
	for _, r := range runes {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil {
			continue
		}
		glyphs = append(glyphs, placed{r, dr, mask, maskp, advance})
	}
	if len(glyphs) == 0 {
		return nil, ErrEmptyFont
	}

	// First pass sizes the sheet, second pass draws into it.
	x, y, rowH := 0, 0, 0
	pos := make([]image.Point, len(glyphs))
	for i, g := range glyphs {
		gw, gh := g.dr.Dx(), g.dr.Dy()
		if gw > width {
			return nil, fmt.Errorf("text: glyph %q is wider than the atlas (%d > %d)", g.r, gw, width)
		}
		if x+gw > width {
			x = 0
			y += rowH + padding
			rowH = 0
		}
		pos[i] = image.Pt(x, y)
		x += gw + padding
		rowH = max(rowH, gh)
	}
	height := max(y+rowH, 1)

	m := face.Metrics()
	a := &Atlas{
		Image:      image.NewAlpha(image.Rect(0, 0, width, height)),
		Glyphs:     make(map[rune]Glyph, len(glyphs)),
		Ascent:     m.Ascent.Ceil(),
		Descent:    m.Descent.Ceil(),
		LineHeight: m.Height.Ceil(),
	}
	for i, g := range glyphs {
		gw, gh := g.dr.Dx(), g.dr.Dy()
		p := pos[i]
		if gw > 0 && gh > 0 {
			draw.Draw(a.Image, image.Rect(p.X, p.Y, p.X+gw, p.Y+gh), g.mask, g.maskp, draw.Src)
		}
		a.Glyphs[g.r] = Glyph{
			X: p.X, Y: p.Y, W: gw, H: gh,
			BearingX: g.dr.Min.X,
			BearingY: -g.dr.Min.Y,
			Advance:  g.advance.Round(),
		}
	}
	return a, nil
}

func (a *Atlas) glyph(r rune) (Glyph, bool) {
	if g, ok := a.Glyphs[r]; ok {
		return g, true
	}
	g, ok := a.Glyphs[' ']
	return Glyph{Advance: g.Advance}, ok
}

// Measure returns the pixel width of s and the line height.
func (a *Atlas) Measure(s string) (width, height int) {
	for _, r := range s {
		g, _ := a.glyph(r)
		width += g.Advance
	}
	return width, a.Ascent + a.Descent
}

// Quads appends two triangles per visible glyph of s to dst, five floats
// (x, y, z, u, v) per vertex. The baseline starts at the origin and Y points
// up.
func (a *Atlas) Quads(dst []float32, s string) []float32 {
	aw := float32(a.Image.Rect.Dx())
	ah := float32(a.Image.Rect.Dy())
	x := 0
	for _, r := range s {
		g, _ := a.glyph(r)
		if unicode.IsSpace(r) || g.W == 0 || g.H == 0 {
			x += g.Advance
			continue
		}
		x0 := float32(x + g.BearingX)
		x1 := x0 + float32(g.W)
		y1 := float32(g.BearingY)
		y0 := y1 - float32(g.H)
		u0, v0 := float32(g.X)/aw, float32(g.Y)/ah
		u1, v1 := float32(g.X+g.W)/aw, float32(g.Y+g.H)/ah
		dst = append(dst,
			x0, y0, 0, u0, v1,
			x1, y0, 0, u1, v1,
			x1, y1, 0, u1, v0,
			x0, y0, 0, u0, v1,
			x1, y1, 0, u1, v0,
			x0, y1, 0, u0, v0,
		)
		x += g.Advance
	}
	return dst
}
