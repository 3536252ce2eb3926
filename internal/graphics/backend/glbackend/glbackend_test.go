package glbackend

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"framekit/internal/graphics"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGLViewportFlipsY(t *testing.T) {
	tests := []struct {
		name       string
		rect       image.Rectangle
		screenH    int
		x, y, w, h int32
	}{
		{"full screen", image.Rect(0, 0, 900, 600), 600, 0, 0, 900, 600},
		{"top half", image.Rect(0, 0, 900, 300), 600, 0, 300, 900, 300},
		{"bottom right", image.Rect(450, 300, 900, 600), 600, 450, 0, 450, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, w, h := glViewport(tt.rect, tt.screenH)
			assert.Equal(t, []int32{tt.x, tt.y, tt.w, tt.h}, []int32{x, y, w, h})
		})
	}
}

func TestClearMask(t *testing.T) {
	assert.Equal(t, uint32(gl.COLOR_BUFFER_BIT|gl.DEPTH_BUFFER_BIT), clearMask(graphics.ClearSolidColor))
	assert.Equal(t, uint32(gl.DEPTH_BUFFER_BIT), clearMask(graphics.ClearDepth))
	assert.Zero(t, clearMask(graphics.ClearNone))
}

func TestFlattenMatrices(t *testing.T) {
	ms := []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(1, 2, 3)}
	out := flattenMatrices(nil, ms)
	require.Len(t, out, 32)
	assert.Equal(t, float32(1), out[0])
	assert.Equal(t, []float32{1, 2, 3, 1}, out[28:32])
}

func TestColorOrWhite(t *testing.T) {
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, colorOrWhite(mgl32.Vec4{}))
	red := mgl32.Vec4{1, 0, 0, 1}
	assert.Equal(t, red, colorOrWhite(red))
}

func TestDecodeRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	rgba, err := decodeRGBA(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 1), rgba.Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, rgba.RGBAAt(1, 0))

	_, err = decodeRGBA(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestAlphaToRGBA(t *testing.T) {
	a := image.NewAlpha(image.Rect(0, 0, 2, 2))
	a.SetAlpha(1, 1, color.Alpha{A: 128})
	rgba := alphaToRGBA(a)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 128}, rgba.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255}, rgba.RGBAAt(0, 0))
}

func TestTextureCacheLoadsOnce(t *testing.T) {
	calls := 0
	c := &TextureCache{byPath: map[string]uint32{}, load: func(path string) (uint32, error) {
		calls++
		if path == "missing.png" {
			return 0, errors.New("not found")
		}
		return uint32(calls), nil
	}}

	first, err := c.Get("stone.png")
	require.NoError(t, err)
	again, err := c.Get("stone.png")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, calls)

	_, err = c.Get("missing.png")
	assert.Error(t, err)
	_, err = c.Get("missing.png")
	assert.Error(t, err)
	assert.Equal(t, 3, calls, "failures are not cached")
}
