package glbackend

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"io"
	"os"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Filter selects texture sampling.
type Filter int32

const (
	Nearest Filter = gl.NEAREST
	Linear  Filter = gl.LINEAR
)

// decodeRGBA decodes a PNG, BMP or WebP image into RGBA.
func decodeRGBA(r io.Reader) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

// alphaToRGBA turns a coverage mask into white pixels carrying the mask as
// alpha, so glyph atlases tint with the draw color.
func alphaToRGBA(a *image.Alpha) *image.RGBA {
	b := a.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := a.AlphaAt(b.Min.X+x, b.Min.Y+y).A
			i := rgba.PixOffset(x, y)
			rgba.Pix[i+0] = 0xff
			rgba.Pix[i+1] = 0xff
			rgba.Pix[i+2] = 0xff
			rgba.Pix[i+3] = v
		}
	}
	return rgba
}

// UploadTexture creates a 2D texture from img.
func UploadTexture(img *image.RGBA, filter Filter) uint32 {
	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, int32(filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, int32(filter))

	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(img.Rect.Dx()),
		int32(img.Rect.Dy()),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texture
}

// UploadAlpha uploads a coverage mask such as a glyph atlas.
func UploadAlpha(a *image.Alpha) uint32 {
	return UploadTexture(alphaToRGBA(a), Nearest)
}

// LoadTexture loads a 2D texture from a file.
func LoadTexture(path string) (uint32, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to open texture file: %w", err)
	}
	defer file.Close()

	rgba, err := decodeRGBA(file)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%s: %w", path, err)
	}
	return UploadTexture(rgba, Nearest), rgba.Rect.Dx(), rgba.Rect.Dy(), nil
}

// TextureCache loads each texture path once.
type TextureCache struct {
	mu     sync.RWMutex
	byPath map[string]uint32
	load   func(path string) (uint32, error)
}

// NewTextureCache returns a cache that loads through LoadTexture.
func NewTextureCache() *TextureCache {
	return &TextureCache{
		byPath: make(map[string]uint32),
		load: func(path string) (uint32, error) {
			tex, _, _, err := LoadTexture(path)
			return tex, err
		},
	}
}

// Get returns the texture for path, loading it on first use.
func (c *TextureCache) Get(path string) (uint32, error) {
	c.mu.RLock()
	if tex, ok := c.byPath[path]; ok {
		c.mu.RUnlock()
		return tex, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check locking
	if tex, ok := c.byPath[path]; ok {
		return tex, nil
	}

	tex, err := c.load(path)
	if err != nil {
		return 0, err
	}
	c.byPath[path] = tex
	return tex, nil
}

// Release deletes every cached texture.
func (c *TextureCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, tex := range c.byPath {
		gl.DeleteTextures(1, &tex)
		delete(c.byPath, path)
	}
}
