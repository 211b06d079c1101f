// Package render holds the pixel surfaces layers draw into, the
// Porter-Duff compositor that stacks them and the correction pass applied
// to the final frame.
package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/coreman2200/hidden-shades/internal/palette"
)

// Color is a premultiplied linear RGBA sample, channels in [0,1].
type Color struct{ R, G, B, A float32 }

var Transparent = Color{}

// FromPalette premultiplies a packed straight-alpha color.
func FromPalette(c palette.Color) Color {
	a := float32(c.A()) / 255
	return Color{
		R: float32(c.R()) / 255 * a,
		G: float32(c.G()) / 255 * a,
		B: float32(c.B()) / 255 * a,
		A: a,
	}
}

// Dimensions of the display surface.
type Dimensions struct{ X, Y int }

func (d Dimensions) Pixels() int { return d.X * d.Y }

// Canvas is a row-major surface of premultiplied samples.
type Canvas struct {
	Dim Dimensions
	Pix []Color
}

// NewCanvas allocates a transparent canvas.
func NewCanvas(dim Dimensions) (*Canvas, error) {
	if dim.X <= 0 || dim.Y <= 0 {
		return nil, errors.New("invalid dimensions")
	}
	return &Canvas{Dim: dim, Pix: make([]Color, dim.Pixels())}, nil
}

// Clear makes every pixel transparent.
func (c *Canvas) Clear() {
	for i := range c.Pix {
		c.Pix[i] = Transparent
	}
}

// Fill sets every pixel to col.
func (c *Canvas) Fill(col Color) {
	for i := range c.Pix {
		c.Pix[i] = col
	}
}

func (c *Canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.Dim.X && y < c.Dim.Y
}

// Set writes one pixel; coordinates outside the canvas are ignored.
func (c *Canvas) Set(x, y int, col Color) {
	if c.inside(x, y) {
		c.Pix[y*c.Dim.X+x] = col
	}
}

// At reads one pixel; outside the canvas reads transparent.
func (c *Canvas) At(x, y int) Color {
	if !c.inside(x, y) {
		return Transparent
	}
	return c.Pix[y*c.Dim.X+x]
}

// ScaleRGB multiplies the color channels by s, leaving alpha alone.
func (c *Canvas) ScaleRGB(s float32) {
	if s == 1 {
		return
	}
	for i := range c.Pix {
		c.Pix[i].R *= s
		c.Pix[i].G *= s
		c.Pix[i].B *= s
	}
}

// CopyFrom replaces the canvas contents with img, sampled from its origin.
func (c *Canvas) CopyFrom(img image.Image) {
	b := img.Bounds()
	for y := 0; y < c.Dim.Y; y++ {
		for x := 0; x < c.Dim.X; x++ {
			if x >= b.Dx() || y >= b.Dy() {
				c.Pix[y*c.Dim.X+x] = Transparent
				continue
			}
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			c.Pix[y*c.Dim.X+x] = Color{
				R: float32(r) / 0xFFFF,
				G: float32(g) / 0xFFFF,
				B: float32(bl) / 0xFFFF,
				A: float32(a) / 0xFFFF,
			}
		}
	}
}

// Image renders the canvas over black as an 8 bit image for previews.
func (c *Canvas) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Dim.X, c.Dim.Y))
	for y := 0; y < c.Dim.Y; y++ {
		for x := 0; x < c.Dim.X; x++ {
			p := c.Pix[y*c.Dim.X+x]
			img.SetRGBA(x, y, color.RGBA{R: to8(p.R), G: to8(p.G), B: to8(p.B), A: 0xFF})
		}
	}
	return img
}

// RGB writes the frame as packed 8 bit RGB triples into dst, growing it
// when needed. Premultiplied channels are emitted as is, i.e. over black.
func (c *Canvas) RGB(dst []byte) []byte {
	n := 3 * len(c.Pix)
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, p := range c.Pix {
		dst[3*i+0] = to8(p.R)
		dst[3*i+1] = to8(p.G)
		dst[3*i+2] = to8(p.B)
	}
	return dst
}

func to8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

// Output receives every finished frame as packed RGB.
type Output interface {
	Push(rgb []byte)
}
