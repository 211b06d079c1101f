// Package palette holds packed ARGB colors and the interpolated color
// sequences used as layer and global palettes.
package palette

import (
	"fmt"
	"image/color"
)

const (
	AlphaOffset uint8 = 0x18
	RedOffset   uint8 = 0x10
	GreenOffset uint8 = 0x08
	BlueOffset  uint8 = 0x0
)

// Color is a packed 0xAARRGGBB value. Alpha is straight, not premultiplied.
type Color uint32

func channel(c Color, off uint8) uint8 {
	return uint8((uint32(c) >> off) & 0xFF)
}

func withChannel(c Color, n uint8, off uint8) Color {
	mask := uint32(0xFF) << off
	return Color((uint32(c) &^ mask) | uint32(n)<<off)
}

// RGBA packs the four channels.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(a)<<AlphaOffset | uint32(r)<<RedOffset | uint32(g)<<GreenOffset | uint32(b)<<BlueOffset)
}

func (c Color) A() uint8 { return channel(c, AlphaOffset) }
func (c Color) R() uint8 { return channel(c, RedOffset) }
func (c Color) G() uint8 { return channel(c, GreenOffset) }
func (c Color) B() uint8 { return channel(c, BlueOffset) }

func (c Color) WithA(a uint8) Color { return withChannel(c, a, AlphaOffset) }

// NRGBA converts to the standard library's straight-alpha color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}
}

// Floats returns the straight channels scaled to [0,1].
func (c Color) Floats() (r, g, b, a float64) {
	return float64(c.R()) / 255, float64(c.G()) / 255, float64(c.B()) / 255, float64(c.A()) / 255
}

func (c Color) String() string {
	return fmt.Sprintf("0x%08X", uint32(c))
}

func lerp8(a, b uint8, t float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*t
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// Lerp blends every channel of a toward b by t in [0,1].
func Lerp(a, b Color, t float64) Color {
	return RGBA(
		lerp8(a.R(), b.R(), t),
		lerp8(a.G(), b.G(), t),
		lerp8(a.B(), b.B(), t),
		lerp8(a.A(), b.A(), t),
	)
}
