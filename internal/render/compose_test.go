package render

import (
	"math"
	"testing"

	"github.com/coreman2200/hidden-shades/internal/palette"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func same(a, b Color) bool {
	return near(a.R, b.R) && near(a.G, b.G) && near(a.B, b.B) && near(a.A, b.A)
}

func canvases(t *testing.T, s, d Color) (dst, src, dc *Canvas) {
	dim := Dimensions{X: 2, Y: 1}
	var err error
	if dst, err = NewCanvas(dim); err != nil {
		t.Fatalf("canvas: %v", err)
	}
	src, _ = NewCanvas(dim)
	dc, _ = NewCanvas(dim)
	src.Fill(s)
	dc.Fill(d)
	return dst, src, dc
}

func TestSourceOverOpaqueAndTransparent(t *testing.T) {
	d := Color{0.2, 0.4, 0.6, 0.8}
	dst, src, dc := canvases(t, Color{1, 0.5, 0, 1}, d)
	if err := Compose(dst, src, dc, ModeSourceOver); err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !same(dst.Pix[0], src.Pix[0]) {
		t.Fatalf("opaque source-over should yield S, got %#v", dst.Pix[0])
	}

	dst, src, dc = canvases(t, Transparent, d)
	_ = Compose(dst, src, dc, ModeSourceOver)
	if !same(dst.Pix[1], d) {
		t.Fatalf("transparent source-over should yield D, got %#v", dst.Pix[1])
	}
}

func TestPlusSaturates(t *testing.T) {
	s := Color{0.7, 0.2, 0.9, 0.6}
	d := Color{0.6, 0.1, 0.3, 0.7}
	if got := blendPlusLighter(s, d); !same(got, Color{1, 0.3, 1, 1}) {
		t.Fatalf("plus-lighter: %#v", got)
	}
	if got := blendPlusDarker(s, d); !same(got, Color{0.3, 0, 0.2, 0.3}) {
		t.Fatalf("plus-darker: %#v", got)
	}
}

func TestOperatorTable(t *testing.T) {
	s := Color{0.5, 0.25, 0, 0.5}
	d := Color{0, 0.4, 0.8, 0.8}
	cases := []struct {
		m    Mode
		want Color
	}{
		{ModeClear, Transparent},
		{ModeCopy, s},
		{ModeSource, s},
		{ModeDestination, d},
		{ModeDestinationOver, Color{0.1, 0.45, 0.8, 0.9}},
		{ModeSourceIn, Color{0.4, 0.2, 0, 0.4}},
		{ModeDestinationIn, Color{0, 0.2, 0.4, 0.4}},
		{ModeSourceOut, Color{0.1, 0.05, 0, 0.1}},
		{ModeDestinationOut, Color{0, 0.2, 0.4, 0.4}},
		{ModeSourceAtop, Color{0.4, 0.4, 0.4, 0.8}},
		{ModeDestinationAtop, Color{0.1, 0.25, 0.4, 0.5}},
		{ModeXor, Color{0.1, 0.25, 0.4, 0.5}},
	}
	for _, c := range cases {
		if got := GetBlendFunc(c.m)(s, d); !same(got, c.want) {
			t.Fatalf("%s: got %#v want %#v", c.m, got, c.want)
		}
	}
}

func TestComposeRejectsAliasing(t *testing.T) {
	dst, src, _ := canvases(t, Transparent, Transparent)
	if err := Compose(dst, src, dst, ModeSourceOver); err == nil {
		t.Fatalf("expected aliasing error")
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("alpha_plus_darker")
	if err != nil || m != ModePlusDarker {
		t.Fatalf("parse: %v %v", m, err)
	}
	if _, err := ParseMode("MULTIPLY"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if len(ModeNames()) != 15 {
		t.Fatalf("expected 15 modes, got %d", len(ModeNames()))
	}
}

func TestFromPalettePremultiplies(t *testing.T) {
	c := FromPalette(palette.Color(0x80FF0000))
	if !near(c.R, c.A) || c.G != 0 || c.B != 0 {
		t.Fatalf("unexpected %#v", c)
	}
}
