package shards

import (
	"time"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/render"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Gradient spreads the layer palette across one axis and scrolls it.
//   - "speed": palette cycles per second
//   - "axis": "x" or "y"
//   - "span": palette cycles across the display
type Gradient struct {
	speed *variables.Floating
	axis  *variables.Choice
	span  *variables.Floating
	now   func() time.Time
	t0    time.Time
}

func NewGradient(l *layer.Layer) (layer.Shard, error) {
	g := &Gradient{now: time.Now}
	var err error
	if g.speed, err = variables.NewFloating("speed", 0.1, variables.WithDefaultRange(-1, 1)); err != nil {
		return nil, err
	}
	if g.axis, err = variables.NewOption("axis", "x", []string{"x", "y"}); err != nil {
		return nil, err
	}
	if g.span, err = variables.NewFloating("span", 1, variables.WithRange(0, 16), variables.WithDefaultRange(0, 4)); err != nil {
		return nil, err
	}
	if err := declare(l, g.speed, g.axis, g.span); err != nil {
		return nil, err
	}
	g.t0 = g.now()
	return g, nil
}

func (g *Gradient) Frame(l *layer.Layer) error {
	c := l.Canvas()
	pal := l.Palette()
	t := g.now().Sub(g.t0).Seconds()
	offset := t * g.speed.Get()
	span := g.span.Get()
	alongY := g.axis.Get() == "y"

	n := c.Dim.X
	if alongY {
		n = c.Dim.Y
	}
	for y := 0; y < c.Dim.Y; y++ {
		for x := 0; x < c.Dim.X; x++ {
			p := x
			if alongY {
				p = y
			}
			pos := float64(p) / float64(n) * span
			c.Set(x, y, render.FromPalette(pal.At(pos+offset)))
		}
	}
	return nil
}
