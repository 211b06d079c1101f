package shards

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/palette"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// Bounce draws a ball travelling across the display over a background
// taken from the first palette color. Drawing goes through a gg context
// the size of the layer canvas.
type Bounce struct {
	speed    *variables.Floating
	wobble   *variables.Floating
	diameter *variables.Floating
	color    *variables.ColorSequence

	dc    *gg.Context
	phase float64
}

func NewBounce(l *layer.Layer) (layer.Shard, error) {
	b := &Bounce{}
	var err error
	if b.speed, err = variables.NewFloating("speed", 0.01, variables.WithDefaultRange(0, 0.1)); err != nil {
		return nil, err
	}
	if b.wobble, err = variables.NewFloating("wobble", 0.1, variables.WithDefaultRange(0, 1)); err != nil {
		return nil, err
	}
	if b.diameter, err = variables.NewFloating("diameter", 0.1, variables.WithRange(0, 1)); err != nil {
		return nil, err
	}
	ball := palette.NewSequence(palette.ContinuousCircular, 0xFF0000FF)
	if b.color, err = variables.NewColorSequence("ball_color", ball); err != nil {
		return nil, err
	}
	if err := declare(l, b.speed, b.wobble, b.diameter, b.color); err != nil {
		return nil, err
	}
	dim := l.Dim()
	b.dc = gg.NewContext(dim.X, dim.Y)
	return b, nil
}

// Position returns the ball center in canvas coordinates.
func (b *Bounce) Position(w, h int) (x, y float64) {
	// triangle wave keeps the ball inside the canvas
	t := math.Mod(b.phase, 2)
	if t > 1 {
		t = 2 - t
	}
	x = t * float64(w-1)
	y = (0.5 + 0.5*b.wobble.Get()*math.Sin(2*math.Pi*b.phase)) * float64(h-1)
	return x, y
}

func (b *Bounce) Frame(l *layer.Layer) error {
	b.phase += b.speed.Get()
	w, h := b.dc.Width(), b.dc.Height()

	bg := l.Palette().At(0)
	br, bgc, bb, ba := bg.Floats()
	b.dc.Clear()
	b.dc.SetRGBA(br, bgc, bb, ba)
	b.dc.DrawRectangle(0, 0, float64(w), float64(h))
	if err := b.dc.Fill(); err != nil {
		return err
	}

	x, y := b.Position(w, h)
	radius := 0.5 * b.diameter.Get() * float64(max(w, h))
	cr, cg, cb, ca := b.color.Get().At(b.phase).Floats()
	b.dc.SetRGBA(cr, cg, cb, ca)
	b.dc.DrawCircle(x, y, math.Max(radius, 0.5))
	if err := b.dc.Fill(); err != nil {
		return err
	}
	l.Canvas().CopyFrom(b.dc.Image())
	return nil
}
